package domain

import (
	"net/netip"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "verb and path",
			input: "GET /kkm/status/ABC123",
			want:  []string{"get", "kkm", "status", "abc123"},
		},
		{
			name:  "backslashes and repeated separators",
			input: `POST //KKM\\cash-in/ SN1`,
			want:  []string{"post", "kkm", "cash-in", "sn1"},
		},
		{
			name:  "separators only",
			input: " / \\ ",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMethodOf(t *testing.T) {
	tests := map[string]Method{
		"get":    MethodGet,
		"post":   MethodPost,
		"put":    MethodNotImplemented,
		"GET":    MethodNotImplemented,
		"delete": MethodNotImplemented,
	}
	for token, want := range tests {
		if got := MethodOf(token); got != want {
			t.Errorf("MethodOf(%q) = %v, want %v", token, got, want)
		}
	}
}

func TestRequest_HeaderValue(t *testing.T) {
	r := NewRequest(1, netip.MustParseAddr("127.0.0.1"))
	r.Header["x-secret"] = "s3"

	if got := r.HeaderValue("X-Secret"); got != "s3" {
		t.Errorf("HeaderValue() = %q, want %q", got, "s3")
	}
	if got := r.HeaderValue("missing"); got != "" {
		t.Errorf("HeaderValue(missing) = %q, want empty", got)
	}
}

func TestRequest_HintAt(t *testing.T) {
	r := &Request{Hint: []string{"get", "ping"}}
	if r.HintAt(1) != "ping" {
		t.Errorf("HintAt(1) = %q", r.HintAt(1))
	}
	if r.HintAt(2) != "" || r.HintAt(-1) != "" {
		t.Error("HintAt out of range should be empty")
	}
}

func TestRequest_FailKeepsFirstMessage(t *testing.T) {
	r := NewRequest(1, netip.Addr{})
	r.Fail(StatusBadRequest, "first")
	r.Fail(StatusForbidden, "second")

	if r.Response.Status() != StatusForbidden {
		t.Errorf("status = %v, want %v", r.Response.Status(), StatusForbidden)
	}
	if msg, _ := r.Response.Message(); msg != "first" {
		t.Errorf("message = %q, want %q", msg, "first")
	}
}

func TestRequest_FailWith(t *testing.T) {
	r := NewRequest(1, netip.Addr{})
	r.FailWith(ErrDeviceBusy.WithDetail("serial %s", "SN1"))

	if r.Response.Status() != StatusConflict {
		t.Errorf("status = %v, want %v", r.Response.Status(), StatusConflict)
	}
	if msg, _ := r.Response.Message(); msg != "device busy" {
		t.Errorf("message = %q", msg)
	}

	r.FailWith(nil)
	if r.Response.Status() != StatusConflict {
		t.Error("FailWith(nil) must not change the response")
	}
}

func TestIDSource_Next(t *testing.T) {
	s := NewIDSource()
	prev := s.Next()
	changed := 0
	for i := 0; i < 100; i++ {
		id := s.Next()
		if id != prev {
			changed++
		}
		prev = id
	}
	if changed != 100 {
		t.Errorf("consecutive ids repeated %d times", 100-changed)
	}
}
