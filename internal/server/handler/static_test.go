package handler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/kkmgate/internal/core/domain"
	"github.com/yndnr/kkmgate/internal/storage/respcache"
	"github.com/yndnr/kkmgate/internal/telemetry/metric"
)

func newStaticHandler(t *testing.T) (*Static, string, *metric.Registry) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>kkmgate</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "js"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "js", "app.js"), []byte("let a = 1;"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := metric.NewBareRegistry()
	h, err := NewStatic(dir, "index.html", respcache.New(), time.Hour, m)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { h.Close() })
	return h, dir, m
}

func binaryBody(t *testing.T, req *domain.Request) string {
	t.Helper()
	p, ok := req.Response.Payload().(*domain.Binary)
	if !ok {
		t.Fatalf("payload = %T (status %v)", req.Response.Payload(), req.Response.Status())
	}
	return string(p.Bytes())
}

func TestStatic_Serve(t *testing.T) {
	h, _, m := newStaticHandler(t)

	req := newRequest("GET", "/static/js/app.js", "", nil)
	out := serve(t, h, req)
	if binaryBody(t, req) != "let a = 1;" {
		t.Errorf("body = %q", binaryBody(t, req))
	}
	if strings.Contains(out, "Pragma: no-cache") {
		t.Error("static response carries no-cache headers")
	}

	req = newRequest("GET", "/static", "", nil)
	serve(t, h, req)
	if binaryBody(t, req) != "<h1>kkmgate</h1>" {
		t.Errorf("index body = %q", binaryBody(t, req))
	}
	if p := req.Response.Payload().(*domain.Binary); !strings.HasPrefix(p.MIME(), "text/html") {
		t.Errorf("index mime = %q", p.MIME())
	}

	req = newRequest("GET", "/static/js/app.js", "", nil)
	serve(t, h, req)
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("static", metric.CacheHit)); got != 1 {
		t.Errorf("static hits = %v, want 1", got)
	}
}

func TestStatic_ReloadsModifiedFile(t *testing.T) {
	h, dir, m := newStaticHandler(t)
	file := filepath.Join(dir, "js", "app.js")

	serve(t, h, newRequest("GET", "/static/js/app.js", "", nil))

	if err := os.WriteFile(file, []byte("let a = 2;"), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(file, future, future); err != nil {
		t.Fatal(err)
	}

	req := newRequest("GET", "/static/js/app.js", "", nil)
	serve(t, h, req)
	if binaryBody(t, req) != "let a = 2;" {
		t.Errorf("body after change = %q", binaryBody(t, req))
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("static", metric.CacheStale)); got != 1 {
		t.Errorf("stale lookups = %v, want 1", got)
	}
}

func TestStatic_Rejects(t *testing.T) {
	h, _, _ := newStaticHandler(t)

	tests := []struct {
		verb string
		path string
		want domain.Status
	}{
		{"GET", "/static/../../etc/passwd", domain.StatusNotFound},
		{"GET", `/static/..\secret`, domain.StatusNotFound},
		{"GET", "/static/missing.css", domain.StatusNotFound},
		{"POST", "/static/index.html", domain.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		req := newRequest(tt.verb, tt.path, "", nil)
		serve(t, h, req)
		if req.Response.Status() != tt.want {
			t.Errorf("%s %s status = %v, want %v", tt.verb, tt.path, req.Response.Status(), tt.want)
		}
	}
}

func TestStatic_Disabled(t *testing.T) {
	h, err := NewStatic("", "index.html", respcache.New(), time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}
	req := newRequest("GET", "/static/index.html", "", nil)
	serve(t, h, req)
	if req.Response.Status() != domain.StatusNotFound {
		t.Errorf("status = %v", req.Response.Status())
	}
}

func TestMetrics(t *testing.T) {
	m := metric.NewBareRegistry()
	m.ConnectionsAccepted.Inc()

	req := newRequest("GET", "/metrics", "", nil)
	serve(t, NewMetrics(m.Gatherer()), req)

	p, ok := req.Response.Payload().(*domain.Solid)
	if !ok {
		t.Fatalf("payload = %T", req.Response.Payload())
	}
	if !strings.Contains(p.Text(), "kkmgate_connections_accepted_total 1") {
		t.Errorf("metrics text:\n%s", p.Text())
	}
}
