package domain

import (
	"net/netip"
	"strings"
	"sync/atomic"
	"time"
)

// MaxBodySize is the hard limit for a request body in bytes.
const MaxBodySize = 131072

// Method is the request method derived from the first hint token.
type Method uint8

// Supported methods. Anything else is MethodNotImplemented.
const (
	MethodNotImplemented Method = iota
	MethodGet
	MethodPost
)

// String returns the lower-case method token.
func (m Method) String() string {
	switch m {
	case MethodGet:
		return "get"
	case MethodPost:
		return "post"
	default:
		return "not-implemented"
	}
}

// MethodOf maps a lower-cased hint token to a Method.
func MethodOf(token string) Method {
	switch token {
	case "get":
		return MethodGet
	case "post":
		return MethodPost
	default:
		return MethodNotImplemented
	}
}

// Request is a single parsed request together with the response being built
// for it. It is owned by one connection goroutine for its whole lifetime.
type Request struct {
	// Header maps lower-cased field names to values; later fields overwrite earlier ones.
	Header map[string]string

	// Verb and Path are the raw strings from the request line.
	Verb string
	Path string

	// Hint holds the lower-cased segments of verb and path; Hint[0] is the verb.
	Hint []string

	// Body holds the raw request body, at most MaxBodySize bytes.
	Body []byte

	Method Method

	// Remote is the peer address captured at accept time.
	Remote netip.Addr

	// ID is a short correlation id for log lines. It wraps and may collide.
	ID uint16

	Response Response
}

// NewRequest creates an empty request for a freshly accepted connection.
func NewRequest(id uint16, remote netip.Addr) *Request {
	return &Request{
		Header: make(map[string]string, 8),
		Remote: remote,
		ID:     id,
	}
}

// HeaderValue returns the value of a header field, matched case-insensitively.
func (r *Request) HeaderValue(name string) string {
	return r.Header[strings.ToLower(name)]
}

// HintAt returns the i-th hint token or "" when the hint is shorter.
func (r *Request) HintAt(i int) string {
	if i < 0 || i >= len(r.Hint) {
		return ""
	}
	return r.Hint[i]
}

// Fail moves the response to an error status and, unless a message or payload
// is already present, sets msg as its message.
func (r *Request) Fail(status Status, msg string) {
	r.Response.SetStatus(status)
	if msg != "" && r.Response.Empty() {
		r.Response.SetMessage(msg)
	}
}

// FailWith is Fail for an error value: the status comes from StatusOf and the
// message from the error text.
func (r *Request) FailWith(err error) {
	if err == nil {
		return
	}
	r.Fail(StatusOf(err), MessageOf(err))
}

// Tokenize splits s on '/', '\' and ' ', lower-cases every segment and drops
// empty ones.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '\\' || r == ' '
	})
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

// IDSource hands out correlation ids.
//
// The sequence is seeded from the wall clock and advanced by a small stride
// derived from the current time, so consecutive ids are not trivially
// predictable. Ids are 16 bits wide and wrap quickly under load.
type IDSource struct {
	seq atomic.Uint32
}

// NewIDSource returns an IDSource seeded from the current time.
func NewIDSource() *IDSource {
	s := &IDSource{}
	s.seq.Store(uint32(time.Now().UnixNano()))
	return s
}

// Next returns the next correlation id.
func (s *IDSource) Next() uint16 {
	stride := uint32(time.Now().UnixNano()>>10)%13 + 1
	return uint16(s.seq.Add(stride))
}
