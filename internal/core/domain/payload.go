package domain

import (
	"time"

	json "github.com/goccy/go-json"
)

// Content types used by the built-in payloads.
const (
	MIMEJSON   = "application/json; charset=utf-8"
	MIMEText   = "text/plain; charset=utf-8"
	MIMEBinary = "application/octet-stream"
)

// Payload is the response body of a Response. The set of implementations is
// closed: JSON, Solid, Binary, Constant and Redirect. Payloads are immutable
// once built, so one value may be shared by many responses (cache hits)
// without copying.
type Payload interface {
	// Valid reports whether the payload has something to render.
	Valid() bool

	payload()
}

// JSON is a pre-encoded JSON document.
type JSON struct {
	data []byte
}

// NewJSON encodes v into a JSON payload.
func NewJSON(v any) (*JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &JSON{data: data}, nil
}

// RawJSON wraps an already encoded JSON document. The slice must not be
// modified afterwards.
func RawJSON(data []byte) *JSON {
	return &JSON{data: data}
}

// Bytes returns the encoded document.
func (p *JSON) Bytes() []byte { return p.data }

// Valid implements Payload.
func (p *JSON) Valid() bool { return p != nil && len(p.data) > 0 }

func (*JSON) payload() {}

// Solid is a text body with an explicit content type.
type Solid struct {
	data []byte
	mime string
}

// NewSolid creates a text payload. An empty mime defaults to MIMEText.
func NewSolid(text, mime string) *Solid {
	if mime == "" {
		mime = MIMEText
	}
	return &Solid{data: []byte(text), mime: mime}
}

// Text returns the body as a string.
func (p *Solid) Text() string { return string(p.data) }

// Valid implements Payload.
func (p *Solid) Valid() bool { return p != nil && len(p.data) > 0 }

func (*Solid) payload() {}

// Binary is an opaque body such as a static file. It renders without the
// no-cache headers.
type Binary struct {
	data    []byte
	mime    string
	modTime time.Time
}

// NewBinary creates a binary payload. data is shared, not copied.
func NewBinary(data []byte, mime string, modTime time.Time) *Binary {
	if mime == "" {
		mime = MIMEBinary
	}
	return &Binary{data: data, mime: mime, modTime: modTime}
}

// Bytes returns the shared body.
func (p *Binary) Bytes() []byte { return p.data }

// MIME returns the content type.
func (p *Binary) MIME() string { return p.mime }

// ModTime returns the modification time of the source, if known.
func (p *Binary) ModTime() time.Time { return p.modTime }

// Valid implements Payload. An empty file is still a valid binary payload.
func (p *Binary) Valid() bool { return p != nil && p.data != nil }

func (*Binary) payload() {}

// Constant is a pre-baked body kept for the lifetime of the process, such as
// a built-in favicon or a canned document.
type Constant struct {
	data []byte
	mime string
}

// NewConstant wraps a static byte slice.
func NewConstant(data []byte, mime string) *Constant {
	if mime == "" {
		mime = MIMEBinary
	}
	return &Constant{data: data, mime: mime}
}

// Valid implements Payload.
func (p *Constant) Valid() bool { return p != nil && len(p.data) > 0 }

func (*Constant) payload() {}

// Redirect points the client at another location.
type Redirect struct {
	location  string
	permanent bool
}

// NewRedirect creates a redirect payload.
func NewRedirect(location string, permanent bool) *Redirect {
	return &Redirect{location: location, permanent: permanent}
}

// Location returns the redirect target.
func (p *Redirect) Location() string { return p.location }

// Status returns the status a redirect renders with.
func (p *Redirect) Status() Status {
	if p.permanent {
		return StatusMovedPermanently
	}
	return StatusFound
}

// Valid implements Payload.
func (p *Redirect) Valid() bool { return p != nil && p.location != "" }

func (*Redirect) payload() {}
