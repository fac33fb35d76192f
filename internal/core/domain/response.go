package domain

import (
	"io"
	"strconv"

	json "github.com/goccy/go-json"
)

// Response is the status and body produced for a Request.
//
// It is a tagged union of three states: empty, an inline message, or a
// Payload. The zero value is an empty response with StatusOK.
type Response struct {
	status     Status
	message    string
	hasMessage bool
	payload    Payload
}

// envelope is the JSON body rendered for empty and message responses.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Reset returns the response to an empty StatusOK state.
func (r *Response) Reset() {
	*r = Response{status: StatusOK}
}

// Status returns the current status.
func (r *Response) Status() Status {
	if r.status == 0 {
		return StatusOK
	}
	return r.status
}

// SetStatus assigns a new status. Once the response holds an error status,
// assigning a non-error status is refused and SetStatus returns false.
func (r *Response) SetStatus(s Status) bool {
	if r.Status().IsError() && !s.IsError() {
		return false
	}
	r.status = s
	return true
}

// SetMessage replaces the body with an inline message.
func (r *Response) SetMessage(msg string) {
	r.message = msg
	r.hasMessage = true
	r.payload = nil
}

// Message returns the inline message, if one is set.
func (r *Response) Message() (string, bool) {
	return r.message, r.hasMessage
}

// SetPayload replaces the body with p.
func (r *Response) SetPayload(p Payload) {
	r.payload = p
	r.message = ""
	r.hasMessage = false
}

// Payload returns the current payload or nil.
func (r *Response) Payload() Payload {
	return r.payload
}

// Empty reports whether neither a message nor a valid payload is set.
func (r *Response) Empty() bool {
	if r.hasMessage {
		return false
	}
	return r.payload == nil || !r.payload.Valid()
}

// Render writes the complete HTTP/1.1 response: status line, headers and
// body. The empty branch renders a {"success","message"} envelope built from
// the status, so the output is always a well-formed response.
func (r *Response) Render(w io.Writer) (int64, error) {
	status := r.Status()

	var (
		body     []byte
		mime     = MIMEJSON
		static   bool
		location string
	)

	switch p := r.payload.(type) {
	case *JSON:
		if p.Valid() {
			body = p.data
		}
	case *Solid:
		if p.Valid() {
			body, mime = p.data, p.mime
		}
	case *Binary:
		if p.Valid() {
			body, mime, static = p.data, p.mime, true
		}
	case *Constant:
		if p.Valid() {
			body, mime, static = p.data, p.mime, true
		}
	case *Redirect:
		if p.Valid() {
			location = p.location
			if !status.IsError() {
				status = p.Status()
			}
		}
	}

	if body == nil {
		msg, ok := r.Message()
		if !ok {
			msg = status.Text()
		}
		// Marshaling a struct of a bool and a string cannot fail.
		body, _ = json.Marshal(envelope{Success: !status.IsError(), Message: msg})
		mime = MIMEJSON
		static = false
	}

	hdr := make([]byte, 0, 256)
	hdr = append(hdr, "HTTP/1.1 "...)
	hdr = strconv.AppendInt(hdr, int64(status), 10)
	hdr = append(hdr, ' ')
	hdr = append(hdr, status.Text()...)
	hdr = append(hdr, "\r\nContent-Type: "...)
	hdr = append(hdr, mime...)
	hdr = append(hdr, "\r\nContent-Length: "...)
	hdr = strconv.AppendInt(hdr, int64(len(body)), 10)
	if location != "" {
		hdr = append(hdr, "\r\nLocation: "...)
		hdr = append(hdr, location...)
	}
	if !static {
		hdr = append(hdr, "\r\nPragma: no-cache\r\nCache-Control: no-cache, private"...)
	}
	hdr = append(hdr, "\r\nConnection: close\r\n\r\n"...)

	n, err := w.Write(hdr)
	total := int64(n)
	if err != nil {
		return total, err
	}
	n, err = w.Write(body)
	total += int64(n)
	return total, err
}
