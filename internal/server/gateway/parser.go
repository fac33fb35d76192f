package gateway

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/yndnr/kkmgate/internal/core/domain"
	"github.com/yndnr/kkmgate/internal/telemetry/logger"
)

// Limits on the header section. Body size is bounded by domain.MaxBodySize.
const (
	maxLineSize   = 8 << 10
	maxHeaderSize = 64 << 10
)

type parseState uint8

const (
	stateMethodLine parseState = iota
	stateHeaderLine
	stateBody
	stateDrain
)

func (s parseState) String() string {
	switch s {
	case stateMethodLine:
		return "method-line"
	case stateHeaderLine:
		return "header-line"
	case stateBody:
		return "body"
	case stateDrain:
		return "drain"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// lineFunc consumes one line, without its LF but with any CR, and returns
// the next state.
type lineFunc func(p *Parser, line []byte) parseState

var lineFuncs = [...]lineFunc{
	stateMethodLine: parseMethodLine,
	stateHeaderLine: parseHeaderLine,
}

// Parser fills a domain.Request from the bytes of successive reads.
//
// Feed is called once per read with whatever arrived. Lines split across
// reads are carried over. Body bytes are appended up to the declared
// Content-Length; anything after that is discarded. Errors set the response
// status and move the parser to the drain state, which ignores all further
// input.
type Parser struct {
	req *domain.Request
	log logger.Logger

	state       parseState
	carry       []byte
	expected    int
	headerBytes int
	headersDone bool
}

// NewParser creates a parser writing into req.
func NewParser(req *domain.Request, log logger.Logger) *Parser {
	if log == nil {
		log = logger.Discard()
	}
	return &Parser{req: req, log: log}
}

// Feed consumes chunk. It never panics; a panic inside a state function is
// logged and turned into a Bad Request.
func (p *Parser) Feed(chunk []byte) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("parser panic", "state", p.state.String(), "panic", fmt.Sprint(r))
			p.reject(domain.ErrMalformedRequest)
		}
	}()

	for len(chunk) > 0 {
		switch p.state {
		case stateDrain:
			return

		case stateBody:
			need := p.expected - len(p.req.Body)
			if need > len(chunk) {
				need = len(chunk)
			}
			p.req.Body = append(p.req.Body, chunk[:need]...)
			chunk = chunk[need:]
			if len(p.req.Body) >= p.expected {
				p.state = stateDrain
			}

		default:
			i := bytes.IndexByte(chunk, '\n')
			if i < 0 {
				if len(p.carry)+len(chunk) > maxLineSize {
					p.reject(domain.ErrHeaderTooLarge)
					return
				}
				p.carry = append(p.carry, chunk...)
				return
			}

			line := chunk[:i]
			chunk = chunk[i+1:]
			if len(p.carry) > 0 {
				p.carry = append(p.carry, line...)
				line = p.carry
			}
			p.headerBytes += len(line) + 1
			if len(line) > maxLineSize || p.headerBytes > maxHeaderSize {
				p.reject(domain.ErrHeaderTooLarge)
				return
			}

			p.state = lineFuncs[p.state](p, line)
			p.carry = p.carry[:0]
		}
	}
}

// Expecting returns the number of body bytes still to be read. It is zero
// outside the body state and once the response carries an error.
func (p *Parser) Expecting() int {
	if p.state != stateBody || p.req.Response.Status().IsError() {
		return 0
	}
	return p.expected - len(p.req.Body)
}

// HeadersDone reports whether the blank line ending the header section was
// seen or parsing stopped early.
func (p *Parser) HeadersDone() bool {
	return p.headersDone
}

// Complete is called once no more input will arrive. Truncated requests
// become Bad Request, and an error status without a body gets its status
// text as message.
func (p *Parser) Complete() {
	if !p.headersDone || p.Expecting() > 0 {
		p.reject(domain.ErrTruncated)
	}
	if st := p.req.Response.Status(); st.IsError() && p.req.Response.Empty() {
		p.req.Response.SetMessage(st.Text())
	}
}

// reject records err on the response and switches to drain.
func (p *Parser) reject(err *domain.Error) parseState {
	p.req.FailWith(err)
	p.expected = 0
	p.headersDone = true
	p.carry = nil
	p.state = stateDrain
	return stateDrain
}

func parseMethodLine(p *Parser, line []byte) parseState {
	sp := bytes.IndexByte(line, ' ')
	if sp <= 0 {
		return p.reject(domain.ErrMalformedRequest)
	}
	rest := line[sp+1:]
	// The path ends at the first terminator or at the end of the line.
	end := bytes.IndexAny(rest, " ?#\r\n")
	if end < 0 {
		end = len(rest)
	}
	if end == 0 {
		return p.reject(domain.ErrMalformedRequest)
	}

	p.req.Verb = string(line[:sp])
	p.req.Path = string(rest[:end])
	p.req.Hint = domain.Tokenize(p.req.Verb + " " + p.req.Path)
	if len(p.req.Hint) == 0 {
		return p.reject(domain.ErrMalformedRequest)
	}
	p.req.Method = domain.MethodOf(p.req.Hint[0])
	if p.req.Method == domain.MethodNotImplemented {
		return p.reject(domain.ErrNotImplemented)
	}
	return stateHeaderLine
}

func parseHeaderLine(p *Parser, line []byte) parseState {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		p.headersDone = true
		if p.req.Method == domain.MethodPost && p.expected > 0 {
			return stateBody
		}
		return stateDrain
	}

	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		return p.reject(domain.ErrMalformedRequest)
	}
	field := strings.ToLower(string(bytes.TrimSpace(line[:colon])))
	value := string(bytes.TrimSpace(line[colon+1:]))
	p.req.Header[field] = value

	if field == "content-length" {
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return p.reject(domain.ErrMalformedRequest)
		}
		if n > domain.MaxBodySize {
			p.log.Warn("request body too large", "content_length", n, "limit", domain.MaxBodySize)
			return p.reject(domain.ErrBodyTooLarge)
		}
		p.expected = int(n)
		p.req.Body = make([]byte, 0, p.expected+1)
	}
	return stateHeaderLine
}
