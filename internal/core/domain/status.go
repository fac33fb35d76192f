package domain

import "strconv"

// Status is an HTTP status code emitted by the gateway.
type Status int

// Statuses used by the gateway and its handlers.
const (
	StatusOK                  Status = 200
	StatusMovedPermanently    Status = 301
	StatusFound               Status = 302
	StatusBadRequest          Status = 400
	StatusForbidden           Status = 403
	StatusNotFound            Status = 404
	StatusMethodNotAllowed    Status = 405
	StatusRequestTimeout      Status = 408
	StatusConflict            Status = 409
	StatusUnprocessableEntity Status = 422
	StatusTooManyRequests     Status = 429
	StatusInternalServerError Status = 500
	StatusNotImplemented      Status = 501
	StatusServiceUnavailable  Status = 503
	StatusGatewayTimeout      Status = 504
)

var statusText = map[Status]string{
	StatusOK:                  "OK",
	StatusMovedPermanently:    "Moved Permanently",
	StatusFound:               "Found",
	StatusBadRequest:          "Bad Request",
	StatusForbidden:           "Forbidden",
	StatusNotFound:            "Not Found",
	StatusMethodNotAllowed:    "Method Not Allowed",
	StatusRequestTimeout:      "Request Timeout",
	StatusConflict:            "Conflict",
	StatusUnprocessableEntity: "Unprocessable Entity",
	StatusTooManyRequests:     "Too Many Requests",
	StatusInternalServerError: "Internal Server Error",
	StatusNotImplemented:      "Not Implemented",
	StatusServiceUnavailable:  "Service Unavailable",
	StatusGatewayTimeout:      "Gateway Timeout",
}

// Text returns the reason phrase for the status.
func (s Status) Text() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	switch {
	case s >= 500:
		return "Server Error"
	case s >= 400:
		return "Client Error"
	default:
		return "Status " + strconv.Itoa(int(s))
	}
}

// IsError reports whether the status is a client or server error.
func (s Status) IsError() bool {
	return s >= 400
}

// String returns "<code> <reason>".
func (s Status) String() string {
	return strconv.Itoa(int(s)) + " " + s.Text()
}
