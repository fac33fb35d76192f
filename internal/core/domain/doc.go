// Package domain defines the request/response model of kkmgate.
//
// The types here are plain values without I/O dependencies:
//
//   - Request: one parsed HTTP request, owned by its connection goroutine
//   - Response: status plus a closed set of payload variants, rendered to wire bytes
//   - Status: the HTTP status subset the gateway emits
//   - Error: status-carrying errors used across handlers and the gateway
//
// A Response never leaves an error status once one has been assigned, so
// authentication and handler code cannot turn a rejected request into a success.
package domain
