// Package gateway is the HTTPS front end of kkmgate.
//
// A Server accepts TLS connections, admits them against a concurrency limit
// and an optional per-address rate limit, and serves exactly one request per
// connection on its own goroutine: handshake, incremental parse,
// authentication, dispatch, render, close. The whole exchange runs under a
// single deadline.
//
// The lifecycle is a one-way state machine:
//
//	Initial -> Starting -> Running -> Shutdown -> Stopping -> Stopped
//
// Stop closes the listener, waits a bounded time for in-flight requests to
// finish and then cancels whatever is left.
package gateway
