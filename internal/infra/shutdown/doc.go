// Package shutdown coordinates process termination.
//
// Handler waits for SIGINT/SIGTERM (or an explicit Trigger from the
// service control manager) and runs registered hooks in reverse order under
// a timeout. Hitman is a one-shot deferred action used by the gateway to
// wait a bounded time for in-flight work before cancelling it.
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(srv.Stop)
//	err := h.Wait(ctx)
package shutdown
