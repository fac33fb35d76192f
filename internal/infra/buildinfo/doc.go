// Package buildinfo holds version information injected at build time.
//
//	go build -ldflags "-X github.com/yndnr/kkmgate/internal/infra/buildinfo.Version=1.4.0 \
//	  -X github.com/yndnr/kkmgate/internal/infra/buildinfo.Commit=$(git rev-parse --short HEAD)" \
//	  ./cmd/kkmgate
//
// GoVersion falls back to the runtime version when it is not injected.
package buildinfo
