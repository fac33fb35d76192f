package gateway

import (
	"crypto/subtle"

	"github.com/yndnr/kkmgate/internal/core/domain"
)

// SecretHeader carries the shared secret.
const SecretHeader = "x-secret"

// authenticate checks the shared secret. Loopback peers skip the check when
// loopbackExempt is set. An empty secret admits nobody else.
func authenticate(req *domain.Request, secret string, loopbackExempt bool) error {
	if loopbackExempt && req.Remote.IsLoopback() {
		return nil
	}
	got := req.HeaderValue(SecretHeader)
	if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
		return domain.ErrAuthFailed
	}
	return nil
}
