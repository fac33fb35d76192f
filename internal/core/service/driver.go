package service

import (
	"context"

	"github.com/yndnr/kkmgate/internal/core/domain"
)

// Operation names understood by the gateway.
const (
	OpStatus     = "status"
	OpOpenShift  = "open-shift"
	OpCloseShift = "close-shift"
	OpXReport    = "x-report"
	OpCashIn     = "cash-in"
	OpCashOut    = "cash-out"
	OpSale       = "sale"
	OpRefund     = "refund"
)

var operations = map[string]struct{}{
	OpStatus:     {},
	OpOpenShift:  {},
	OpCloseShift: {},
	OpXReport:    {},
	OpCashIn:     {},
	OpCashOut:    {},
	OpSale:       {},
	OpRefund:     {},
}

// KnownOperation reports whether op is a supported operation name.
func KnownOperation(op string) bool {
	_, ok := operations[op]
	return ok
}

// Driver talks to one kind of fiscal register.
//
// Execute performs op on the device described by dev. args is the raw JSON
// request body and may be empty. The result is encoded as JSON for the
// client. Errors should be *domain.Error values so they map to a status.
type Driver interface {
	Name() string
	Execute(ctx context.Context, dev domain.Device, op string, args []byte) (any, error)
}
