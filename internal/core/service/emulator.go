package service

import (
	"context"
	"crypto/rand"
	"math"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"

	"github.com/yndnr/kkmgate/internal/core/domain"
	"github.com/yndnr/kkmgate/pkg/cmap"
)

// EmulatorName is the Driver name of the Emulator.
const EmulatorName = "emulator"

// Args is the request body of a device operation.
type Args struct {
	// Amount is in currency units, e.g. 10.50.
	Amount  float64 `json:"amount"`
	Cashier string  `json:"cashier,omitempty"`
	Items   []Item  `json:"items,omitempty"`
}

// Item is one line of a sale or refund receipt.
type Item struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// DeviceStatus is the result of OpStatus.
type DeviceStatus struct {
	Serial         string    `json:"serial"`
	Model          string    `json:"model"`
	ShiftOpen      bool      `json:"shift_open"`
	ShiftNumber    int       `json:"shift_number"`
	Cash           float64   `json:"cash"`
	DocumentNumber int       `json:"document_number"`
	Time           time.Time `json:"time"`
}

// Document is the result of every operation that prints a fiscal document.
type Document struct {
	ID             string    `json:"id"`
	Serial         string    `json:"serial"`
	Operation      string    `json:"operation"`
	DocumentNumber int       `json:"document_number"`
	ShiftNumber    int       `json:"shift_number"`
	Amount         float64   `json:"amount,omitempty"`
	Cash           float64   `json:"cash"`
	Time           time.Time `json:"time"`
}

// register is the emulated state of one device. Amounts are in kopecks.
type register struct {
	mu        sync.Mutex
	shiftOpen bool
	shift     int
	cash      int64
	doc       int
	shiftSum  int64
}

// Emulator is an in-memory fiscal register driver.
type Emulator struct {
	latency time.Duration
	devices *cmap.Map[*register]
	now     func() time.Time

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// NewEmulator creates an emulator that takes latency per operation.
func NewEmulator(latency time.Duration) *Emulator {
	return &Emulator{
		latency: latency,
		devices: cmap.New[*register](),
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Name implements Driver.
func (e *Emulator) Name() string { return EmulatorName }

// Execute implements Driver.
func (e *Emulator) Execute(ctx context.Context, dev domain.Device, op string, args []byte) (any, error) {
	var a Args
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, domain.ErrInvalidBody.WithCause(err)
		}
	}

	if err := e.wait(ctx); err != nil {
		return nil, err
	}

	reg, _ := e.devices.GetOrCreate(dev.Key(), func() *register { return &register{} })
	reg.mu.Lock()
	defer reg.mu.Unlock()

	switch op {
	case OpStatus:
		return DeviceStatus{
			Serial:         dev.Serial,
			Model:          modelOf(dev),
			ShiftOpen:      reg.shiftOpen,
			ShiftNumber:    reg.shift,
			Cash:           units(reg.cash),
			DocumentNumber: reg.doc,
			Time:           e.now().UTC(),
		}, nil

	case OpOpenShift:
		if reg.shiftOpen {
			return nil, domain.ErrOperationRejected.WithDetail("shift %d is already open", reg.shift)
		}
		reg.shiftOpen = true
		reg.shift++
		reg.shiftSum = 0
		return e.document(dev, reg, op, 0), nil

	case OpCloseShift:
		if !reg.shiftOpen {
			return nil, domain.ErrOperationRejected.WithDetail("shift is closed")
		}
		reg.shiftOpen = false
		return e.document(dev, reg, op, reg.shiftSum), nil

	case OpXReport:
		if !reg.shiftOpen {
			return nil, domain.ErrOperationRejected.WithDetail("shift is closed")
		}
		return e.document(dev, reg, op, reg.shiftSum), nil
	}

	// Everything below moves money.
	if !reg.shiftOpen {
		return nil, domain.ErrOperationRejected.WithDetail("shift is closed")
	}
	amount, err := amountOf(a)
	if err != nil {
		return nil, err
	}

	switch op {
	case OpCashIn:
		reg.cash += amount
	case OpCashOut:
		if amount > reg.cash {
			return nil, domain.ErrOperationRejected.WithDetail("insufficient cash: %.2f in drawer", units(reg.cash))
		}
		reg.cash -= amount
	case OpSale:
		reg.cash += amount
		reg.shiftSum += amount
	case OpRefund:
		if amount > reg.cash {
			return nil, domain.ErrOperationRejected.WithDetail("insufficient cash for refund")
		}
		reg.cash -= amount
		reg.shiftSum -= amount
	default:
		return nil, domain.ErrUnknownOperation.WithDetail("%q", op)
	}
	return e.document(dev, reg, op, amount), nil
}

func (e *Emulator) wait(ctx context.Context) error {
	if e.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(e.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// document advances the document counter and builds the result. reg must
// be locked.
func (e *Emulator) document(dev domain.Device, reg *register, op string, amount int64) Document {
	reg.doc++
	now := e.now()

	e.entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(now), e.entropy)
	e.entropyMu.Unlock()

	return Document{
		ID:             id.String(),
		Serial:         dev.Serial,
		Operation:      op,
		DocumentNumber: reg.doc,
		ShiftNumber:    reg.shift,
		Amount:         units(amount),
		Cash:           units(reg.cash),
		Time:           now.UTC(),
	}
}

// amountOf returns the operation amount in kopecks. Items, when present,
// take precedence over Amount.
func amountOf(a Args) (int64, error) {
	total := a.Amount
	if len(a.Items) > 0 {
		total = 0
		for _, it := range a.Items {
			if it.Price < 0 || it.Quantity <= 0 {
				return 0, domain.ErrInvalidBody.WithDetail("item %q: bad price or quantity", it.Name)
			}
			total += it.Price * it.Quantity
		}
	}
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0, domain.ErrInvalidBody.WithDetail("amount must be positive")
	}
	return int64(math.Round(total * 100)), nil
}

func units(kopecks int64) float64 {
	return float64(kopecks) / 100
}

func modelOf(dev domain.Device) string {
	if dev.Model != "" {
		return dev.Model
	}
	return "emulator"
}
