package invoicing

import (
	"context"
	"log/slog"
	"sync"

	"staysync/internal/app/policies"
	domainsettlement "staysync/internal/domain/settlement"
)

// Emitter is the local stand-in for the invoicing collaborator: it records the
// settlement snapshot once per booking id and logs it for reconciliation.
// Repeated emissions for the same booking are absorbed, which keeps outbox
// redelivery harmless.
type Emitter struct {
	Logger *slog.Logger

	mu   sync.Mutex
	seen map[string]domainsettlement.Settlement
}

func NewEmitter(logger *slog.Logger) *Emitter {
	return &Emitter{
		Logger: logger,
		seen:   make(map[string]domainsettlement.Settlement),
	}
}

func (e *Emitter) EmitSettlement(ctx context.Context, bookingID string, s domainsettlement.Settlement) error {
	e.mu.Lock()
	_, dup := e.seen[bookingID]
	if !dup {
		e.seen[bookingID] = s
	}
	e.mu.Unlock()
	if dup {
		return nil
	}
	if e.Logger != nil {
		e.Logger.Info("settlement emitted",
			"booking_id", bookingID,
			"reference", s.Reference,
			"total", s.Total.String(),
			"commission_percent", s.CommissionPercent,
			"commission", s.Commission.String(),
			"net", s.Net.String())
	}
	return nil
}

// Emitted returns the settlement recorded for a booking, if any.
func (e *Emitter) Emitted(bookingID string) (domainsettlement.Settlement, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.seen[bookingID]
	return s, ok
}

var _ policies.InvoicingPort = (*Emitter)(nil)
