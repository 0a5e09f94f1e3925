package booking

import (
	"context"
	"time"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	"staysync/internal/app/outbox"
	"staysync/internal/app/uow"
	domainbooking "staysync/internal/domain/booking"
)

const changeStatusKey = "booking.changeStatus"

type ChangeStatusCommand struct {
	BookingID       string
	RequestedStatus string
	RequesterID     string
	Role            string
}

func (c ChangeStatusCommand) Key() string { return changeStatusKey }

// ChangeStatusHandler applies one lifecycle transition under optimistic
// concurrency: the save is guarded by the aggregate version and a concurrent
// writer observes a conflict instead of silently overwriting.
type ChangeStatusHandler struct {
	UoWFactory uow.UoWFactory
	Clock      func() time.Time
	Encoder    outbox.EventEncoder
	Outbox     outbox.Outbox
}

func (h *ChangeStatusHandler) Handle(ctx context.Context, cmd ChangeStatusCommand) (*dto.BookingDTO, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	status, err := domainbooking.ParseStatus(cmd.RequestedStatus)
	if err != nil {
		return nil, err
	}

	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}

	actor := domainbooking.Actor{ID: cmd.RequesterID, Role: domainbooking.Role(cmd.Role)}
	if err := b.Transition(status, actor, h.now()); err != nil {
		return nil, err
	}

	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}

	pending := b.PendingEvents()
	b.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	result := dto.MapBooking(b)
	return &result, nil
}

func (h *ChangeStatusHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *ChangeStatusHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

var _ commands.Handler[ChangeStatusCommand, *dto.BookingDTO] = (*ChangeStatusHandler)(nil)
