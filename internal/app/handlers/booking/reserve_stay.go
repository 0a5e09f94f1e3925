package booking

import (
	"context"
	"errors"
	"time"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	"staysync/internal/app/middleware"
	"staysync/internal/app/outbox"
	"staysync/internal/app/uow"
	domainbooking "staysync/internal/domain/booking"
	domainpricing "staysync/internal/domain/pricing"
	domainproperty "staysync/internal/domain/property"
	domainsettlement "staysync/internal/domain/settlement"
	domainrange "staysync/internal/domain/shared/daterange"
)

const reserveStayKey = "booking.reserve"

var ErrUnitOfWorkRequired = errors.New("booking: unit of work required")

type ReserveStayCommand struct {
	CommandID       string
	PropertyID      string
	RequesterID     string
	Role            string
	CheckIn         time.Time
	CheckOut        time.Time
	Channel         string
	AgentName       string
	IdempotencyKeyV string
}

func (c ReserveStayCommand) Key() string { return reserveStayKey }

func (c ReserveStayCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c ReserveStayCommand) ResultPrototype() any { return &ReserveStayResult{} }

type ReserveStayResult struct {
	BookingID       string            `json:"booking_id"`
	Status          string            `json:"status"`
	ReservationCode string            `json:"reservation_code"`
	Settlement      dto.SettlementDTO `json:"settlement"`
}

// ReserveStayHandler runs the reservation pipeline: availability, quote,
// settlement, booking creation. The final overlap check happens inside
// Repository.Reserve so concurrent requests for the same property cannot
// both win.
type ReserveStayHandler struct {
	UoWFactory uow.UoWFactory
	Channels   domainsettlement.ChannelRates
	Clock      func() time.Time
	Encoder    outbox.EventEncoder
	Outbox     outbox.Outbox
}

func (h *ReserveStayHandler) Handle(ctx context.Context, cmd ReserveStayCommand) (*ReserveStayResult, error) {
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

	dr, err := domainrange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}

	prop, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(cmd.PropertyID))
	if err != nil {
		return nil, err
	}

	// Advisory pre-check: rejects obvious conflicts before pricing work.
	resolver := domainbooking.AvailabilityResolver{Bookings: unit.Bookings()}
	free, err := resolver.IsAvailable(ctx, prop.ID, dr)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, domainbooking.ErrDateConflict
	}

	aggregator := &domainpricing.Aggregator{
		Rates:      &domainpricing.RateResolver{Rules: unit.PricingRules(), Properties: unit.Properties()},
		Properties: unit.Properties(),
		Categories: unit.Categories(),
		Clock:      h.Clock,
	}
	quote, err := aggregator.Quote(ctx, prop.ID, dr)
	if err != nil {
		return nil, err
	}

	calculator := &domainsettlement.Calculator{Agents: unit.Agents(), Channels: h.Channels}
	settled, err := calculator.Settle(ctx, quote.Total, cmd.AgentName, domainsettlement.Channel(cmd.Channel))
	if err != nil {
		return nil, err
	}

	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(cmd.CommandID),
		Property:  prop,
		Requester: domainbooking.Actor{ID: cmd.RequesterID, Role: domainbooking.Role(cmd.Role)},
		Range:     dr,
		Price:     quote,
		Channel:   domainsettlement.Channel(cmd.Channel),
		AgentName: cmd.AgentName,
		Settled:   settled,
		Now:       h.now(),
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Bookings().Reserve(ctx, b); err != nil {
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

	return &ReserveStayResult{
		BookingID:       string(b.ID),
		Status:          string(b.Status),
		ReservationCode: b.Code,
		Settlement:      dto.MapSettlement(b.Settlement),
	}, nil
}

func (h *ReserveStayHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *ReserveStayHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

var _ commands.Handler[ReserveStayCommand, *ReserveStayResult] = (*ReserveStayHandler)(nil)
var _ middleware.IdempotentCommand = (*ReserveStayCommand)(nil)
