package availability

import (
	"context"
	"time"

	"staysync/internal/app/queries"
	"staysync/internal/app/uow"
	domainbooking "staysync/internal/domain/booking"
	domainproperty "staysync/internal/domain/property"
	domainrange "staysync/internal/domain/shared/daterange"
)

const checkAvailabilityKey = "availability.check"

type CheckQuery struct {
	PropertyID string
	CheckIn    time.Time
	CheckOut   time.Time
}

func (q CheckQuery) Key() string { return checkAvailabilityKey }

type CheckResult struct {
	PropertyID string    `json:"property_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Available  bool      `json:"available"`
}

type CheckHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *CheckHandler) Handle(ctx context.Context, q CheckQuery) (*CheckResult, error) {
	dr, err := domainrange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return nil, err
	}
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer unit.Rollback(ctx)

	// Reject unknown properties rather than answering for a void.
	if _, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(q.PropertyID)); err != nil {
		return nil, err
	}

	resolver := domainbooking.AvailabilityResolver{Bookings: unit.Bookings()}
	free, err := resolver.IsAvailable(ctx, domainproperty.PropertyID(q.PropertyID), dr)
	if err != nil {
		return nil, err
	}
	return &CheckResult{
		PropertyID: q.PropertyID,
		CheckIn:    dr.CheckIn,
		CheckOut:   dr.CheckOut,
		Available:  free,
	}, nil
}

var _ queries.Handler[CheckQuery, *CheckResult] = (*CheckHandler)(nil)
