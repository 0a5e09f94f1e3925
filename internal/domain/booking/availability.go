package booking

import (
	"context"

	"staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
)

// ActiveBookingSource lists the non-cancelled bookings of one property.
type ActiveBookingSource interface {
	ActiveByProperty(ctx context.Context, id property.PropertyID) ([]*Booking, error)
}

// AvailabilityResolver answers whether a candidate stay is free of
// non-cancelled reservations. The scan is linear per property; the interface
// boundary allows swapping in an interval tree without touching callers.
//
// This is the advisory read used for queries and friendly rejections; the
// authoritative check happens inside Repository.Reserve.
type AvailabilityResolver struct {
	Bookings ActiveBookingSource
}

func (r AvailabilityResolver) IsAvailable(ctx context.Context, id property.PropertyID, dr daterange.DateRange) (bool, error) {
	if err := dr.Validate(); err != nil {
		return false, err
	}
	existing, err := r.Bookings.ActiveByProperty(ctx, id)
	if err != nil {
		return false, err
	}
	for _, b := range existing {
		if b.Range.Overlaps(dr) {
			return false, nil
		}
	}
	return true, nil
}
