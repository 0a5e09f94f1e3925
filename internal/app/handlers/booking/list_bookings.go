package booking

import (
	"context"

	"staysync/internal/app/dto"
	"staysync/internal/app/queries"
	"staysync/internal/app/uow"
)

const listBookingsKey = "booking.listByRequester"

// ListBookingsQuery returns a requester's bookings; clients use it to
// reconcile authoritative state after a realtime reconnect.
type ListBookingsQuery struct {
	RequesterID string
}

func (q ListBookingsQuery) Key() string { return listBookingsKey }

type BookingCollection struct {
	Items []dto.BookingDTO `json:"items"`
}

type ListBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListBookingsHandler) Handle(ctx context.Context, q ListBookingsQuery) (*BookingCollection, error) {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer unit.Rollback(ctx)

	items, err := unit.Bookings().ListByRequester(ctx, q.RequesterID)
	if err != nil {
		return nil, err
	}
	out := &BookingCollection{Items: make([]dto.BookingDTO, 0, len(items))}
	for _, b := range items {
		out.Items = append(out.Items, dto.MapBooking(b))
	}
	return out, nil
}

var _ queries.Handler[ListBookingsQuery, *BookingCollection] = (*ListBookingsHandler)(nil)
