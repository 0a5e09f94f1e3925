package booking

import (
	"context"

	"staysync/internal/app/dto"
	"staysync/internal/app/queries"
	"staysync/internal/app/uow"
	domainbooking "staysync/internal/domain/booking"
)

const getSettlementKey = "booking.settlement"

type GetSettlementQuery struct {
	BookingID string
}

func (q GetSettlementQuery) Key() string { return getSettlementKey }

// GetSettlementHandler exposes the stable booking → settlement snapshot
// lookup consumed by the invoicing collaborator.
type GetSettlementHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetSettlementHandler) Handle(ctx context.Context, q GetSettlementQuery) (*dto.SettlementDTO, error) {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer unit.Rollback(ctx)

	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return nil, err
	}
	result := dto.MapSettlement(b.Settlement)
	return &result, nil
}

var _ queries.Handler[GetSettlementQuery, *dto.SettlementDTO] = (*GetSettlementHandler)(nil)
