package booking

import (
	"context"
	"time"

	"staysync/internal/app/dto"
	"staysync/internal/app/queries"
	"staysync/internal/app/uow"
	domainpricing "staysync/internal/domain/pricing"
	domainproperty "staysync/internal/domain/property"
	domainrange "staysync/internal/domain/shared/daterange"
)

const quoteStayKey = "booking.quote"

type QuoteStayQuery struct {
	PropertyID string
	CheckIn    time.Time
	CheckOut   time.Time
}

func (q QuoteStayQuery) Key() string { return quoteStayKey }

// QuoteStayHandler prices a candidate stay without reserving anything.
type QuoteStayHandler struct {
	UoWFactory uow.UoWFactory
	Clock      func() time.Time
}

func (h *QuoteStayHandler) Handle(ctx context.Context, q QuoteStayQuery) (*dto.QuoteDTO, error) {
	dr, err := domainrange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return nil, err
	}
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer unit.Rollback(ctx)

	aggregator := &domainpricing.Aggregator{
		Rates:      &domainpricing.RateResolver{Rules: unit.PricingRules(), Properties: unit.Properties()},
		Properties: unit.Properties(),
		Categories: unit.Categories(),
		Clock:      h.Clock,
	}
	quote, err := aggregator.Quote(ctx, domainproperty.PropertyID(q.PropertyID), dr)
	if err != nil {
		return nil, err
	}
	result := dto.MapQuote(quote)
	return &result, nil
}

var _ queries.Handler[QuoteStayQuery, *dto.QuoteDTO] = (*QuoteStayHandler)(nil)
