package pricing

import (
	"context"
	"errors"
	"time"

	"staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

var ErrEmptyStay = errors.New("pricing: stay must cover at least one night")

const (
	highSeasonLabel = "high_season"
	lowSeasonLabel  = "low_season"

	highSeasonFrom = time.April
	highSeasonTo   = time.October
)

type NightLine struct {
	Date  time.Time
	Price money.Money
}

// Quote is a priced stay: one line per occupied night plus a single labeled
// seasonal fee line. Total is the exact sum of both; no currency conversion
// happens, every amount shares the property's configured currency.
type Quote struct {
	PropertyID  property.PropertyID
	Range       daterange.DateRange
	Nights      []NightLine
	SeasonLabel string
	SeasonFee   money.Money
	Total       money.Money
	Currency    string
}

// Aggregator composes the rate resolver and the seasonal fee over a stay.
//
// The season is decided from the current calendar date, not the stay's
// check-in month. That mirrors the billing behavior this engine replaces;
// Clock keeps it injectable.
type Aggregator struct {
	Rates      *RateResolver
	Properties property.Repository
	Categories property.CategoryRepository
	Clock      func() time.Time
}

func (a *Aggregator) Quote(ctx context.Context, id property.PropertyID, dr daterange.DateRange) (Quote, error) {
	if err := dr.Validate(); err != nil {
		return Quote{}, err
	}
	if dr.Nights() <= 0 {
		return Quote{}, ErrEmptyStay
	}
	prop, err := a.Properties.ByID(ctx, id)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{
		PropertyID: id,
		Range:      dr,
		Currency:   prop.BaseNightly.Currency,
	}
	total := money.Money{Amount: 0, Currency: q.Currency}
	for _, date := range dr.Dates() {
		price, err := a.Rates.NightlyRate(ctx, id, date)
		if err != nil {
			return Quote{}, err
		}
		q.Nights = append(q.Nights, NightLine{Date: date, Price: price})
		if total, err = total.Add(price); err != nil {
			return Quote{}, err
		}
	}

	label, fee := a.seasonFee(ctx, prop)
	q.SeasonLabel = label
	q.SeasonFee = fee
	if !fee.IsZero() {
		if total, err = total.Add(fee); err != nil {
			return Quote{}, err
		}
	}
	q.Total = total
	return q, nil
}

// seasonFee resolves the one-per-stay surcharge. A property without a matching
// category degrades to a zero fee instead of failing the quote.
func (a *Aggregator) seasonFee(ctx context.Context, prop *property.Property) (string, money.Money) {
	label := lowSeasonLabel
	month := a.now().UTC().Month()
	if month >= highSeasonFrom && month <= highSeasonTo {
		label = highSeasonLabel
	}
	if prop.CategoryID == "" || a.Categories == nil {
		return label, money.Money{Amount: 0, Currency: prop.BaseNightly.Currency}
	}
	category, err := a.Categories.ByID(ctx, prop.CategoryID)
	if err != nil {
		return label, money.Money{Amount: 0, Currency: prop.BaseNightly.Currency}
	}
	fee := category.LowFee
	if label == highSeasonLabel {
		fee = category.HighFee
	}
	if fee.Currency == "" {
		fee.Currency = prop.BaseNightly.Currency
	}
	return label, fee
}

func (a *Aggregator) now() time.Time {
	if a.Clock != nil {
		return a.Clock()
	}
	return time.Now()
}
