package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

func newAggregator(clock func() time.Time, rules ...Rule) *Aggregator {
	props := stubProperties{items: map[property.PropertyID]*property.Property{"prop-1": testProperty()}}
	cats := stubCategories{items: map[property.CategoryID]*property.SeasonCategory{
		"cat-1": {
			ID:      "cat-1",
			Name:    "Standard",
			LowFee:  money.Must(1200, "EUR"),
			HighFee: money.Must(1800, "EUR"),
		},
	}}
	return &Aggregator{
		Rates:      &RateResolver{Rules: stubRules{rules: rules}, Properties: props},
		Properties: props,
		Categories: cats,
		Clock:      clock,
	}
}

func TestQuoteThreeNightsHighSeason(t *testing.T) {
	clock := func() time.Time { return day(2026, time.June, 15) }
	agg := newAggregator(clock)

	dr, err := daterange.New(day(2026, time.June, 1), day(2026, time.June, 4))
	require.NoError(t, err)
	q, err := agg.Quote(context.Background(), "prop-1", dr)
	require.NoError(t, err)

	require.Len(t, q.Nights, 3)
	for _, n := range q.Nights {
		assert.Equal(t, money.Must(10000, "EUR"), n.Price)
	}
	assert.Equal(t, "high_season", q.SeasonLabel)
	assert.Equal(t, money.Must(1800, "EUR"), q.SeasonFee)
	assert.Equal(t, money.Must(31800, "EUR"), q.Total)
	assert.Equal(t, "EUR", q.Currency)
}

func TestQuoteLowSeasonUsesLowFee(t *testing.T) {
	clock := func() time.Time { return day(2026, time.January, 10) }
	agg := newAggregator(clock)

	dr, err := daterange.New(day(2026, time.June, 1), day(2026, time.June, 3))
	require.NoError(t, err)
	q, err := agg.Quote(context.Background(), "prop-1", dr)
	require.NoError(t, err)

	assert.Equal(t, "low_season", q.SeasonLabel)
	assert.Equal(t, money.Must(1200, "EUR"), q.SeasonFee)
	assert.Equal(t, money.Must(21200, "EUR"), q.Total)
}

func TestQuoteSeasonBoundaries(t *testing.T) {
	cases := []struct {
		month time.Month
		label string
	}{
		{time.March, "low_season"},
		{time.April, "high_season"},
		{time.October, "high_season"},
		{time.November, "low_season"},
	}
	for _, tc := range cases {
		agg := newAggregator(func() time.Time { return day(2026, tc.month, 15) })
		dr, err := daterange.New(day(2026, time.June, 1), day(2026, time.June, 2))
		require.NoError(t, err)
		q, err := agg.Quote(context.Background(), "prop-1", dr)
		require.NoError(t, err)
		assert.Equal(t, tc.label, q.SeasonLabel, "month %s", tc.month)
	}
}

func TestQuoteIsDeterministic(t *testing.T) {
	clock := func() time.Time { return day(2026, time.June, 15) }
	agg := newAggregator(clock)
	dr, err := daterange.New(day(2026, time.June, 1), day(2026, time.June, 4))
	require.NoError(t, err)

	first, err := agg.Quote(context.Background(), "prop-1", dr)
	require.NoError(t, err)
	second, err := agg.Quote(context.Background(), "prop-1", dr)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestQuoteMissingCategoryDegradesToZeroFee(t *testing.T) {
	prop := testProperty()
	prop.CategoryID = "cat-missing"
	agg := newAggregator(func() time.Time { return day(2026, time.June, 15) })
	agg.Properties = stubProperties{items: map[property.PropertyID]*property.Property{"prop-1": prop}}
	agg.Rates.Properties = agg.Properties

	dr, err := daterange.New(day(2026, time.June, 1), day(2026, time.June, 2))
	require.NoError(t, err)
	q, err := agg.Quote(context.Background(), "prop-1", dr)
	require.NoError(t, err)

	assert.True(t, q.SeasonFee.IsZero())
	assert.Equal(t, money.Must(10000, "EUR"), q.Total)
	assert.Equal(t, "high_season", q.SeasonLabel, "label still reported without a fee")
}

func TestQuoteRejectsUnknownProperty(t *testing.T) {
	agg := newAggregator(func() time.Time { return day(2026, time.June, 15) })
	dr, err := daterange.New(day(2026, time.June, 1), day(2026, time.June, 2))
	require.NoError(t, err)
	_, err = agg.Quote(context.Background(), "prop-nope", dr)
	assert.ErrorIs(t, err, property.ErrPropertyNotFound)
}

func TestQuoteUsesRuleOverrides(t *testing.T) {
	target := day(2026, time.December, 31)
	rule := Rule{
		ID:         "nye",
		PropertyID: "prop-1",
		Kind:       RuleDates,
		Entries:    []DateEntry{{Date: target, Price: money.Must(25000, "EUR")}},
	}
	agg := newAggregator(func() time.Time { return day(2026, time.December, 30) }, rule)

	dr, err := daterange.New(day(2026, time.December, 30), day(2027, time.January, 1))
	require.NoError(t, err)
	q, err := agg.Quote(context.Background(), "prop-1", dr)
	require.NoError(t, err)

	require.Len(t, q.Nights, 2)
	assert.Equal(t, money.Must(10000, "EUR"), q.Nights[0].Price)
	assert.Equal(t, money.Must(25000, "EUR"), q.Nights[1].Price)
	// December clock: low season.
	assert.Equal(t, money.Must(36200, "EUR"), q.Total)
}
