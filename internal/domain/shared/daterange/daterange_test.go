package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewNormalizesToMidnightUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	in := time.Date(2026, time.June, 1, 15, 30, 0, 0, loc)
	out := time.Date(2026, time.June, 4, 9, 0, 0, 0, loc)

	dr, err := New(in, out)
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.June, 1), dr.CheckIn)
	assert.Equal(t, date(2026, time.June, 4), dr.CheckOut)
	assert.Equal(t, 3, dr.Nights())
}

func TestNewRejectsInvertedOrEmptyRange(t *testing.T) {
	_, err := New(date(2026, time.June, 4), date(2026, time.June, 1))
	assert.ErrorIs(t, err, ErrInvalidRange)

	// Same-day check-in/checkout covers zero nights.
	_, err = New(date(2026, time.June, 1), date(2026, time.June, 1))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	a, err := New(date(2026, time.June, 1), date(2026, time.June, 5))
	require.NoError(t, err)

	// A back-to-back stay starting on the checkout day does not overlap.
	b, err := New(date(2026, time.June, 5), date(2026, time.June, 8))
	require.NoError(t, err)
	assert.False(t, a.Overlaps(b))
	assert.False(t, b.Overlaps(a))

	// Sharing a single night overlaps in both directions.
	c, err := New(date(2026, time.June, 4), date(2026, time.June, 6))
	require.NoError(t, err)
	assert.True(t, a.Overlaps(c))
	assert.True(t, c.Overlaps(a))

	// Full containment overlaps.
	d, err := New(date(2026, time.June, 2), date(2026, time.June, 3))
	require.NoError(t, err)
	assert.True(t, a.Overlaps(d))
}

func TestContainsDate(t *testing.T) {
	dr, err := New(date(2026, time.June, 1), date(2026, time.June, 5))
	require.NoError(t, err)
	assert.True(t, dr.ContainsDate(date(2026, time.June, 1)))
	assert.True(t, dr.ContainsDate(date(2026, time.June, 4)))
	assert.False(t, dr.ContainsDate(date(2026, time.June, 5)), "checkout day is not occupied")
	assert.False(t, dr.ContainsDate(date(2026, time.May, 31)))
}

func TestDatesEnumeratesNights(t *testing.T) {
	dr, err := New(date(2026, time.February, 27), date(2026, time.March, 2))
	require.NoError(t, err)
	dates := dr.Dates()
	require.Len(t, dates, 3)
	assert.Equal(t, date(2026, time.February, 27), dates[0])
	assert.Equal(t, date(2026, time.February, 28), dates[1])
	assert.Equal(t, date(2026, time.March, 1), dates[2])
}
