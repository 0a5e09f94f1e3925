package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "staysync/internal/domain/booking"
	domainproperty "staysync/internal/domain/property"
	domainrange "staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
	"staysync/internal/infra/storage/memory"
)

func day(d int) time.Time {
	return time.Date(2026, time.June, d, 0, 0, 0, 0, time.UTC)
}

func stay(t *testing.T, inDay, outDay int) domainrange.DateRange {
	t.Helper()
	dr, err := domainrange.New(day(inDay), day(outDay))
	require.NoError(t, err)
	return dr
}

func seededFactory(t *testing.T) memory.Factory {
	t.Helper()
	properties := memory.NewPropertyRepository()
	require.NoError(t, properties.Save(context.Background(), &domainproperty.Property{
		ID:          "prop-1",
		OwnerID:     "own-1",
		Name:        "Villa Aurora",
		BaseNightly: money.Must(10000, "EUR"),
	}))
	return memory.Factory{
		PropertiesRepo: properties,
		CategoriesRepo: memory.NewCategoryRepository(),
		AgentsRepo:     memory.NewAgentRepository(),
		RulesRepo:      memory.NewRuleRepository(),
		BookingsRepo:   memory.NewBookingRepository(),
	}
}

func reserveStay(t *testing.T, factory memory.Factory, id string, inDay, outDay int) {
	t.Helper()
	now := time.Now().UTC()
	b := &domainbooking.Booking{
		ID:          domainbooking.BookingID(id),
		PropertyID:  "prop-1",
		RequesterID: "guest-1",
		Range:       stay(t, inDay, outDay),
		Status:      domainbooking.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, factory.BookingsRepo.Reserve(context.Background(), b))
}

func TestCheckReportsFreeAndTakenRanges(t *testing.T) {
	ctx := context.Background()
	factory := seededFactory(t)
	reserveStay(t, factory, "bk-1", 10, 15)
	h := &CheckHandler{UoWFactory: factory}

	free, err := h.Handle(ctx, CheckQuery{PropertyID: "prop-1", CheckIn: day(1), CheckOut: day(4)})
	require.NoError(t, err)
	assert.True(t, free.Available)

	taken, err := h.Handle(ctx, CheckQuery{PropertyID: "prop-1", CheckIn: day(12), CheckOut: day(18)})
	require.NoError(t, err)
	assert.False(t, taken.Available)

	// Checkout day is exclusive, so a stay starting on it does not collide.
	backToBack, err := h.Handle(ctx, CheckQuery{PropertyID: "prop-1", CheckIn: day(15), CheckOut: day(20)})
	require.NoError(t, err)
	assert.True(t, backToBack.Available)
}

func TestCheckNormalizesReturnedRange(t *testing.T) {
	factory := seededFactory(t)
	h := &CheckHandler{UoWFactory: factory}

	cet := time.FixedZone("CET", 3600)
	res, err := h.Handle(context.Background(), CheckQuery{
		PropertyID: "prop-1",
		CheckIn:    time.Date(2026, time.June, 1, 14, 30, 0, 0, cet),
		CheckOut:   time.Date(2026, time.June, 4, 9, 0, 0, 0, cet),
	})
	require.NoError(t, err)
	assert.Equal(t, day(1), res.CheckIn)
	assert.Equal(t, day(4), res.CheckOut)
}

func TestCheckUnknownProperty(t *testing.T) {
	factory := seededFactory(t)
	h := &CheckHandler{UoWFactory: factory}

	_, err := h.Handle(context.Background(), CheckQuery{PropertyID: "prop-nope", CheckIn: day(1), CheckOut: day(2)})
	assert.ErrorIs(t, err, domainproperty.ErrPropertyNotFound)
}

func TestCheckInvalidRange(t *testing.T) {
	factory := seededFactory(t)
	h := &CheckHandler{UoWFactory: factory}

	_, err := h.Handle(context.Background(), CheckQuery{PropertyID: "prop-1", CheckIn: day(4), CheckOut: day(1)})
	assert.Error(t, err)
}
