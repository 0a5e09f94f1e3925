package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/app/commands"
	"staysync/internal/app/middleware"
	"staysync/internal/app/uow"
	domainbooking "staysync/internal/domain/booking"
	domainproperty "staysync/internal/domain/property"
	"staysync/internal/domain/shared/money"
	infraoutbox "staysync/internal/infra/outbox"
	"staysync/internal/infra/storage/memory"
)

type testEnv struct {
	factory memory.Factory
	outbox  *memory.OutboxStore
}

func juneClock() time.Time {
	return time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	ctx := context.Background()

	properties := memory.NewPropertyRepository()
	categories := memory.NewCategoryRepository()
	agents := memory.NewAgentRepository()
	rules := memory.NewRuleRepository()

	require.NoError(t, categories.Save(ctx, &domainproperty.SeasonCategory{
		ID:      "cat-standard",
		Name:    "Standard",
		LowFee:  money.Must(1200, "EUR"),
		HighFee: money.Must(1800, "EUR"),
	}))
	require.NoError(t, agents.Save(ctx, &domainproperty.BookingAgent{
		Name:              "coastal travel",
		CommissionPercent: 10,
	}))
	require.NoError(t, properties.Save(ctx, &domainproperty.Property{
		ID:          "prop-1",
		OwnerID:     "own-1",
		Name:        "Villa Aurora",
		BaseNightly: money.Must(10000, "EUR"),
		CategoryID:  "cat-standard",
		Capacity:    6,
	}))

	return testEnv{
		factory: memory.Factory{
			PropertiesRepo: properties,
			CategoriesRepo: categories,
			AgentsRepo:     agents,
			RulesRepo:      rules,
			BookingsRepo:   memory.NewBookingRepository(),
		},
		outbox: memory.NewOutboxStore(),
	}
}

func (e testEnv) reserveHandler() *ReserveStayHandler {
	return &ReserveStayHandler{
		UoWFactory: e.factory,
		Clock:      juneClock,
		Outbox:     e.outbox,
	}
}

func (e testEnv) statusHandler() *ChangeStatusHandler {
	// Advances per call so repeated lifecycle events get distinct delivery keys.
	step := 0
	return &ChangeStatusHandler{
		UoWFactory: e.factory,
		Clock: func() time.Time {
			step++
			return juneClock().Add(time.Duration(step) * time.Minute)
		},
		Outbox: e.outbox,
	}
}

func (e testEnv) drainOutbox(t *testing.T) []*infraoutbox.EventDocument {
	t.Helper()
	var docs []*infraoutbox.EventDocument
	for {
		doc, err := e.outbox.Claim(context.Background(), "test")
		require.NoError(t, err)
		if doc == nil {
			return docs
		}
		docs = append(docs, doc)
	}
}

func reserveCommand(id string) ReserveStayCommand {
	return ReserveStayCommand{
		CommandID:   id,
		PropertyID:  "prop-1",
		RequesterID: "guest-1",
		Role:        "guest",
		CheckIn:     time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:    time.Date(2026, time.June, 4, 0, 0, 0, 0, time.UTC),
		Channel:     "booking.com",
	}
}

func TestReserveStayPricesAndSettles(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.reserveHandler().Handle(context.Background(), reserveCommand("bk-1"))
	require.NoError(t, err)

	assert.Equal(t, "bk-1", res.BookingID)
	assert.Equal(t, string(domainbooking.StatusPending), res.Status)
	assert.NotEmpty(t, res.ReservationCode)

	// 3 nights x 100.00 EUR plus the 18.00 high season surcharge.
	assert.Equal(t, int64(31800), res.Settlement.Total.Amount)
	assert.Equal(t, float64(15), res.Settlement.CommissionPercent)
	assert.Equal(t, int64(4770), res.Settlement.Commission.Amount)
	assert.Equal(t, int64(27030), res.Settlement.Net.Amount)
	assert.Equal(t, "bk-1", res.Settlement.Reference)
}

func TestReserveStayAdminIsConfirmedImmediately(t *testing.T) {
	env := newTestEnv(t)
	cmd := reserveCommand("bk-1")
	cmd.RequesterID = "admin-1"
	cmd.Role = "admin"

	res, err := env.reserveHandler().Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusConfirmed), res.Status)
}

func TestReserveStayAgentOverridesChannelCommission(t *testing.T) {
	env := newTestEnv(t)
	cmd := reserveCommand("bk-1")
	cmd.AgentName = "coastal travel"

	res, err := env.reserveHandler().Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, float64(10), res.Settlement.CommissionPercent)
	assert.Equal(t, int64(3180), res.Settlement.Commission.Amount)
}

func TestReserveStayRejectsOverlap(t *testing.T) {
	env := newTestEnv(t)
	h := env.reserveHandler()
	_, err := h.Handle(context.Background(), reserveCommand("bk-1"))
	require.NoError(t, err)

	second := reserveCommand("bk-2")
	second.RequesterID = "guest-2"
	second.CheckIn = time.Date(2026, time.June, 3, 0, 0, 0, 0, time.UTC)
	second.CheckOut = time.Date(2026, time.June, 6, 0, 0, 0, 0, time.UTC)
	_, err = h.Handle(context.Background(), second)
	assert.ErrorIs(t, err, domainbooking.ErrDateConflict)
}

func TestReserveStayRejectsUnknownProperty(t *testing.T) {
	env := newTestEnv(t)
	cmd := reserveCommand("bk-1")
	cmd.PropertyID = "prop-nope"
	_, err := env.reserveHandler().Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, domainproperty.ErrPropertyNotFound)
}

func TestReserveStayQueuesLifecycleEvents(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.reserveHandler().Handle(context.Background(), reserveCommand("bk-1"))
	require.NoError(t, err)

	docs := env.drainOutbox(t)
	require.Len(t, docs, 2)
	assert.Equal(t, domainbooking.EventBookingCreated, docs[0].Name)
	assert.Equal(t, domainbooking.EventAvailabilityChanged, docs[1].Name)
	assert.Equal(t, "bk-1", docs[0].Aggregate)
	// Stable per-event ids make redelivery detectable downstream.
	assert.Contains(t, docs[0].ID, "bk-1:"+domainbooking.EventBookingCreated)
}

func TestChangeStatusConfirmAndCancel(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.reserveHandler().Handle(context.Background(), reserveCommand("bk-1"))
	require.NoError(t, err)
	env.drainOutbox(t)

	h := env.statusHandler()
	res, err := h.Handle(context.Background(), ChangeStatusCommand{
		BookingID:       "bk-1",
		RequestedStatus: "confirmed",
		RequesterID:     "admin-1",
		Role:            "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusConfirmed), res.Status)

	res, err = h.Handle(context.Background(), ChangeStatusCommand{
		BookingID:       "bk-1",
		RequestedStatus: "cancelled",
		RequesterID:     "guest-1",
		Role:            "guest",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusCancelled), res.Status)

	docs := env.drainOutbox(t)
	require.Len(t, docs, 4)
	assert.Equal(t, domainbooking.EventBookingStatusChanged, docs[0].Name)
	assert.Equal(t, domainbooking.EventBookingCancelled, docs[2].Name)
}

func TestChangeStatusForbiddenForGuestConfirm(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.reserveHandler().Handle(context.Background(), reserveCommand("bk-1"))
	require.NoError(t, err)

	_, err = env.statusHandler().Handle(context.Background(), ChangeStatusCommand{
		BookingID:       "bk-1",
		RequestedStatus: "confirmed",
		RequesterID:     "guest-1",
		Role:            "guest",
	})
	assert.ErrorIs(t, err, domainbooking.ErrForbiddenTransition)
}

func TestChangeStatusUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.reserveHandler().Handle(context.Background(), reserveCommand("bk-1"))
	require.NoError(t, err)

	_, err = env.statusHandler().Handle(context.Background(), ChangeStatusCommand{
		BookingID:       "bk-1",
		RequestedStatus: "archived",
		RequesterID:     "admin-1",
		Role:            "admin",
	})
	assert.ErrorIs(t, err, domainbooking.ErrUnknownStatus)
}

func TestReserveStayIdempotentRetryThroughPipeline(t *testing.T) {
	env := newTestEnv(t)

	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, ReserveStayCommand{}.Key(), env.reserveHandler())
	piped := middleware.ChainCommands(
		bus,
		middleware.Idempotency(memory.NewIdempotencyStore(), nil),
		middleware.Transaction(env.factory, nil),
		middleware.OutboxFlush(env.outbox),
	)

	cmd := reserveCommand("bk-1")
	cmd.IdempotencyKeyV = "retry-key-1"

	first, err := commands.Dispatch[ReserveStayCommand, *ReserveStayResult](context.Background(), piped, cmd)
	require.NoError(t, err)

	// Same key replays the recorded result instead of re-reserving.
	cmd.CommandID = "bk-2"
	second, err := commands.Dispatch[ReserveStayCommand, *ReserveStayResult](context.Background(), piped, cmd)
	require.NoError(t, err)
	assert.Equal(t, first.BookingID, second.BookingID)
	assert.Equal(t, first.ReservationCode, second.ReservationCode)

	unit, err := env.factory.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer unit.Rollback(context.Background())
	active, err := unit.Bookings().ActiveByProperty(context.Background(), "prop-1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestGetSettlementQuery(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.reserveHandler().Handle(context.Background(), reserveCommand("bk-1"))
	require.NoError(t, err)

	q := &GetSettlementHandler{UoWFactory: env.factory}
	s, err := q.Handle(context.Background(), GetSettlementQuery{BookingID: res.BookingID})
	require.NoError(t, err)
	assert.Equal(t, res.Settlement, *s)

	_, err = q.Handle(context.Background(), GetSettlementQuery{BookingID: "bk-nope"})
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
}

func TestListBookingsQuery(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.reserveHandler().Handle(context.Background(), reserveCommand("bk-1"))
	require.NoError(t, err)

	h := &ListBookingsHandler{UoWFactory: env.factory}
	mine, err := h.Handle(context.Background(), ListBookingsQuery{RequesterID: "guest-1"})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "bk-1", mine.Items[0].ID)
}
