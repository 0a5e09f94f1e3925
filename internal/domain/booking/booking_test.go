package booking

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/domain/pricing"
	"staysync/internal/domain/property"
	"staysync/internal/domain/settlement"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

func testRange(t *testing.T) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(
		time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.June, 4, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return dr
}

func newTestBooking(t *testing.T, requester Actor) *Booking {
	t.Helper()
	b, err := NewBooking(CreateParams{
		ID:        "bk-1",
		Property:  &property.Property{ID: "prop-1", OwnerID: "own-1", BaseNightly: money.Must(10000, "EUR")},
		Requester: requester,
		Range:     testRange(t),
		Price:     pricing.Quote{Total: money.Must(31800, "EUR"), Currency: "EUR"},
		Channel:   settlement.ChannelDirect,
		Settled:   settlement.Settlement{Total: money.Must(31800, "EUR")},
		Now:       time.Date(2026, time.May, 20, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return b
}

func TestNewBookingGuestStartsPending(t *testing.T) {
	b := newTestBooking(t, Actor{ID: "guest-1", Role: RoleGuest})
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, "guest-1", b.RequesterID)
	assert.Equal(t, "own-1", b.OwnerID)
	assert.Equal(t, "bk-1", b.Settlement.Reference)
}

func TestNewBookingAdminStartsConfirmed(t *testing.T) {
	b := newTestBooking(t, Actor{ID: "admin-1", Role: RoleAdmin})
	assert.Equal(t, StatusConfirmed, b.Status)
}

func TestNewBookingRequiresRequester(t *testing.T) {
	_, err := NewBooking(CreateParams{
		Property: &property.Property{ID: "prop-1"},
		Range:    testRange(t),
	})
	assert.ErrorIs(t, err, ErrRequesterRequired)
}

func TestNewBookingRecordsCreationEvents(t *testing.T) {
	b := newTestBooking(t, Actor{ID: "guest-1", Role: RoleGuest})
	events := b.PendingEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventBookingCreated, events[0].EventName())
	assert.Equal(t, EventAvailabilityChanged, events[1].EventName())
	assert.Equal(t, "bk-1", events[0].AggregateID())
}

func TestTransitionAdminConfirms(t *testing.T) {
	b := newTestBooking(t, Actor{ID: "guest-1", Role: RoleGuest})
	b.ClearEvents()

	now := time.Date(2026, time.May, 21, 9, 0, 0, 0, time.UTC)
	require.NoError(t, b.Transition(StatusConfirmed, Actor{ID: "admin-1", Role: RoleAdmin}, now))
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, now, b.UpdatedAt)

	events := b.PendingEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventBookingStatusChanged, events[0].EventName())
	assert.Equal(t, EventAvailabilityChanged, events[1].EventName())
}

func TestTransitionGuestCannotConfirm(t *testing.T) {
	b := newTestBooking(t, Actor{ID: "guest-1", Role: RoleGuest})
	err := b.Transition(StatusConfirmed, Actor{ID: "guest-1", Role: RoleGuest}, time.Now())
	assert.ErrorIs(t, err, ErrForbiddenTransition)
	assert.Equal(t, StatusPending, b.Status, "failed transition must not change state")
}

func TestTransitionOwnerCannotConfirm(t *testing.T) {
	b := newTestBooking(t, Actor{ID: "guest-1", Role: RoleGuest})
	err := b.Transition(StatusConfirmed, Actor{ID: "own-1", Role: RoleOwner}, time.Now())
	assert.ErrorIs(t, err, ErrForbiddenTransition)
}

func TestTransitionRequesterCancels(t *testing.T) {
	b := newTestBooking(t, Actor{ID: "guest-1", Role: RoleGuest})
	b.ClearEvents()

	require.NoError(t, b.Transition(StatusCancelled, Actor{ID: "guest-1", Role: RoleGuest}, time.Now()))
	assert.Equal(t, StatusCancelled, b.Status)

	events := b.PendingEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventBookingCancelled, events[0].EventName())
}

func TestTransitionStrangerCannotCancel(t *testing.T) {
	b := newTestBooking(t, Actor{ID: "guest-1", Role: RoleGuest})
	err := b.Transition(StatusCancelled, Actor{ID: "guest-2", Role: RoleGuest}, time.Now())
	assert.ErrorIs(t, err, ErrForbiddenTransition)
}

func TestTransitionConfirmedCancelsByAdmin(t *testing.T) {
	b := newTestBooking(t, Actor{ID: "admin-1", Role: RoleAdmin})
	require.NoError(t, b.Transition(StatusCancelled, Actor{ID: "admin-2", Role: RoleAdmin}, time.Now()))
	assert.Equal(t, StatusCancelled, b.Status)
}

func TestCancelledIsTerminal(t *testing.T) {
	b := newTestBooking(t, Actor{ID: "guest-1", Role: RoleGuest})
	require.NoError(t, b.Transition(StatusCancelled, Actor{ID: "guest-1", Role: RoleGuest}, time.Now()))

	admin := Actor{ID: "admin-1", Role: RoleAdmin}
	assert.ErrorIs(t, b.Transition(StatusPending, admin, time.Now()), ErrInvalidTransition)
	assert.ErrorIs(t, b.Transition(StatusConfirmed, admin, time.Now()), ErrInvalidTransition)
}

func TestTransitionToSameStatusIsInvalid(t *testing.T) {
	b := newTestBooking(t, Actor{ID: "guest-1", Role: RoleGuest})
	err := b.Transition(StatusPending, Actor{ID: "admin-1", Role: RoleAdmin}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" confirmed ")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, s)

	_, err = ParseStatus("archived")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestNewReservationCodeShape(t *testing.T) {
	code := NewReservationCode()
	require.Len(t, code, 12)
	assert.True(t, strings.HasPrefix(code, "RSV-"))
	assert.Equal(t, strings.ToUpper(code), code)
	assert.NotEqual(t, code, NewReservationCode())
}
