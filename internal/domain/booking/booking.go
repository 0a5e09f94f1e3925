package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"staysync/internal/domain/pricing"
	"staysync/internal/domain/property"
	"staysync/internal/domain/settlement"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/events"
)

var (
	ErrBookingNotFound     = errors.New("booking: not found")
	ErrDateConflict        = errors.New("booking: dates conflict with an existing reservation")
	ErrVersionConflict     = errors.New("booking: concurrent update detected, re-read current state")
	ErrUnknownStatus       = errors.New("booking: unknown status")
	ErrInvalidTransition   = errors.New("booking: status transition not allowed")
	ErrForbiddenTransition = errors.New("booking: requester may not perform this transition")
	ErrRequesterRequired   = errors.New("booking: requester id required")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusCancelled:
		return StatusCancelled, nil
	}
	return "", ErrUnknownStatus
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
	RoleGuest Role = "guest"
)

// Actor identifies who requests a lifecycle change. Identity and role come
// from the external identity provider and are trusted as-is.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) admin() bool { return a.Role == RoleAdmin }

// Booking is the central aggregate: a priced, settled stay on one property.
// Bookings are never physically deleted; cancellation is a terminal status.
type Booking struct {
	ID          BookingID
	Code        string
	PropertyID  property.PropertyID
	OwnerID     string
	RequesterID string
	Range       daterange.DateRange
	Price       pricing.Quote
	Channel     settlement.Channel
	AgentName   string
	Settlement  settlement.Settlement
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	// Reserve persists a new booking only if no non-cancelled booking on the
	// same property overlaps its range. The overlap check and the insert are
	// atomic to all concurrent callers; losers get ErrDateConflict.
	Reserve(ctx context.Context, b *Booking) error
	// Save applies a status change guarded by the aggregate version; a
	// concurrent writer loses with ErrVersionConflict.
	Save(ctx context.Context, b *Booking) error
	ActiveByProperty(ctx context.Context, id property.PropertyID) ([]*Booking, error)
	ListByRequester(ctx context.Context, requesterID string) ([]*Booking, error)
}

type CreateParams struct {
	ID        BookingID
	Property  *property.Property
	Requester Actor
	Range     daterange.DateRange
	Price     pricing.Quote
	Channel   settlement.Channel
	AgentName string
	Settled   settlement.Settlement
	Now       time.Time
}

// NewBooking builds a booking in its initial state: confirmed when the
// requester holds administrative privilege, pending otherwise.
func NewBooking(params CreateParams) (*Booking, error) {
	if params.Requester.ID == "" {
		return nil, ErrRequesterRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	status := StatusPending
	if params.Requester.admin() {
		status = StatusConfirmed
	}
	now := params.Now.UTC()
	settled := params.Settled
	settled.Reference = string(params.ID)
	b := &Booking{
		ID:          params.ID,
		Code:        NewReservationCode(),
		PropertyID:  params.Property.ID,
		OwnerID:     params.Property.OwnerID,
		RequesterID: params.Requester.ID,
		Range:       params.Range,
		Price:       params.Price,
		Channel:     params.Channel,
		AgentName:   params.AgentName,
		Settlement:  settled,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.Record(BookingCreated{
		BookingID:   b.ID,
		Code:        b.Code,
		PropertyID:  b.PropertyID,
		OwnerID:     b.OwnerID,
		RequesterID: b.RequesterID,
		Range:       b.Range,
		Total:       b.Price.Total,
		Status:      b.Status,
		At:          now,
	})
	b.recordAvailabilityChanged(now)
	return b, nil
}

// actorRule decides whether an actor may drive one edge of the status graph.
type actorRule func(b *Booking, actor Actor) bool

func adminOnly(_ *Booking, actor Actor) bool { return actor.admin() }

func adminOrRequester(b *Booking, actor Actor) bool {
	return actor.admin() || (actor.ID != "" && actor.ID == b.RequesterID)
}

type edge struct {
	from Status
	to   Status
}

// transitionTable is the whole authorization policy for status changes.
// Edges absent from the table are invalid; cancelled has no outgoing edges.
var transitionTable = map[edge]actorRule{
	{StatusPending, StatusConfirmed}:   adminOnly,
	{StatusPending, StatusCancelled}:   adminOrRequester,
	{StatusConfirmed, StatusCancelled}: adminOrRequester,
}

// Transition moves the booking to the requested status on behalf of the actor.
func (b *Booking) Transition(to Status, actor Actor, now time.Time) error {
	rule, ok := transitionTable[edge{from: b.Status, to: to}]
	if !ok {
		return ErrInvalidTransition
	}
	if !rule(b, actor) {
		return ErrForbiddenTransition
	}
	from := b.Status
	b.Status = to
	b.UpdatedAt = now.UTC()
	if to == StatusCancelled {
		b.Record(BookingCancelled{
			BookingID:   b.ID,
			PropertyID:  b.PropertyID,
			OwnerID:     b.OwnerID,
			RequesterID: b.RequesterID,
			Range:       b.Range,
			ByID:        actor.ID,
			At:          b.UpdatedAt,
		})
	} else {
		b.Record(BookingStatusChanged{
			BookingID:   b.ID,
			PropertyID:  b.PropertyID,
			OwnerID:     b.OwnerID,
			RequesterID: b.RequesterID,
			From:        from,
			To:          to,
			ByID:        actor.ID,
			At:          b.UpdatedAt,
		})
	}
	b.recordAvailabilityChanged(b.UpdatedAt)
	return nil
}

// Availability is derived from booking state, so every lifecycle event is
// accompanied by a property-scoped availability notice.
func (b *Booking) recordAvailabilityChanged(now time.Time) {
	b.Record(AvailabilityChanged{
		BookingID:   b.ID,
		PropertyID:  b.PropertyID,
		OwnerID:     b.OwnerID,
		RequesterID: b.RequesterID,
		Range:       b.Range,
		At:          now,
	})
}

// NewReservationCode produces the short human-presentable code printed on
// confirmations, distinct from the internal booking id.
func NewReservationCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "RSV-" + raw[:8]
}
