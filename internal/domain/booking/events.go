package booking

import (
	"time"

	"staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

const (
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.statusChanged"
	EventBookingCancelled     = "booking.cancelled"
	EventAvailabilityChanged  = "property.availabilityChanged"
)

type BookingCreated struct {
	BookingID   BookingID           `json:"booking_id"`
	Code        string              `json:"reservation_code"`
	PropertyID  property.PropertyID `json:"property_id"`
	OwnerID     string              `json:"owner_id"`
	RequesterID string              `json:"requester_id"`
	Range       daterange.DateRange `json:"range"`
	Total       money.Money         `json:"total"`
	Status      Status              `json:"status"`
	At          time.Time           `json:"at"`
}

func (e BookingCreated) EventName() string     { return EventBookingCreated }
func (e BookingCreated) AggregateID() string   { return string(e.BookingID) }
func (e BookingCreated) OccurredAt() time.Time { return e.At }

type BookingStatusChanged struct {
	BookingID   BookingID           `json:"booking_id"`
	PropertyID  property.PropertyID `json:"property_id"`
	OwnerID     string              `json:"owner_id"`
	RequesterID string              `json:"requester_id"`
	From        Status              `json:"from"`
	To          Status              `json:"to"`
	ByID        string              `json:"by_id"`
	At          time.Time           `json:"at"`
}

func (e BookingStatusChanged) EventName() string     { return EventBookingStatusChanged }
func (e BookingStatusChanged) AggregateID() string   { return string(e.BookingID) }
func (e BookingStatusChanged) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID   BookingID           `json:"booking_id"`
	PropertyID  property.PropertyID `json:"property_id"`
	OwnerID     string              `json:"owner_id"`
	RequesterID string              `json:"requester_id"`
	Range       daterange.DateRange `json:"range"`
	ByID        string              `json:"by_id"`
	At          time.Time           `json:"at"`
}

func (e BookingCancelled) EventName() string     { return EventBookingCancelled }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type AvailabilityChanged struct {
	BookingID   BookingID           `json:"booking_id"`
	PropertyID  property.PropertyID `json:"property_id"`
	OwnerID     string              `json:"owner_id"`
	RequesterID string              `json:"requester_id"`
	Range       daterange.DateRange `json:"range"`
	At          time.Time           `json:"at"`
}

func (e AvailabilityChanged) EventName() string     { return EventAvailabilityChanged }
func (e AvailabilityChanged) AggregateID() string   { return string(e.BookingID) }
func (e AvailabilityChanged) OccurredAt() time.Time { return e.At }
