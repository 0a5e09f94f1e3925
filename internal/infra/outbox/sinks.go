package outbox

import (
	"context"
	"encoding/json"
	"strings"

	"staysync/internal/app/policies"
	"staysync/internal/app/uow"
	domainbooking "staysync/internal/domain/booking"
	"staysync/internal/realtime"
)

// eventScope is the subset of every event payload the hub needs to decide
// visibility.
type eventScope struct {
	BookingID   string `json:"booking_id"`
	PropertyID  string `json:"property_id"`
	OwnerID     string `json:"owner_id"`
	RequesterID string `json:"requester_id"`
	To          string `json:"to"`
	Status      string `json:"status"`
}

// HubSink pushes outbox records to connected realtime sessions. The record id
// becomes the event id, so a redelivered record is client-dedupable.
type HubSink struct {
	Hub *realtime.Hub
}

func (s HubSink) Deliver(ctx context.Context, doc *EventDocument) error {
	var scope eventScope
	if err := json.Unmarshal(doc.Payload, &scope); err != nil {
		return err
	}
	s.Hub.Publish(realtime.Event{
		ID:          doc.ID,
		Type:        doc.Name,
		BookingID:   scope.BookingID,
		PropertyID:  scope.PropertyID,
		OwnerID:     scope.OwnerID,
		RequesterID: scope.RequesterID,
		Payload:     json.RawMessage(doc.Payload),
		At:          doc.OccurredAt,
	})
	return nil
}

// InvoicingSink notifies the invoicing collaborator when a booking reaches
// CONFIRMED. The port is idempotent per booking id, so redelivery is safe.
type InvoicingSink struct {
	UoWFactory uow.UoWFactory
	Invoicing  policies.InvoicingPort
}

func (s InvoicingSink) Deliver(ctx context.Context, doc *EventDocument) error {
	if !confirmedBy(doc) {
		return nil
	}
	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return err
	}
	defer unit.Rollback(ctx)

	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(doc.Aggregate))
	if err != nil {
		return err
	}
	return s.Invoicing.EmitSettlement(ctx, string(b.ID), b.Settlement)
}

func confirmedBy(doc *EventDocument) bool {
	var scope eventScope
	if err := json.Unmarshal(doc.Payload, &scope); err != nil {
		return false
	}
	switch doc.Name {
	case domainbooking.EventBookingCreated:
		return scope.Status == string(domainbooking.StatusConfirmed)
	case domainbooking.EventBookingStatusChanged:
		return scope.To == string(domainbooking.StatusConfirmed)
	}
	return false
}

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// CloudEventsSink ships records to the broker as CloudEvents 1.0 envelopes.
type CloudEventsSink struct {
	Producer    Producer
	TopicPrefix string
	Source      string
}

func (s CloudEventsSink) Deliver(ctx context.Context, doc *EventDocument) error {
	data := map[string]any{}
	if err := json.Unmarshal(doc.Payload, &data); err != nil {
		return err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              doc.ID,
		"type":            doc.Name + ".v1",
		"source":          s.source(),
		"time":            doc.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	if trace, ok := doc.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
	}
	for k, v := range doc.Headers {
		headers[k] = v
	}
	return s.Producer.Publish(ctx, s.topicFor(doc.Name), doc.Aggregate, payload, headers)
}

func (s CloudEventsSink) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	topic := base + ".events.v1"
	if s.TopicPrefix != "" {
		topic = s.TopicPrefix + topic
	}
	return topic
}

func (s CloudEventsSink) source() string {
	if s.Source != "" {
		return s.Source
	}
	return "app://staysync"
}
