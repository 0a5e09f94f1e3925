package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope pushed to subscribed sessions. The scope fields let
// the hub decide visibility at delivery time; Payload carries the serialized
// domain event for the client.
type Event struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	BookingID   string          `json:"booking_id"`
	PropertyID  string          `json:"property_id"`
	OwnerID     string          `json:"-"`
	RequesterID string          `json:"-"`
	Payload     json.RawMessage `json:"payload"`
	At          time.Time       `json:"at"`
}

// SessionInfo is what the identity provider asserts about a connection.
type SessionInfo struct {
	Identity        string
	Role            string
	OwnedProperties []string
}

const (
	RoleAdmin = "admin"
	RoleOwner = "owner"
)

type session struct {
	id    string
	info  SessionInfo
	types map[string]bool
	ch    chan Event
}

// Subscription is the consumer side of one session.
type Subscription struct {
	hub *Hub
	id  string
	ch  chan Event
}

// Events is the per-subscription delivery stream. Events arrive in publish
// order for this session; there is no cross-session ordering guarantee.
func (s *Subscription) Events() <-chan Event { return s.ch }

func (s *Subscription) Close() { s.hub.remove(s.id) }

// Hub is the session registry and fan-out point. It is an explicit injectable
// object, safe for concurrent publish from many request handlers; a slow
// consumer only loses its own events, it never delays delivery to others.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	buffer   int
	logger   *slog.Logger
	dropped  atomic.Uint64
}

func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{
		sessions: make(map[string]*session),
		buffer:   buffer,
		logger:   logger,
	}
}

// Subscribe registers a session for the given event types; no types means all.
func (h *Hub) Subscribe(info SessionInfo, types ...string) *Subscription {
	s := &session{
		id:   uuid.NewString(),
		info: info,
		ch:   make(chan Event, h.buffer),
	}
	if len(types) > 0 {
		s.types = make(map[string]bool, len(types))
		for _, t := range types {
			s.types[t] = true
		}
	}
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	return &Subscription{hub: h, id: s.id, ch: s.ch}
}

// UpdateSession replaces a session's asserted identity/role. Because scoping
// happens at delivery time, a privilege downgrade takes effect immediately.
func (h *Hub) UpdateSession(sub *Subscription, info SessionInfo) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	if s, ok := h.sessions[sub.id]; ok {
		s.info = info
	}
	h.mu.Unlock()
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	h.mu.Unlock()
	if ok {
		close(s.ch)
	}
}

// SessionCount reports currently connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Dropped reports how many events were discarded on full session buffers.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Publish fans the event out to every session allowed to see it. Delivery is
// at-most-once and best-effort: a session whose buffer is full has the event
// dropped, and clients reconcile by re-fetching state after reconnect.
func (h *Hub) Publish(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	// Sends stay under the read lock: remove closes a session channel only
	// while holding the write lock, so a send can never race the close. The
	// sends are non-blocking, so the lock is held only briefly.
	h.mu.RLock()
	var slow []string
	for _, s := range h.sessions {
		if !s.allowed(ev) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			h.dropped.Add(1)
			slow = append(slow, s.info.Identity)
		}
	}
	h.mu.RUnlock()

	if h.logger != nil {
		for _, identity := range slow {
			h.logger.Warn("realtime event dropped, slow consumer",
				"event_id", ev.ID, "type", ev.Type, "identity", identity)
		}
	}
}

func (s *session) allowed(ev Event) bool {
	if s.types != nil && !s.types[ev.Type] {
		return false
	}
	switch s.info.Role {
	case RoleAdmin:
		return true
	case RoleOwner:
		if s.info.Identity != "" && s.info.Identity == ev.OwnerID {
			return true
		}
		for _, p := range s.info.OwnedProperties {
			if p == ev.PropertyID {
				return true
			}
		}
		return false
	default:
		return s.info.Identity != "" && s.info.Identity == ev.RequesterID
	}
}
