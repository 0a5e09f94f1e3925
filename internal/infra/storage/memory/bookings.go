package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	domainbooking "staysync/internal/domain/booking"
	domainproperty "staysync/internal/domain/property"
)

// BookingRepository stores bookings in memory. Reservation writes serialize on
// a per-property lock so the overlap check and the insert are one atomic step,
// while bookings on different properties proceed in parallel.
type BookingRepository struct {
	mu       sync.RWMutex
	items    map[domainbooking.BookingID]*domainbooking.Booking
	propLock map[domainproperty.PropertyID]*sync.Mutex
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		items:    make(map[domainbooking.BookingID]*domainbooking.Booking),
		propLock: make(map[domainproperty.PropertyID]*sync.Mutex),
	}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) Reserve(ctx context.Context, b *domainbooking.Booking) error {
	lock := r.lockFor(b.PropertyID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	conflict := false
	for _, existing := range r.items {
		if existing.PropertyID != b.PropertyID || existing.Status == domainbooking.StatusCancelled {
			continue
		}
		if existing.Range.Overlaps(b.Range) {
			conflict = true
			break
		}
	}
	r.mu.RUnlock()
	if conflict {
		return domainbooking.ErrDateConflict
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[b.ID]; exists {
		return errors.New("memory: booking id already taken")
	}
	b.Version = 1
	r.items[b.ID] = cloneBooking(b)
	return nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[b.ID]
	if !ok {
		return domainbooking.ErrBookingNotFound
	}
	if current.Version != b.Version {
		return domainbooking.ErrVersionConflict
	}
	b.Version++
	r.items[b.ID] = cloneBooking(b)
	return nil
}

func (r *BookingRepository) ActiveByProperty(ctx context.Context, id domainproperty.PropertyID) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if b.PropertyID != id || b.Status == domainbooking.StatusCancelled {
			continue
		}
		matches = append(matches, cloneBooking(b))
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Range.CheckIn.Before(matches[j].Range.CheckIn)
	})
	return matches, nil
}

func (r *BookingRepository) ListByRequester(ctx context.Context, requesterID string) ([]*domainbooking.Booking, error) {
	id := strings.TrimSpace(requesterID)
	if id == "" {
		return nil, errors.New("memory: requester id required")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if b.RequesterID == id {
			matches = append(matches, cloneBooking(b))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func (r *BookingRepository) lockFor(id domainproperty.PropertyID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lock, ok := r.propLock[id]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	r.propLock[id] = lock
	return lock
}

// cloneBooking snapshots the aggregate so callers cannot mutate stored state
// behind the version guard.
func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	cp := *b
	cp.ClearEvents()
	return &cp
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
