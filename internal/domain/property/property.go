package property

import (
	"context"
	"errors"

	"staysync/internal/domain/shared/money"
)

var (
	ErrPropertyNotFound = errors.New("property: not found")
	ErrCategoryNotFound = errors.New("property: season category not found")
	ErrAgentNotFound    = errors.New("property: booking agent not found")
)

type PropertyID string

type CategoryID string

// Property is the read model of a rentable unit. Identity is immutable; rates
// and category assignment are maintained by the administration collaborators
// and only read here.
type Property struct {
	ID          PropertyID
	OwnerID     string
	Name        string
	BaseNightly money.Money
	CategoryID  CategoryID
	Capacity    int
}

// SeasonCategory carries the additive per-stay fees for a tariff, one of which
// applies once per booking depending on the season.
type SeasonCategory struct {
	ID       CategoryID
	Name     string
	LowFee   money.Money
	HighFee  money.Money
	Currency string
}

// BookingAgent is referenced by bookings placed through a named agent; its
// commission percentage overrides the channel table.
type BookingAgent struct {
	Name              string
	CommissionPercent float64
}

type Repository interface {
	ByID(ctx context.Context, id PropertyID) (*Property, error)
}

type CategoryRepository interface {
	ByID(ctx context.Context, id CategoryID) (*SeasonCategory, error)
}

type AgentRepository interface {
	ByName(ctx context.Context, name string) (*BookingAgent, error)
}
