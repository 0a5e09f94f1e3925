package memory

import (
	"context"
	"errors"

	"staysync/internal/app/uow"
	domainbooking "staysync/internal/domain/booking"
	domainpricing "staysync/internal/domain/pricing"
	domainproperty "staysync/internal/domain/property"
)

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	PropertiesRepo domainproperty.Repository
	CategoriesRepo domainproperty.CategoryRepository
	AgentsRepo     domainproperty.AgentRepository
	RulesRepo      domainpricing.RuleRepository
	BookingsRepo   domainbooking.Repository
}

// Begin starts a lightweight transaction boundary. No isolation is provided but
// the abstraction matches the application ports.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.PropertiesRepo == nil || f.CategoriesRepo == nil || f.AgentsRepo == nil || f.RulesRepo == nil || f.BookingsRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		properties: f.PropertiesRepo,
		categories: f.CategoriesRepo,
		agents:     f.AgentsRepo,
		rules:      f.RulesRepo,
		bookings:   f.BookingsRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	properties domainproperty.Repository
	categories domainproperty.CategoryRepository
	agents     domainproperty.AgentRepository
	rules      domainpricing.RuleRepository
	bookings   domainbooking.Repository
}

func (u *Unit) Properties() domainproperty.Repository {
	return u.properties
}

func (u *Unit) Categories() domainproperty.CategoryRepository {
	return u.categories
}

func (u *Unit) Agents() domainproperty.AgentRepository {
	return u.agents
}

func (u *Unit) PricingRules() domainpricing.RuleRepository {
	return u.rules
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.bookings
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}

var _ uow.UoWFactory = (Factory{})
