package uow

import (
	"context"

	domainbooking "staysync/internal/domain/booking"
	domainpricing "staysync/internal/domain/pricing"
	domainproperty "staysync/internal/domain/property"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Properties() domainproperty.Repository
	Categories() domainproperty.CategoryRepository
	Agents() domainproperty.AgentRepository
	PricingRules() domainpricing.RuleRepository
	Bookings() domainbooking.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
