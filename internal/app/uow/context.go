package uow

import (
	"context"
	"errors"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

type ctxKey struct{}

// ContextWithUnitOfWork attaches the unit so downstream handlers join the
// ambient transaction instead of opening their own.
func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	if unit == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, unit)
}

// FromContext reports the ambient unit of work, if a middleware put one there.
func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok
}
