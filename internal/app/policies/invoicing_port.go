package policies

import (
	"context"

	"staysync/internal/domain/settlement"
)

// InvoicingPort hands a settlement snapshot to the external invoicing
// collaborator. Implementations must be idempotent per booking id: the
// delivery worker retries emissions until they succeed.
type InvoicingPort interface {
	EmitSettlement(ctx context.Context, bookingID string, s settlement.Settlement) error
}
