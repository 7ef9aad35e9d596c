package ledger

import (
	"context"

	"hhn/ledger-bridge/internal/models"
)

// QueryGateway runs restricted queries. out must be a pointer to a slice of
// the record type of q.Entity; it is left empty when nothing matches.
type QueryGateway interface {
	Query(ctx context.Context, q Query, out interface{}) error
}

// WriteGateway creates ledger records and returns them with their assigned
// ids.
type WriteGateway interface {
	AddCustomer(ctx context.Context, customer models.TargetCustomer) (models.TargetCustomer, error)
	AddSalesReceipt(ctx context.Context, txn models.TargetTransaction) (models.TargetTransaction, error)
}

// Gateway is a full ledger connection.
type Gateway interface {
	QueryGateway
	WriteGateway
}
