package transform

import (
	"context"

	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/lookup"
	"hhn/ledger-bridge/internal/models"
)

// CustomerCreator adds a customer to the ledger.
type CustomerCreator interface {
	Create(ctx context.Context, customer models.Customer) (models.TargetCustomer, error)
}

// CustomerResolver returns the ledger id of a shop customer, creating the
// customer on first sight.
type CustomerResolver struct {
	cache   *lookup.CustomerCache
	creator CustomerCreator
	logger  logging.Logger
}

// NewCustomerResolver creates a CustomerResolver.
func NewCustomerResolver(cache *lookup.CustomerCache, creator CustomerCreator, logger logging.Logger) *CustomerResolver {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &CustomerResolver{cache: cache, creator: creator, logger: logger}
}

// Resolve returns the cached id for customer or creates the customer and
// records the new id. A creation failure is returned as is and aborts the
// run.
func (r *CustomerResolver) Resolve(ctx context.Context, customer models.Customer) (models.ReferenceID, error) {
	if id, ok := r.cache.Lookup(customer.Email); ok {
		return id, nil
	}

	created, err := r.creator.Create(ctx, customer)
	if err != nil {
		return "", err
	}

	email := created.Email()
	if email == "" {
		email = customer.Email
	}
	r.cache.Upsert(email, created.ID)
	r.logger.Debug("Customer cached",
		logging.F(logging.FieldEmail, customer.Key()),
		logging.F(logging.FieldReferenceID, string(created.ID)))
	return created.ID, nil
}
