package transform

import (
	"context"

	"hhn/ledger-bridge/internal/ledger"
	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/lookup"
	"hhn/ledger-bridge/internal/models"
)

// Caches bundles the lookup caches of one run.
type Caches struct {
	Class          *lookup.ClassCache
	Customers      *lookup.CustomerCache
	Deposits       *lookup.DepositAccountCache
	PaymentMethods *lookup.PaymentMethodCache
	SKUs           *lookup.SKUCache
	TaxCodes       *lookup.TaxCodeCache
	Shipping       *lookup.ShippingCache
}

// BuildCaches populates every cache for batch. Bulk caches are filled in a
// fixed order: customers, deposit accounts, payment methods, SKUs, tax
// codes, shipping items. The class cache starts empty.
func BuildCaches(ctx context.Context, source ledger.DataSource, batch models.InvoiceBatch, paymentNames map[models.PaymentMethod]string, logger logging.Logger) (Caches, error) {
	var (
		c   Caches
		err error
	)
	c.Class = lookup.NewClassCache(source)
	if c.Customers, err = lookup.NewCustomerCache(ctx, source, batch.Emails(), logger); err != nil {
		return Caches{}, err
	}
	if c.Deposits, err = lookup.NewDepositAccountCache(ctx, source, logger); err != nil {
		return Caches{}, err
	}
	if c.PaymentMethods, err = lookup.NewPaymentMethodCache(ctx, source, paymentNames, logger); err != nil {
		return Caches{}, err
	}
	if c.SKUs, err = lookup.NewSKUCache(ctx, source, batch.SKUs(), logger); err != nil {
		return Caches{}, err
	}
	if c.TaxCodes, err = lookup.NewTaxCodeCache(ctx, source, logger); err != nil {
		return Caches{}, err
	}
	if c.Shipping, err = lookup.NewShippingCache(ctx, source, logger); err != nil {
		return Caches{}, err
	}
	return c, nil
}
