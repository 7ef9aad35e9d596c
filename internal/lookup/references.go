package lookup

import (
	"context"
	"fmt"
	"strings"

	"hhn/ledger-bridge/internal/ledger"
	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/models"
)

// ClassCache resolves class names lazily.
type ClassCache struct {
	*lazyCache[string, models.ReferenceID]
}

// NewClassCache creates an empty ClassCache. No query is issued until the
// first lookup.
func NewClassCache(source ledger.DataSource) *ClassCache {
	return &ClassCache{newLazyCache("class", func(ctx context.Context, name string) (models.ReferenceID, bool, error) {
		class, found, err := source.ClassByName(ctx, name)
		if err != nil || !found {
			return "", false, err
		}
		return class.ID, true, nil
	})}
}

// Lookup returns the id of the class named name. A miss is not an error;
// err is only set when the ledger could not be queried.
func (c *ClassCache) Lookup(ctx context.Context, name string) (models.ReferenceID, bool, error) {
	return c.lookup(ctx, name)
}

// DepositAccountCache resolves deposit-to account names.
type DepositAccountCache struct {
	*bulkCache[string, models.ReferenceID]
}

// NewDepositAccountCache loads every deposit and keys it by the name of the
// account it was deposited to.
func NewDepositAccountCache(ctx context.Context, source ledger.DataSource, logger logging.Logger) (*DepositAccountCache, error) {
	deposits, err := source.Deposits(ctx)
	if err != nil {
		return nil, fmt.Errorf("deposit account cache: %w", err)
	}
	c := &DepositAccountCache{newBulkCache("deposit account", deposits,
		func(d models.LedgerDeposit) (string, models.ReferenceID, bool) {
			ref := d.DepositToAccountRef
			return ref.Name, ref.Value, ref.Name != "" && ref.Value != ""
		})}
	logBuilt(orDefault(logger), c.name, c.Len())
	return c, nil
}

// Lookup returns the id of the account named name.
func (c *DepositAccountCache) Lookup(name string) (models.ReferenceID, bool) {
	return c.lookup(name)
}

// PaymentMethodCache resolves payment tags through the configured ledger
// payment method names.
type PaymentMethodCache struct {
	*bulkCache[models.PaymentMethod, models.ReferenceID]
}

// NewPaymentMethodCache queries the ledger for the payment methods named in
// names and keys them by tag.
func NewPaymentMethodCache(ctx context.Context, source ledger.DataSource, names map[models.PaymentMethod]string, logger logging.Logger) (*PaymentMethodCache, error) {
	wanted := make([]string, 0, len(names))
	seen := make(map[string]bool)
	for _, tag := range models.PaymentMethods {
		name := names[tag]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		wanted = append(wanted, name)
	}

	methods, err := source.PaymentMethodsByName(ctx, wanted)
	if err != nil {
		return nil, fmt.Errorf("payment method cache: %w", err)
	}

	// Expand each record into one entry per tag configured with its name.
	type tagged struct {
		tag models.PaymentMethod
		id  models.ReferenceID
	}
	var entries []tagged
	for _, m := range methods {
		for _, tag := range models.PaymentMethods {
			if names[tag] != "" && names[tag] == m.Name {
				entries = append(entries, tagged{tag: tag, id: m.ID})
			}
		}
	}

	c := &PaymentMethodCache{newBulkCache("payment method", entries,
		func(e tagged) (models.PaymentMethod, models.ReferenceID, bool) {
			return e.tag, e.id, true
		})}
	logBuilt(orDefault(logger), c.name, c.Len())
	return c, nil
}

// Lookup returns the id of the payment method configured for tag.
func (c *PaymentMethodCache) Lookup(tag models.PaymentMethod) (models.ReferenceID, bool) {
	return c.lookup(tag)
}

// SKUCache resolves product SKUs among active items.
type SKUCache struct {
	*bulkCache[string, models.ReferenceID]
}

// NewSKUCache loads the active items whose SKU is in skus.
func NewSKUCache(ctx context.Context, source ledger.DataSource, skus []string, logger logging.Logger) (*SKUCache, error) {
	items, err := source.ItemsBySKU(ctx, skus)
	if err != nil {
		return nil, fmt.Errorf("sku cache: %w", err)
	}
	c := &SKUCache{newBulkCache("sku", items,
		func(item models.LedgerItem) (string, models.ReferenceID, bool) {
			sku := item.TrimmedSKU()
			return sku, item.ID, sku != ""
		})}
	logBuilt(orDefault(logger), c.name, c.Len())
	return c, nil
}

// Lookup returns the id of the item with the given SKU.
func (c *SKUCache) Lookup(sku string) (models.ReferenceID, bool) {
	return c.lookup(strings.TrimSpace(sku))
}

// TaxCodeCache resolves ledger tax code names among active codes.
type TaxCodeCache struct {
	*bulkCache[string, models.ReferenceID]
}

// NewTaxCodeCache loads every active tax code.
func NewTaxCodeCache(ctx context.Context, source ledger.DataSource, logger logging.Logger) (*TaxCodeCache, error) {
	codes, err := source.TaxCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("tax code cache: %w", err)
	}
	c := &TaxCodeCache{newBulkCache("tax code", codes,
		func(code models.LedgerTaxCode) (string, models.ReferenceID, bool) {
			return code.Name, code.ID, code.Name != ""
		})}
	logBuilt(orDefault(logger), c.name, c.Len())
	return c, nil
}

// Lookup returns the id of the tax code named name.
func (c *TaxCodeCache) Lookup(name string) (models.ReferenceID, bool) {
	return c.lookup(name)
}

// ShippingCache resolves shipping service SKUs. It keeps the whole item
// because shipping lines are described with the item name.
type ShippingCache struct {
	*bulkCache[string, models.LedgerItem]
}

// NewShippingCache loads every active service item.
func NewShippingCache(ctx context.Context, source ledger.DataSource, logger logging.Logger) (*ShippingCache, error) {
	items, err := source.ServiceItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("shipping cache: %w", err)
	}
	c := &ShippingCache{newBulkCache("shipping", items,
		func(item models.LedgerItem) (string, models.LedgerItem, bool) {
			sku := item.TrimmedSKU()
			return sku, item, sku != ""
		})}
	logBuilt(orDefault(logger), c.name, c.Len())
	return c, nil
}

// Lookup returns the service item with the given SKU.
func (c *ShippingCache) Lookup(sku string) (models.LedgerItem, bool) {
	return c.lookup(strings.TrimSpace(sku))
}
