package ledger

import (
	"context"
	"fmt"

	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/models"
)

// bulkLimit is the largest page the ledger returns for one query.
const bulkLimit = 1000

// DataSource is the typed view of the ledger used by the lookup caches, the
// watermark resolver and customer creation.
type DataSource interface {
	CustomersByEmail(ctx context.Context, emails []string) ([]models.TargetCustomer, error)
	CustomersByDisplayNamePrefix(ctx context.Context, prefix string) ([]models.TargetCustomer, error)
	ClassByName(ctx context.Context, name string) (models.LedgerClass, bool, error)
	Deposits(ctx context.Context) ([]models.LedgerDeposit, error)
	PaymentMethodsByName(ctx context.Context, names []string) ([]models.LedgerPaymentMethod, error)
	ItemsBySKU(ctx context.Context, skus []string) ([]models.LedgerItem, error)
	ServiceItems(ctx context.Context) ([]models.LedgerItem, error)
	TaxCodes(ctx context.Context) ([]models.LedgerTaxCode, error)
	LastImportedTransaction(ctx context.Context, docPrefix string) (models.TargetTransaction, bool, error)
}

// QueryDataSource implements DataSource over a QueryGateway.
type QueryDataSource struct {
	gateway QueryGateway
	logger  logging.Logger
}

// NewQueryDataSource creates a QueryDataSource.
func NewQueryDataSource(gateway QueryGateway, logger logging.Logger) *QueryDataSource {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &QueryDataSource{gateway: gateway, logger: logger}
}

// CustomersByEmail returns the customers whose primary email is in emails.
func (d *QueryDataSource) CustomersByEmail(ctx context.Context, emails []string) ([]models.TargetCustomer, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	var out []models.TargetCustomer
	q := Select(EntityCustomer).WhereIn("PrimaryEmailAddr", emails...).Limit(bulkLimit)
	if err := d.run(ctx, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CustomersByDisplayNamePrefix returns the customers whose display name
// starts with prefix.
func (d *QueryDataSource) CustomersByDisplayNamePrefix(ctx context.Context, prefix string) ([]models.TargetCustomer, error) {
	var out []models.TargetCustomer
	q := Select(EntityCustomer).WhereLike("DisplayName", prefix+"%").Limit(bulkLimit)
	if err := d.run(ctx, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ClassByName returns the class named name.
func (d *QueryDataSource) ClassByName(ctx context.Context, name string) (models.LedgerClass, bool, error) {
	var out []models.LedgerClass
	if err := d.run(ctx, Select(EntityClass).Where("Name", name), &out); err != nil {
		return models.LedgerClass{}, false, err
	}
	if len(out) == 0 {
		return models.LedgerClass{}, false, nil
	}
	return out[0], true, nil
}

// Deposits returns every deposit.
func (d *QueryDataSource) Deposits(ctx context.Context) ([]models.LedgerDeposit, error) {
	var out []models.LedgerDeposit
	if err := d.run(ctx, Select(EntityDeposit).Limit(bulkLimit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PaymentMethodsByName returns the payment methods whose name is in names.
func (d *QueryDataSource) PaymentMethodsByName(ctx context.Context, names []string) ([]models.LedgerPaymentMethod, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var out []models.LedgerPaymentMethod
	if err := d.run(ctx, Select(EntityPaymentMethod).WhereIn("Name", names...), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ItemsBySKU returns the active items whose SKU is in skus.
func (d *QueryDataSource) ItemsBySKU(ctx context.Context, skus []string) ([]models.LedgerItem, error) {
	if len(skus) == 0 {
		return nil, nil
	}
	var out []models.LedgerItem
	q := Select(EntityItem).WhereIn("Sku", skus...).Where("Active", "true").Limit(bulkLimit)
	if err := d.run(ctx, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ServiceItems returns every active service item.
func (d *QueryDataSource) ServiceItems(ctx context.Context) ([]models.LedgerItem, error) {
	var out []models.LedgerItem
	q := Select(EntityItem).Where("Type", "Service").Where("Active", "true").Limit(bulkLimit)
	if err := d.run(ctx, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TaxCodes returns every active tax code.
func (d *QueryDataSource) TaxCodes(ctx context.Context) ([]models.LedgerTaxCode, error) {
	var out []models.LedgerTaxCode
	if err := d.run(ctx, Select(EntityTaxCode).Where("Active", "true").Limit(bulkLimit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LastImportedTransaction returns the sales receipt with the highest id among
// those whose document number starts with docPrefix.
func (d *QueryDataSource) LastImportedTransaction(ctx context.Context, docPrefix string) (models.TargetTransaction, bool, error) {
	var out []models.TargetTransaction
	q := Select(EntitySalesReceipt).WhereLike("DocNumber", docPrefix+"%").OrderByDesc("Id").Limit(1)
	if err := d.run(ctx, q, &out); err != nil {
		return models.TargetTransaction{}, false, err
	}
	if len(out) == 0 {
		return models.TargetTransaction{}, false, nil
	}
	return out[0], true, nil
}

func (d *QueryDataSource) run(ctx context.Context, q Query, out interface{}) error {
	d.logger.Debug("Querying ledger",
		logging.Field{Key: logging.FieldEntity, Value: string(q.Entity)},
		logging.Field{Key: logging.FieldQuery, Value: q.String()})
	if err := d.gateway.Query(ctx, q, out); err != nil {
		return fmt.Errorf("query %s: %w", q.Entity, err)
	}
	return nil
}
