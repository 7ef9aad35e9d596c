package transform

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"hhn/ledger-bridge/internal/dateutils"
	"hhn/ledger-bridge/internal/etlerror"
	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/models"

	"github.com/shopspring/decimal"
)

// Stage names reported in row errors.
const (
	StageIdentifiers = "identifiers"
	StageClass       = "class"
	StageTaxCode     = "tax code"
	StageLineItems   = "line items"
	StagePayment     = "payment"
	StageBilling     = "billing"
	StageDiscount    = "discount"
	StageShipping    = "shipping"
	StageCustomer    = "customer"
)

// InvoiceDateFieldName names the custom field holding the invoice timestamp.
const InvoiceDateFieldName = "InvoiceDate"

// receipt is the state threaded through the stages of one invoice.
type receipt struct {
	invoice  models.Invoice
	txn      models.TargetTransaction
	classRef *models.Ref
	taxRef   *models.Ref
}

type stage struct {
	name  string
	apply func(ctx context.Context, r *receipt) error
}

// rowFailure is returned by a stage that cannot build the receipt. It is
// turned into an etlerror.RowError carrying the invoice identity.
type rowFailure struct {
	msg string
}

func (f *rowFailure) Error() string { return f.msg }

func failf(format string, args ...interface{}) error {
	return &rowFailure{msg: fmt.Sprintf(format, args...)}
}

// Pipeline builds one sales receipt per invoice.
type Pipeline struct {
	settings  Settings
	caches    Caches
	customers *CustomerResolver
	logger    logging.Logger
	stages    []stage
}

// NewPipeline creates a Pipeline over the caches of one run.
func NewPipeline(settings Settings, caches Caches, customers *CustomerResolver, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	p := &Pipeline{settings: settings, caches: caches, customers: customers, logger: logger}
	p.stages = []stage{
		{StageIdentifiers, p.identifiers},
		{StageClass, p.class},
		{StageTaxCode, p.taxCode},
		{StageLineItems, p.lineItems},
		{StagePayment, p.payment},
		{StageBilling, p.billing},
		{StageDiscount, p.discount},
		{StageShipping, p.shipping},
		{StageCustomer, p.customer},
	}
	return p
}

// Transform runs every stage against invoice. A recoverable failure is
// returned as *etlerror.RowError; any other error is fatal to the run.
func (p *Pipeline) Transform(ctx context.Context, invoice models.Invoice) (models.TargetTransaction, error) {
	r := &receipt{invoice: invoice}
	for _, s := range p.stages {
		if err := s.apply(ctx, r); err != nil {
			var failure *rowFailure
			if errors.As(err, &failure) {
				return models.TargetTransaction{}, &etlerror.RowError{
					InvoiceID: invoice.ID,
					OrderName: invoice.OrderName,
					Stage:     s.name,
					Msg:       failure.msg,
				}
			}
			return models.TargetTransaction{}, fmt.Errorf("invoice %d %s stage: %w", invoice.ID, s.name, err)
		}
	}
	return r.txn, nil
}

// Outcome is the result of transforming a batch.
type Outcome struct {
	Succeeded []models.TargetTransaction
	Failed    []*etlerror.RowError
}

// Err returns nil when every invoice succeeded, otherwise an
// *etlerror.AggregateError listing the failures in source order.
func (o Outcome) Err() error {
	return etlerror.NewAggregateError(o.Failed)
}

// Run transforms invoices in order. Row failures are collected and the loop
// continues; the first fatal error stops it and is returned along with the
// partial outcome.
func (p *Pipeline) Run(ctx context.Context, invoices []models.Invoice) (Outcome, error) {
	var out Outcome
	for _, inv := range invoices {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		txn, err := p.Transform(ctx, inv)
		if err != nil {
			var rowErr *etlerror.RowError
			if errors.As(err, &rowErr) {
				p.logger.Warn("Invoice skipped",
					logging.F(logging.FieldInvoiceID, inv.ID),
					logging.F(logging.FieldDocNumber, inv.OrderName),
					logging.F(logging.FieldStage, rowErr.Stage),
					logging.F(logging.FieldError, rowErr.Msg))
				out.Failed = append(out.Failed, rowErr)
				continue
			}
			return out, err
		}
		p.logger.Debug("Invoice transformed",
			logging.F(logging.FieldInvoiceID, inv.ID),
			logging.F(logging.FieldDocNumber, txn.DocNumber))
		out.Succeeded = append(out.Succeeded, txn)
	}
	return out, nil
}

func (p *Pipeline) identifiers(_ context.Context, r *receipt) error {
	if p.settings.InvoiceDateField <= 0 {
		return failf("custom field position for invoice date field was not specified")
	}
	date := dateutils.ShiftHours(r.invoice.TransactionDate, p.settings.TimeDiffHours)
	r.txn.DocNumber = r.invoice.OrderName
	r.txn.TxnDate = models.Date{Time: date}
	r.txn.CustomFields = []models.CustomField{{
		DefinitionID: strconv.Itoa(p.settings.InvoiceDateField),
		Name:         InvoiceDateFieldName,
		Type:         models.CustomFieldTypeString,
		StringValue:  dateutils.FormatFull(date),
	}}
	return nil
}

func (p *Pipeline) class(ctx context.Context, r *receipt) error {
	id, ok, err := p.caches.Class.Lookup(ctx, p.settings.ClassName)
	if err != nil {
		return err
	}
	if !ok {
		return failf("failed to look up transaction class: %s", p.settings.ClassName)
	}
	r.classRef = models.NewRef(id)
	r.txn.ClassRef = models.NewRef(id)
	return nil
}

func (p *Pipeline) taxCode(_ context.Context, r *receipt) error {
	if len(r.invoice.LineItems) == 0 {
		return failf("failed to retrieve tax code reference id: cannot find sale item in receipt")
	}
	code, _ := r.invoice.TaxCode()
	name, ok := p.settings.TaxCodes[code]
	if !ok {
		return failf("no ledger tax code mapped for shop tax code %q", code)
	}
	id, ok := p.caches.TaxCodes.Lookup(name)
	if !ok {
		return failf("failed to look up tax code: %s\ntax code lookup table content: %s", name, p.caches.TaxCodes)
	}
	r.taxRef = models.NewRef(id)
	return nil
}

func (p *Pipeline) lineItems(_ context.Context, r *receipt) error {
	lines := make([]models.Line, 0, len(r.invoice.LineItems)+2)
	for _, item := range r.invoice.LineItems {
		id, ok := p.caches.SKUs.Lookup(item.SKU)
		if !ok {
			return failf("failed to look up sku: %s\nsku lookup table content: %s", item.SKU, p.caches.SKUs)
		}
		lines = append(lines, models.Line{
			DetailType:  models.SalesItemLineDetailType,
			Amount:      item.TotalWithTax,
			Description: item.DisplayName,
			SalesItemLineDetail: &models.SalesItemLineDetail{
				ItemRef:    models.NewRef(id),
				ClassRef:   r.classRef,
				TaxCodeRef: r.taxRef,
				Qty:        decimal.NewFromInt(int64(item.Quantity)),
				UnitPrice:  item.UnitPrice,
			},
		})
	}
	r.txn.Lines = lines
	return nil
}

func (p *Pipeline) payment(_ context.Context, r *receipt) error {
	id, ok := p.caches.PaymentMethods.Lookup(r.invoice.PaymentMethod)
	if !ok {
		return failf("failed to look up payment method type: %s\npayment method lookup table content: %s",
			r.invoice.PaymentMethod, p.caches.PaymentMethods)
	}
	r.txn.PaymentMethodRef = models.NewRef(id)
	return nil
}

func (p *Pipeline) billing(_ context.Context, r *receipt) error {
	id, ok := p.caches.Deposits.Lookup(p.settings.DepositAccount)
	if !ok {
		return failf("failed to look up deposit account: %s\ndeposit account lookup table content: %s",
			p.settings.DepositAccount, p.caches.Deposits)
	}
	customer := r.invoice.Customer
	r.txn.PaymentRefNum = r.invoice.InvoiceName
	r.txn.BillAddr = &models.PhysicalAddress{Line1: customer.BillingAddress.FullAddress}
	r.txn.BillEmail = &models.EmailAddress{Address: customer.Email}
	r.txn.DepositToAccountRef = models.NewRef(id)
	r.txn.TxnTaxDetail = &models.TxnTaxDetail{TxnTaxCodeRef: r.taxRef}
	return nil
}

// discount always adds a fixed-amount line, even for a zero discount.
func (p *Pipeline) discount(_ context.Context, r *receipt) error {
	r.txn.Lines = append(r.txn.Lines, models.Line{
		DetailType:         models.DiscountLineDetailType,
		Amount:             r.invoice.TotalDiscount.Abs(),
		DiscountLineDetail: &models.DiscountLineDetail{PercentBased: false},
	})
	return nil
}

func (p *Pipeline) shipping(_ context.Context, r *receipt) error {
	info := r.invoice.Shipping
	detail := &models.SalesItemLineDetail{TaxCodeRef: r.taxRef}
	line := models.Line{
		DetailType:          models.SalesItemLineDetailType,
		Amount:              info.Cost,
		SalesItemLineDetail: detail,
	}

	if sku := p.settings.ShippingSKU; sku != "" {
		item, ok := p.caches.Shipping.Lookup(sku)
		if !ok {
			return failf("failed to look up shipping sku: %s\nshipping lookup table content: %s", sku, p.caches.Shipping)
		}
		detail.ItemRef = models.NewRef(item.ID)
		detail.ClassRef = r.classRef
		detail.Qty = decimal.NewFromInt(1)
		detail.UnitPrice = info.Cost
		line.Description = item.Name
	} else {
		detail.ItemRef = models.NewRef(models.ShippingPlaceholderItemID)
	}

	if !info.Cost.IsZero() {
		r.txn.Lines = append(r.txn.Lines, line)
	}
	r.txn.ShipAddr = &models.PhysicalAddress{Line1: info.Address}
	r.txn.ShipMethodRef = models.NewRef(models.ReferenceID(info.Designation))
	return nil
}

func (p *Pipeline) customer(ctx context.Context, r *receipt) error {
	if r.invoice.Customer.Key() == "" {
		return failf("customer email is missing")
	}
	id, err := p.customers.Resolve(ctx, r.invoice.Customer)
	if err != nil {
		return err
	}
	r.txn.CustomerRef = models.NewRef(id)
	return nil
}
