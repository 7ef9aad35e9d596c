package source

import (
	"context"
	"database/sql"
	"net"
	"strconv"
	"time"

	"hhn/ledger-bridge/internal/config"
	"hhn/ledger-bridge/internal/dateutils"
	"hhn/ledger-bridge/internal/etlerror"
	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/models"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

const sourceName = "shop database"

// invoiceQuery joins every invoiced order with its payment, addresses, items
// and item tax codes. One row is returned per invoiced item; rows of the
// same order are adjacent.
const invoiceQuery = `SELECT sales_flat_order.entity_id,
  sales_flat_order.increment_id AS ORDER_NAME,
  sales_flat_invoice.increment_id AS INVOICE_NAME,
  sales_flat_invoice.created_at,
  sales_flat_order.discount_amount,
  sales_flat_order_payment.method,
  sales_flat_order.customer_firstname,
  sales_flat_order.customer_middlename,
  sales_flat_order.customer_lastname,
  sales_flat_order.shipping_description,
  sales_flat_order.shipping_amount,
  sales_flat_order.customer_email,
  BILLING_ADDR.region,
  BILLING_ADDR.street AS BILLING_STREET,
  SHIPPING_ADDR.street AS SHIPPING_STREET,
  catalog_product_flat_1.name,
  catalog_product_flat_1.sku,
  sales_flat_order_item.base_price AS UNIT_PRICE,
  sales_flat_order_item.qty_invoiced,
  sales_flat_order_item.row_total AS LINE_PRICE,
  sales_order_tax.code
FROM sales_flat_order
INNER JOIN sales_flat_invoice ON sales_flat_invoice.order_id = sales_flat_order.entity_id
INNER JOIN sales_flat_order_payment ON sales_flat_order_payment.parent_id = sales_flat_order.entity_id
INNER JOIN sales_flat_order_address BILLING_ADDR ON BILLING_ADDR.entity_id = sales_flat_order.billing_address_id
INNER JOIN sales_flat_order_address SHIPPING_ADDR ON SHIPPING_ADDR.entity_id = sales_flat_order.shipping_address_id
INNER JOIN sales_flat_order_item ON sales_flat_order_item.order_id = sales_flat_order.entity_id
INNER JOIN sales_order_tax_item ON sales_order_tax_item.item_id = sales_flat_order_item.item_id
INNER JOIN sales_order_tax ON sales_order_tax.order_id = sales_flat_order.entity_id
  AND sales_order_tax.tax_id = sales_order_tax_item.tax_id
INNER JOIN catalog_product_flat_1 ON catalog_product_flat_1.entity_id = sales_flat_order_item.product_id
WHERE sales_flat_invoice.created_at > ?
ORDER BY sales_flat_order.entity_id, sales_flat_order_item.item_id`

// DSN renders the MySQL connection string for cfg.
func DSN(cfg config.SourceConfig) string {
	dsn := mysql.NewConfig()
	dsn.User = cfg.User
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dsn.DBName = cfg.Database
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	if cfg.TimeoutSeconds > 0 {
		dsn.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		dsn.ReadTimeout = dsn.Timeout
	}
	return dsn.FormatDSN()
}

// OpenMySQL opens a connection pool to the shop database.
func OpenMySQL(cfg config.SourceConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, &etlerror.ExtractionError{Source: sourceName, Reason: "unable to open connection", Err: err}
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// MySQLProvider reads invoices from the shop's order tables.
type MySQLProvider struct {
	db     *sql.DB
	logger logging.Logger
}

// NewMySQLProvider creates a MySQLProvider over db.
func NewMySQLProvider(db *sql.DB, logger logging.Logger) *MySQLProvider {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &MySQLProvider{db: db, logger: logger}
}

// Close releases the connection pool.
func (p *MySQLProvider) Close() error {
	return p.db.Close()
}

// FetchInvoices returns the invoices created after the given timestamp, in
// order id order, with their line items folded in.
func (p *MySQLProvider) FetchInvoices(ctx context.Context, after time.Time) (models.InvoiceBatch, error) {
	p.logger.Debug("Querying shop invoices", logging.F(logging.FieldWatermark, dateutils.FormatFull(after)))

	rows, err := p.db.QueryContext(ctx, invoiceQuery, after)
	if err != nil {
		return models.InvoiceBatch{}, &etlerror.ExtractionError{Source: sourceName, Reason: "invoice query failed", Err: err}
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			p.logger.WithError(closeErr).Warn("Failed to close result set")
		}
	}()

	var invoices []models.Invoice
	for rows.Next() {
		var r invoiceRow
		if err := r.scan(rows); err != nil {
			return models.InvoiceBatch{}, &etlerror.ExtractionError{Source: sourceName, Reason: "unable to read invoice row", Err: err}
		}
		if n := len(invoices); n == 0 || invoices[n-1].ID != r.entityID {
			invoices = append(invoices, r.invoice())
		}
		last := &invoices[len(invoices)-1]
		*last = last.WithLineItem(r.lineItem())
	}
	if err := rows.Err(); err != nil {
		return models.InvoiceBatch{}, &etlerror.ExtractionError{Source: sourceName, Reason: "invoice query interrupted", Err: err}
	}

	batch := models.NewInvoiceBatch(invoices)
	p.logger.Info("Extracted shop invoices",
		logging.F(logging.FieldCount, batch.Len()),
		logging.F(logging.FieldWatermark, dateutils.FormatFull(after)))
	return batch, nil
}

// invoiceRow holds one joined row of invoiceQuery.
type invoiceRow struct {
	entityID       int
	orderName      string
	invoiceName    string
	createdAt      time.Time
	discount       decimal.NullDecimal
	method         sql.NullString
	firstName      sql.NullString
	middleName     sql.NullString
	lastName       sql.NullString
	shippingDesc   sql.NullString
	shippingAmount decimal.NullDecimal
	email          sql.NullString
	region         sql.NullString
	billingStreet  sql.NullString
	shippingStreet sql.NullString
	productName    sql.NullString
	sku            sql.NullString
	unitPrice      decimal.NullDecimal
	qtyInvoiced    decimal.NullDecimal
	linePrice      decimal.NullDecimal
	taxCode        sql.NullString
}

func (r *invoiceRow) scan(rows *sql.Rows) error {
	return rows.Scan(
		&r.entityID, &r.orderName, &r.invoiceName, &r.createdAt,
		&r.discount, &r.method,
		&r.firstName, &r.middleName, &r.lastName,
		&r.shippingDesc, &r.shippingAmount, &r.email,
		&r.region, &r.billingStreet, &r.shippingStreet,
		&r.productName, &r.sku, &r.unitPrice, &r.qtyInvoiced, &r.linePrice,
		&r.taxCode,
	)
}

func (r *invoiceRow) invoice() models.Invoice {
	method, _ := models.ParsePaymentMethod(r.method.String)
	return models.Invoice{
		ID:              r.entityID,
		OrderName:       r.orderName,
		InvoiceName:     r.invoiceName,
		TransactionDate: r.createdAt.UTC(),
		Customer: models.Customer{
			Email:           r.email.String,
			FirstName:       r.firstName.String,
			MiddleName:      r.middleName.String,
			LastName:        r.lastName.String,
			BillingAddress:  models.NewAddress(r.region.String, r.billingStreet.String),
			ShippingAddress: models.NewAddress("", r.shippingStreet.String),
		},
		TotalDiscount: amount(r.discount),
		Shipping: models.ShippingInfo{
			Designation: r.shippingDesc.String,
			Cost:        amount(r.shippingAmount),
			Address:     r.shippingStreet.String,
		},
		PaymentMethod: method,
	}
}

func (r *invoiceRow) lineItem() models.LineItem {
	return models.LineItem{
		SKU:          r.sku.String,
		DisplayName:  r.productName.String,
		Quantity:     int(amount(r.qtyInvoiced).IntPart()),
		UnitPrice:    amount(r.unitPrice),
		TotalWithTax: amount(r.linePrice),
		TaxCode:      r.taxCode.String,
	}
}

func amount(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

var _ Provider = (*MySQLProvider)(nil)
