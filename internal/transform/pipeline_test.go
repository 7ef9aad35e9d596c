package transform

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"hhn/ledger-bridge/internal/etlerror"
	"hhn/ledger-bridge/internal/ledger"
	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testGateway() *ledger.MockGateway {
	gw := ledger.NewMockGateway()
	gw.Customers = []models.TargetCustomer{
		{ID: "1", DisplayName: "Jane Doe", PrimaryEmailAddr: &models.EmailAddress{Address: "Jane@Example.com"}},
	}
	gw.Classes = []models.LedgerClass{{ID: "20", Name: "Online"}}
	gw.Deposits = []models.LedgerDeposit{{ID: "30", DepositToAccountRef: models.Ref{Value: "31", Name: "Undeposited Funds"}}}
	gw.PaymentMethods = []models.LedgerPaymentMethod{{ID: "40", Name: "Square"}, {ID: "41", Name: "PayPal"}}
	gw.Items = []models.LedgerItem{
		{ID: "10", Name: "Green Tea", SKU: "TEA-1", Type: "Inventory", Active: true},
		{ID: "11", Name: "Black Tea", SKU: "TEA-2", Type: "Inventory", Active: true},
		{ID: "12", Name: "Canada Post", SKU: "SHIP-01", Type: "Service", Active: true},
	}
	gw.TaxCodes = []models.LedgerTaxCode{{ID: "50", Name: "HST ON", Active: true}}
	return gw
}

func testSettings() Settings {
	return Settings{
		InvoiceDateField: 1,
		ClassName:        "Online",
		DepositAccount:   "Undeposited Funds",
		TaxCodes:         map[string]string{"Taxable Goods": "HST ON"},
		PaymentNames: map[models.PaymentMethod]string{
			models.PaymentCard:   "Square",
			models.PaymentPayPal: "PayPal",
		},
	}
}

func testInvoice(id int, order string) models.Invoice {
	return models.Invoice{
		ID:              id,
		OrderName:       order,
		InvoiceName:     "INV-" + order,
		TransactionDate: time.Date(2023, 3, 14, 15, 9, 26, 0, time.UTC),
		LineItems: []models.LineItem{
			{SKU: "TEA-1", DisplayName: "Green Tea 100g", Quantity: 2, UnitPrice: dec("10.00"), TotalWithTax: dec("22.60"), TaxCode: "Taxable Goods"},
			{SKU: "TEA-2", DisplayName: "Black Tea 100g", Quantity: 1, UnitPrice: dec("8.00"), TotalWithTax: dec("9.04"), TaxCode: "Taxable Goods"},
		},
		Customer: models.Customer{
			Email:           "jane@example.com",
			FirstName:       "Jane",
			LastName:        "Doe",
			BillingAddress:  models.NewAddress("ON", "1 Main St, Toronto"),
			ShippingAddress: models.NewAddress("ON", "2 Side St, Toronto"),
		},
		TotalDiscount: dec("-5.00"),
		Shipping:      models.ShippingInfo{Designation: "Flat Rate", Cost: dec("7.50"), Address: "2 Side St, Toronto"},
		PaymentMethod: models.PaymentCard,
	}
}

type harness struct {
	gw       *ledger.MockGateway
	logger   *logging.MockLogger
	pipeline *Pipeline
}

func newHarness(t *testing.T, gw *ledger.MockGateway, settings Settings, invoices ...models.Invoice) *harness {
	t.Helper()
	logger := logging.NewMockLogger()
	source := ledger.NewQueryDataSource(gw, logger)
	caches, err := BuildCaches(context.Background(), source, models.NewInvoiceBatch(invoices), settings.PaymentNames, logger)
	require.NoError(t, err)
	resolver := NewCustomerResolver(caches.Customers, ledger.NewCustomerCreator(source, gw, logger), logger)
	return &harness{gw: gw, logger: logger, pipeline: NewPipeline(settings, caches, resolver, logger)}
}

func TestTransform_FullReceipt(t *testing.T) {
	inv := testInvoice(7, "100000007")
	h := newHarness(t, testGateway(), testSettings(), inv)

	txn, err := h.pipeline.Transform(context.Background(), inv)
	require.NoError(t, err)

	assert.Equal(t, "100000007", txn.DocNumber)
	assert.Equal(t, "2023-03-14", txn.TxnDate.Format("2006-01-02"))
	require.Len(t, txn.CustomFields, 1)
	assert.Equal(t, models.CustomField{
		DefinitionID: "1",
		Name:         InvoiceDateFieldName,
		Type:         models.CustomFieldTypeString,
		StringValue:  "2023-03-14 15:09:26",
	}, txn.CustomFields[0])

	assert.Equal(t, models.NewRef("20"), txn.ClassRef)
	assert.Equal(t, models.NewRef("40"), txn.PaymentMethodRef)
	assert.Equal(t, "INV-100000007", txn.PaymentRefNum)
	assert.Equal(t, "1 Main St, Toronto", txn.BillAddr.Line1)
	assert.Equal(t, "jane@example.com", txn.BillEmail.Address)
	assert.Equal(t, models.NewRef("31"), txn.DepositToAccountRef)
	assert.Equal(t, models.NewRef("50"), txn.TxnTaxDetail.TxnTaxCodeRef)
	assert.Equal(t, models.NewRef("1"), txn.CustomerRef)
	assert.Equal(t, "2 Side St, Toronto", txn.ShipAddr.Line1)
	assert.Equal(t, models.NewRef("Flat Rate"), txn.ShipMethodRef)

	require.Len(t, txn.Lines, 4)
	first := txn.Lines[0]
	assert.Equal(t, models.SalesItemLineDetailType, first.DetailType)
	assert.Equal(t, "Green Tea 100g", first.Description)
	assert.True(t, first.Amount.Equal(dec("22.60")))
	assert.Equal(t, models.NewRef("10"), first.SalesItemLineDetail.ItemRef)
	assert.Equal(t, models.NewRef("20"), first.SalesItemLineDetail.ClassRef)
	assert.Equal(t, models.NewRef("50"), first.SalesItemLineDetail.TaxCodeRef)
	assert.True(t, first.SalesItemLineDetail.Qty.Equal(decimal.NewFromInt(2)))
	assert.True(t, first.SalesItemLineDetail.UnitPrice.Equal(dec("10.00")))

	discount := txn.Lines[2]
	assert.Equal(t, models.DiscountLineDetailType, discount.DetailType)
	assert.False(t, discount.DiscountLineDetail.PercentBased)
	assert.True(t, discount.Amount.Equal(dec("5.00")))

	shipping := txn.Lines[3]
	assert.Equal(t, models.NewRef(models.ShippingPlaceholderItemID), shipping.SalesItemLineDetail.ItemRef)
	assert.True(t, shipping.Amount.Equal(dec("7.50")))
	assert.Nil(t, shipping.SalesItemLineDetail.ClassRef)
	assert.Empty(t, shipping.Description)

	assert.Equal(t, 0, h.gw.AddCount(ledger.EntityCustomer))
}

func TestTransform_LineCount(t *testing.T) {
	tests := []struct {
		name        string
		items       int
		shipping    string
		shippingSKU string
		expected    int
	}{
		{name: "two items with shipping", items: 2, shipping: "7.50", expected: 4},
		{name: "two items free shipping", items: 2, shipping: "0", expected: 3},
		{name: "one item with shipping", items: 1, shipping: "3.00", expected: 3},
		{name: "one item free shipping", items: 1, shipping: "0.00", expected: 2},
		{name: "shipping item with cost", items: 2, shipping: "7.50", shippingSKU: "SHIP-01", expected: 4},
		{name: "shipping item free shipping", items: 2, shipping: "0", shippingSKU: "SHIP-01", expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings()
			settings.ShippingSKU = tt.shippingSKU
			inv := testInvoice(1, "100")
			inv.LineItems = inv.LineItems[:tt.items]
			inv.Shipping.Cost = dec(tt.shipping)
			h := newHarness(t, testGateway(), settings, inv)

			txn, err := h.pipeline.Transform(context.Background(), inv)
			require.NoError(t, err)
			assert.Len(t, txn.Lines, tt.expected)
			assert.Equal(t, 1, txn.CountLines(models.DiscountLineDetailType))
			assert.Equal(t, tt.expected-1, txn.CountLines(models.SalesItemLineDetailType))
			if dec(tt.shipping).IsZero() {
				for _, line := range txn.Lines {
					if line.SalesItemLineDetail != nil {
						assert.NotEqual(t, models.NewRef("12"), line.SalesItemLineDetail.ItemRef, "no shipping line at zero cost")
						assert.NotEqual(t, models.NewRef(models.ShippingPlaceholderItemID), line.SalesItemLineDetail.ItemRef)
					}
				}
			}
			require.NotNil(t, txn.ShipAddr, "ship address is set even without a shipping line")
			assert.Equal(t, "2 Side St, Toronto", txn.ShipAddr.Line1)
			assert.Equal(t, models.NewRef("Flat Rate"), txn.ShipMethodRef)
		})
	}
}

func TestTransform_DiscountIsNeverNegative(t *testing.T) {
	for _, amount := range []string{"-12.34", "12.34", "0"} {
		inv := testInvoice(1, "100")
		inv.TotalDiscount = dec(amount)
		h := newHarness(t, testGateway(), testSettings(), inv)

		txn, err := h.pipeline.Transform(context.Background(), inv)
		require.NoError(t, err)
		for _, line := range txn.Lines {
			if line.DetailType == models.DiscountLineDetailType {
				assert.False(t, line.Amount.IsNegative(), amount)
				assert.True(t, line.Amount.Equal(dec(amount).Abs()), amount)
			}
		}
	}
}

func TestTransform_ConfiguredShippingItem(t *testing.T) {
	settings := testSettings()
	settings.ShippingSKU = "SHIP-01"
	inv := testInvoice(1, "100")
	h := newHarness(t, testGateway(), settings, inv)

	txn, err := h.pipeline.Transform(context.Background(), inv)
	require.NoError(t, err)

	shipping := txn.Lines[len(txn.Lines)-1]
	assert.Equal(t, "Canada Post", shipping.Description)
	detail := shipping.SalesItemLineDetail
	assert.Equal(t, models.NewRef("12"), detail.ItemRef)
	assert.Equal(t, models.NewRef("20"), detail.ClassRef)
	assert.Equal(t, models.NewRef("50"), detail.TaxCodeRef)
	assert.True(t, detail.Qty.Equal(decimal.NewFromInt(1)))
	assert.True(t, detail.UnitPrice.Equal(dec("7.50")))
}

func TestTransform_TimeShift(t *testing.T) {
	settings := testSettings()
	settings.TimeDiffHours = -16
	inv := testInvoice(1, "100")
	h := newHarness(t, testGateway(), settings, inv)

	txn, err := h.pipeline.Transform(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, "2023-03-13", txn.TxnDate.Format("2006-01-02"))
	value, ok := txn.CustomFieldValue(0)
	assert.True(t, ok)
	assert.Equal(t, "2023-03-13 23:09:26", value)
}

func TestTransform_RowErrors(t *testing.T) {
	tests := []struct {
		name     string
		settings func(*Settings)
		invoice  func(*models.Invoice)
		stage    string
		contains string
	}{
		{
			name:     "invoice date field unset",
			settings: func(s *Settings) { s.InvoiceDateField = 0 },
			stage:    StageIdentifiers,
			contains: "custom field position",
		},
		{
			name:     "unknown class",
			settings: func(s *Settings) { s.ClassName = "Wholesale" },
			stage:    StageClass,
			contains: "Wholesale",
		},
		{
			name:     "no line items",
			invoice:  func(inv *models.Invoice) { inv.LineItems = nil },
			stage:    StageTaxCode,
			contains: "cannot find sale item",
		},
		{
			name: "untranslated tax code",
			invoice: func(inv *models.Invoice) {
				for i := range inv.LineItems {
					inv.LineItems[i].TaxCode = "Exempt"
				}
			},
			stage:    StageTaxCode,
			contains: `"Exempt"`,
		},
		{
			name:     "translated tax code unknown to ledger",
			settings: func(s *Settings) { s.TaxCodes = map[string]string{"Taxable Goods": "GST"} },
			stage:    StageTaxCode,
			contains: "tax code lookup table content: [HST ON, 50]",
		},
		{
			name:     "unknown sku",
			invoice:  func(inv *models.Invoice) { inv.LineItems[1].SKU = "TEA-9" },
			stage:    StageLineItems,
			contains: "failed to look up sku: TEA-9",
		},
		{
			name:     "unknown payment method",
			invoice:  func(inv *models.Invoice) { inv.PaymentMethod = models.PaymentUnknown },
			stage:    StagePayment,
			contains: "UNKNOWN",
		},
		{
			name:     "unmapped payment tag",
			settings: func(s *Settings) { s.PaymentNames = map[models.PaymentMethod]string{models.PaymentPayPal: "PayPal"} },
			stage:    StagePayment,
			contains: "CARD",
		},
		{
			name:     "unknown deposit account",
			settings: func(s *Settings) { s.DepositAccount = "Savings" },
			stage:    StageBilling,
			contains: "Savings",
		},
		{
			name:     "missing customer email",
			invoice:  func(inv *models.Invoice) { inv.Customer.Email = "  " },
			stage:    StageCustomer,
			contains: "customer email is missing",
		},
		{
			name:     "unknown shipping sku",
			settings: func(s *Settings) { s.ShippingSKU = "SHIP-99" },
			stage:    StageShipping,
			contains: "SHIP-99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings()
			if tt.settings != nil {
				tt.settings(&settings)
			}
			inv := testInvoice(42, "100000042")
			if tt.invoice != nil {
				tt.invoice(&inv)
			}
			h := newHarness(t, testGateway(), settings, inv)

			_, err := h.pipeline.Transform(context.Background(), inv)
			require.Error(t, err)

			var rowErr *etlerror.RowError
			require.ErrorAs(t, err, &rowErr)
			assert.Equal(t, tt.stage, rowErr.Stage)
			assert.Equal(t, 42, rowErr.InvoiceID)
			assert.Equal(t, "100000042", rowErr.OrderName)
			assert.Contains(t, rowErr.Msg, tt.contains)
			assert.False(t, etlerror.IsFatal(err))
		})
	}
}

func TestTransform_ClassLedgerFailureIsFatal(t *testing.T) {
	gw := testGateway()
	inv := testInvoice(1, "100")
	h := newHarness(t, gw, testSettings(), inv)
	gw.QueryErrors = map[ledger.Entity]error{ledger.EntityClass: errors.New("connection reset")}

	_, err := h.pipeline.Transform(context.Background(), inv)
	require.Error(t, err)
	assert.True(t, etlerror.IsFatal(err))
	var ledgerErr *etlerror.LedgerError
	assert.ErrorAs(t, err, &ledgerErr)
}

func TestRun_RowIsolation(t *testing.T) {
	good1 := testInvoice(1, "101")
	bad := testInvoice(2, "102")
	bad.LineItems[0].SKU = "MISSING"
	good2 := testInvoice(3, "103")
	invoices := []models.Invoice{good1, bad, good2}
	h := newHarness(t, testGateway(), testSettings(), invoices...)

	out, err := h.pipeline.Run(context.Background(), invoices)
	require.NoError(t, err)

	require.Len(t, out.Succeeded, 2)
	assert.Equal(t, "101", out.Succeeded[0].DocNumber)
	assert.Equal(t, "103", out.Succeeded[1].DocNumber)
	require.Len(t, out.Failed, 1)
	assert.Equal(t, 2, out.Failed[0].InvoiceID)

	aggErr := out.Err()
	require.Error(t, aggErr)
	assert.True(t, strings.HasPrefix(aggErr.Error(), etlerror.AggregateHeader+"\n"))
	assert.Contains(t, aggErr.Error(), "failed to look up sku: MISSING")
	assert.True(t, h.logger.HasEntry("WARN", "Invoice skipped"))
}

func TestRun_AllSucceeded(t *testing.T) {
	invoices := []models.Invoice{testInvoice(1, "101"), testInvoice(2, "102")}
	h := newHarness(t, testGateway(), testSettings(), invoices...)

	out, err := h.pipeline.Run(context.Background(), invoices)
	require.NoError(t, err)
	assert.Len(t, out.Succeeded, 2)
	assert.Empty(t, out.Failed)
	assert.NoError(t, out.Err())
}

func TestRun_CustomerCreatedOnceAcrossRows(t *testing.T) {
	first := testInvoice(1, "101")
	first.Customer = models.Customer{Email: "New.Buyer@Example.com", FirstName: "New", LastName: "Buyer"}
	second := testInvoice(2, "102")
	second.Customer = models.Customer{Email: "new.buyer@example.com ", FirstName: "New", LastName: "Buyer"}
	invoices := []models.Invoice{first, second}

	gw := testGateway()
	gw.Customers = append(gw.Customers, models.TargetCustomer{ID: "5", DisplayName: "New Buyer #00001"})
	h := newHarness(t, gw, testSettings(), invoices...)

	out, err := h.pipeline.Run(context.Background(), invoices)
	require.NoError(t, err)
	require.Len(t, out.Succeeded, 2)

	assert.Equal(t, 1, gw.AddCount(ledger.EntityCustomer))
	assert.Equal(t, out.Succeeded[0].CustomerRef, out.Succeeded[1].CustomerRef)

	created := gw.Customers[len(gw.Customers)-1]
	assert.Equal(t, "New Buyer #00002", created.DisplayName)
	assert.Equal(t, created.ID, out.Succeeded[0].CustomerRef.Value)
}

func TestRun_MissingEmailsNeverShareCustomer(t *testing.T) {
	alice := testInvoice(1, "101")
	alice.Customer = models.Customer{FirstName: "Alice", LastName: "A"}
	bob := testInvoice(2, "102")
	bob.Customer = models.Customer{FirstName: "Bob", LastName: "B"}
	invoices := []models.Invoice{alice, bob}

	gw := testGateway()
	h := newHarness(t, gw, testSettings(), invoices...)

	out, err := h.pipeline.Run(context.Background(), invoices)
	require.NoError(t, err)

	assert.Empty(t, out.Succeeded)
	require.Len(t, out.Failed, 2)
	for _, rowErr := range out.Failed {
		assert.Equal(t, StageCustomer, rowErr.Stage)
	}
	assert.Equal(t, 0, gw.AddCount(ledger.EntityCustomer))
}

func TestRun_CustomerCreationFailureAborts(t *testing.T) {
	first := testInvoice(1, "101")
	first.Customer.Email = "someone@else.com"
	invoices := []models.Invoice{first, testInvoice(2, "102")}

	gw := testGateway()
	gw.AddCustomerError = errors.New("duplicate name")
	h := newHarness(t, gw, testSettings(), invoices...)

	out, err := h.pipeline.Run(context.Background(), invoices)
	require.Error(t, err)
	assert.True(t, etlerror.IsFatal(err))
	assert.Contains(t, err.Error(), "customer stage")
	assert.Empty(t, out.Succeeded)
	assert.Empty(t, out.Failed)
}

func TestRun_CancelledContext(t *testing.T) {
	invoices := []models.Invoice{testInvoice(1, "101")}
	h := newHarness(t, testGateway(), testSettings(), invoices...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.pipeline.Run(ctx, invoices)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildCaches_QueriesOncePerBulkCache(t *testing.T) {
	gw := testGateway()
	invoices := []models.Invoice{testInvoice(1, "101"), testInvoice(2, "102")}
	h := newHarness(t, gw, testSettings(), invoices...)
	built := gw.TotalQueries()
	assert.Equal(t, 6, built, "customer, deposit, payment method, sku, tax code, shipping")

	_, err := h.pipeline.Run(context.Background(), invoices)
	require.NoError(t, err)
	assert.Equal(t, built+1, gw.TotalQueries(), "only the lazy class lookup queries during the row loop")
}

func TestBuildCaches_PropagatesLedgerErrors(t *testing.T) {
	gw := testGateway()
	gw.QueryErrors = map[ledger.Entity]error{ledger.EntityDeposit: errors.New("timeout")}
	source := ledger.NewQueryDataSource(gw, logging.NewMockLogger())

	_, err := BuildCaches(context.Background(), source, models.NewInvoiceBatch([]models.Invoice{testInvoice(1, "1")}), testSettings().PaymentNames, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deposit account cache")
}
