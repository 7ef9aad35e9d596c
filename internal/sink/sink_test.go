package sink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
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

func testReceipt(doc string) models.TargetTransaction {
	return models.TargetTransaction{
		DocNumber:     doc,
		TxnDate:       models.Date{Time: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)},
		CustomFields:  []models.CustomField{{DefinitionID: "1", StringValue: "2023-05-01 10:00:00"}},
		PaymentRefNum: "INV" + doc,
		CustomerRef:   models.NewRef("1"),
		BillEmail:     &models.EmailAddress{Address: "jane@example.com"},
		Lines: []models.Line{
			{DetailType: models.SalesItemLineDetailType, Amount: dec("20.00"), SalesItemLineDetail: &models.SalesItemLineDetail{ItemRef: models.NewRef("10")}},
			{DetailType: models.DiscountLineDetailType, Amount: dec("2.50"), DiscountLineDetail: &models.DiscountLineDetail{}},
			{DetailType: models.SalesItemLineDetailType, Amount: dec("5.00"), SalesItemLineDetail: &models.SalesItemLineDetail{ItemRef: models.NewRef("SHIPPING_ITEM_ID")}},
		},
	}
}

func TestLedgerSink_LoadsInOrder(t *testing.T) {
	gw := ledger.NewMockGateway()
	logger := logging.NewMockLogger()
	s := NewLedgerSink(gw, logger)

	err := s.Write(context.Background(), []models.TargetTransaction{testReceipt("101"), testReceipt("102")})
	require.NoError(t, err)

	require.Len(t, gw.SalesReceipts, 2)
	assert.Equal(t, "101", gw.SalesReceipts[0].DocNumber)
	assert.Equal(t, "102", gw.SalesReceipts[1].DocNumber)
	require.Len(t, s.Loaded(), 2)
	assert.NotEmpty(t, s.Loaded()[0].ID)
	assert.Len(t, logger.GetEntriesByLevel("INFO"), 2)
}

func TestLedgerSink_StopsAtFirstRejection(t *testing.T) {
	gw := ledger.NewMockGateway()
	gw.FailDocNumbers = map[string]error{"102": errors.New("Duplicate Document Number Error")}
	s := NewLedgerSink(gw, logging.NewMockLogger())

	err := s.Write(context.Background(), []models.TargetTransaction{testReceipt("101"), testReceipt("102"), testReceipt("103")})
	require.Error(t, err)

	var loadErr *etlerror.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "102", loadErr.DocNumber)
	var ledgerErr *etlerror.LedgerError
	assert.ErrorAs(t, err, &ledgerErr)
	assert.True(t, etlerror.IsFatal(err))

	assert.Equal(t, 2, gw.AddCount(ledger.EntitySalesReceipt))
	assert.Len(t, s.Loaded(), 1)
}

func TestLedgerSink_CancelledContext(t *testing.T) {
	gw := ledger.NewMockGateway()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewLedgerSink(gw, nil).Write(ctx, []models.TargetTransaction{testReceipt("101")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, gw.AddCount(ledger.EntitySalesReceipt))
}

func TestCSVReportSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.csv")
	s := NewCSVReportSink(path, logging.NewMockLogger())

	require.NoError(t, s.Write(context.Background(), []models.TargetTransaction{testReceipt("101")}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "DocNumber,TxnDate,InvoiceDate,PaymentRefNum,CustomerId,Email,ItemLines,Discount,Total", lines[0])
	assert.Equal(t, "101,2023-05-01,2023-05-01 10:00:00,INV101,1,jane@example.com,2,2.50,22.50", lines[1])
}

func TestMultiSink(t *testing.T) {
	gw := ledger.NewMockGateway()
	path := filepath.Join(t.TempDir(), "run.csv")
	multi := MultiSink{NewLedgerSink(gw, nil), NewCSVReportSink(path, nil)}

	require.NoError(t, multi.Write(context.Background(), []models.TargetTransaction{testReceipt("101")}))
	assert.Len(t, gw.SalesReceipts, 1)
	assert.FileExists(t, path)

	gw.FailDocNumbers = map[string]error{"102": errors.New("rejected")}
	other := filepath.Join(t.TempDir(), "other.csv")
	multi = MultiSink{NewLedgerSink(gw, nil), NewCSVReportSink(other, nil)}
	require.Error(t, multi.Write(context.Background(), []models.TargetTransaction{testReceipt("102")}))
	assert.NoFileExists(t, other, "later sinks are skipped after a failure")
}

func TestLogSink(t *testing.T) {
	logger := logging.NewMockLogger()
	require.NoError(t, NewLogSink(logger).Write(context.Background(), []models.TargetTransaction{testReceipt("101")}))

	total, ok := logger.FieldValue("Dry run: sales receipt not loaded", "total")
	assert.True(t, ok)
	assert.Equal(t, "22.50", total)
}

func TestSnapshotRoundTrip(t *testing.T) {
	inv := models.Invoice{
		ID:              7,
		OrderName:       "100000007",
		TransactionDate: time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC),
		LineItems:       []models.LineItem{{SKU: "TEA-1", Quantity: 2, UnitPrice: dec("10"), TotalWithTax: dec("22.6"), TaxCode: "Taxable Goods"}},
		Customer:        models.Customer{Email: "jane@example.com", FirstName: "Jane"},
		TotalDiscount:   dec("-5"),
		PaymentMethod:   models.PaymentCard,
	}
	snapshot := models.Snapshot{
		ExtractedAt: time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC),
		After:       time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Batch:       models.NewInvoiceBatch([]models.Invoice{inv}),
	}
	path := filepath.Join(t.TempDir(), "snapshot.yaml")

	require.NoError(t, WriteSnapshot(path, snapshot))
	got, err := ReadSnapshot(path)
	require.NoError(t, err)

	assert.Equal(t, models.SnapshotVersion, got.Version)
	assert.True(t, snapshot.After.Equal(got.After))
	require.Len(t, got.Batch.Invoices, 1)
	assert.Equal(t, "100000007", got.Batch.Invoices[0].OrderName)
	assert.True(t, got.Batch.Invoices[0].LineItems[0].TotalWithTax.Equal(dec("22.6")))
	assert.Equal(t, []string{"jane@example.com"}, got.Batch.Emails())
}

func TestReadSnapshot_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadSnapshot(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("version: [\n"), 0600))
	_, err = ReadSnapshot(bad)
	assert.ErrorContains(t, err, "invalid snapshot")

	future := filepath.Join(dir, "future.yaml")
	require.NoError(t, os.WriteFile(future, []byte("version: 99\n"), 0600))
	_, err = ReadSnapshot(future)
	assert.ErrorContains(t, err, "unsupported snapshot version 99")
}
