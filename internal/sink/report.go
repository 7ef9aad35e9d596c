package sink

import (
	"context"
	"fmt"

	"hhn/ledger-bridge/internal/etlerror"
	"hhn/ledger-bridge/internal/fileutils"
	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/models"

	"github.com/gocarina/gocsv"
)

// reportRow is one line of the CSV run report.
type reportRow struct {
	DocNumber     string `csv:"DocNumber"`
	TxnDate       string `csv:"TxnDate"`
	InvoiceDate   string `csv:"InvoiceDate"`
	PaymentRefNum string `csv:"PaymentRefNum"`
	CustomerID    string `csv:"CustomerId"`
	Email         string `csv:"Email"`
	ItemLines     int    `csv:"ItemLines"`
	Discount      string `csv:"Discount"`
	Total         string `csv:"Total"`
}

func newReportRow(txn models.TargetTransaction) reportRow {
	row := reportRow{
		DocNumber:     txn.DocNumber,
		PaymentRefNum: txn.PaymentRefNum,
		ItemLines:     txn.CountLines(models.SalesItemLineDetailType),
		Total:         txn.Total().StringFixed(2),
		Discount:      "0.00",
	}
	if !txn.TxnDate.IsZero() {
		row.TxnDate = txn.TxnDate.Format("2006-01-02")
	}
	if len(txn.CustomFields) > 0 {
		row.InvoiceDate = txn.CustomFields[0].StringValue
	}
	if txn.CustomerRef != nil {
		row.CustomerID = string(txn.CustomerRef.Value)
	}
	if txn.BillEmail != nil {
		row.Email = txn.BillEmail.Address
	}
	for _, l := range txn.Lines {
		if l.DetailType == models.DiscountLineDetailType {
			row.Discount = l.Amount.StringFixed(2)
		}
	}
	return row
}

// CSVReportSink writes a one-row-per-receipt CSV summary.
type CSVReportSink struct {
	path   string
	logger logging.Logger
}

// NewCSVReportSink creates a CSVReportSink writing to path.
func NewCSVReportSink(path string, logger logging.Logger) *CSVReportSink {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &CSVReportSink{path: path, logger: logger}
}

// Write implements Sink. The file is replaced atomically.
func (s *CSVReportSink) Write(_ context.Context, txns []models.TargetTransaction) error {
	rows := make([]reportRow, 0, len(txns))
	for _, txn := range txns {
		rows = append(rows, newReportRow(txn))
	}

	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return &etlerror.LoadError{Sink: "csv report", Err: fmt.Errorf("error writing CSV data: %w", err)}
	}
	if err := fileutils.WriteFileAtomic(s.path, data, 0644); err != nil {
		return &etlerror.LoadError{Sink: "csv report", Err: err}
	}

	s.logger.Info("Wrote CSV report",
		logging.F(logging.FieldOutputFile, s.path),
		logging.F(logging.FieldCount, len(rows)))
	return nil
}
