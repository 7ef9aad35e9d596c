// Package batch runs a transfer: it resolves the watermark, extracts
// invoices, transforms them against per-run lookup caches and hands the
// receipts to the configured sink.
package batch

import (
	"fmt"
	"time"

	"hhn/ledger-bridge/internal/dateutils"
	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/models"
)

// DateRange represents a date range with start and end dates
type DateRange struct {
	Start time.Time
	End   time.Time
}

// String returns the date range in the format "YYYY-MM-DD_YYYY-MM-DD"
func (dr DateRange) String() string {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s_%s", dateutils.ToISODate(dr.Start), dateutils.ToISODate(dr.End))
}

// invoiceDateRange returns the earliest and latest transaction dates.
func invoiceDateRange(invoices []models.Invoice) DateRange {
	if len(invoices) == 0 {
		return DateRange{}
	}
	dr := DateRange{Start: invoices[0].TransactionDate, End: invoices[0].TransactionDate}
	for _, inv := range invoices[1:] {
		if inv.TransactionDate.Before(dr.Start) {
			dr.Start = inv.TransactionDate
		}
		if inv.TransactionDate.After(dr.End) {
			dr.End = inv.TransactionDate
		}
	}
	return dr
}

// Report summarizes one run.
type Report struct {
	RunID       string
	Watermark   time.Time
	Invoices    DateRange
	Extracted   int
	Transformed int
	Failed      int
	Loaded      int
	Duration    time.Duration
}

// Fields renders the report as structured log fields.
func (r Report) Fields() []logging.Field {
	fields := []logging.Field{
		logging.F(logging.FieldRunID, r.RunID),
		logging.F(logging.FieldCount, r.Extracted),
		logging.F("transformed", r.Transformed),
		logging.F(logging.FieldFailed, r.Failed),
		logging.F("loaded", r.Loaded),
		logging.F(logging.FieldDuration, r.Duration.Milliseconds()),
	}
	if !r.Watermark.IsZero() {
		fields = append(fields, logging.F(logging.FieldWatermark, dateutils.FormatFull(r.Watermark)))
	}
	if s := r.Invoices.String(); s != "" {
		fields = append(fields, logging.F("invoice_dates", s))
	}
	return fields
}

// detectDuplicateOrders logs invoices that share an order number. Both are
// kept; the ledger rejects the second receipt with the same document
// number at load time.
func detectDuplicateOrders(invoices []models.Invoice, logger logging.Logger) int {
	seen := make(map[string]int, len(invoices))
	duplicates := 0
	for _, inv := range invoices {
		if first, ok := seen[inv.OrderName]; ok {
			duplicates++
			logger.Warn("Potential duplicate order",
				logging.F(logging.FieldDocNumber, inv.OrderName),
				logging.F(logging.FieldInvoiceID, inv.ID),
				logging.F("first_invoice_id", first))
			continue
		}
		seen[inv.OrderName] = inv.ID
	}
	if duplicates > 0 {
		logger.Warn("Found potential duplicate orders", logging.F(logging.FieldCount, duplicates))
	}
	return duplicates
}
