// Package watermark computes the timestamp after which shop invoices still
// need to be transferred.
package watermark

import (
	"context"
	"fmt"
	"time"

	"hhn/ledger-bridge/internal/dateutils"
	"hhn/ledger-bridge/internal/etlerror"
	"hhn/ledger-bridge/internal/ledger"
	"hhn/ledger-bridge/internal/logging"
)

const sourceName = "watermark"

// Settings configure a Resolver.
type Settings struct {
	// DocNumberPrefix selects the sales receipts written by earlier runs.
	DocNumberPrefix string
	// InvoiceDateField is the 1-based custom field position holding the
	// invoice timestamp. Zero means unset.
	InvoiceDateField int
	// MaxLookback is the fallback watermark, in dateutils.DateLayoutFull.
	MaxLookback string
}

// Resolver derives the extraction watermark from the last imported receipt.
type Resolver struct {
	source   ledger.DataSource
	settings Settings
	logger   logging.Logger
}

// NewResolver creates a Resolver. source may be nil when only
// ResolveOffline is used.
func NewResolver(source ledger.DataSource, settings Settings, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Resolver{source: source, settings: settings, logger: logger}
}

// ResolveMinimumDate returns the invoice timestamp stored on the most
// recently imported receipt, or the configured lookback date when there is
// no such receipt or no invoice date field is configured.
func (r *Resolver) ResolveMinimumDate(ctx context.Context) (time.Time, error) {
	if r.source == nil {
		return time.Time{}, &etlerror.ExtractionError{Source: sourceName, Reason: "no ledger connection configured"}
	}

	last, found, err := r.source.LastImportedTransaction(ctx, r.settings.DocNumberPrefix)
	if err != nil {
		return time.Time{}, err
	}
	if !found || r.settings.InvoiceDateField <= 0 {
		return r.lookback()
	}

	// Written 1-based, read 0-based.
	pos := r.settings.InvoiceDateField - 1
	value, ok := last.CustomFieldValue(pos)
	if !ok {
		return time.Time{}, &etlerror.ExtractionError{
			Source: sourceName,
			Reason: fmt.Sprintf("invoice date field %d is out of bounds for receipt %s with %d custom fields",
				r.settings.InvoiceDateField, last.DocNumber, len(last.CustomFields)),
		}
	}
	ts, err := dateutils.ParseFull(value)
	if err != nil {
		return time.Time{}, &etlerror.ExtractionError{
			Source: sourceName,
			Reason: fmt.Sprintf("unable to parse invoice date of receipt %s", last.DocNumber),
			Err:    err,
		}
	}

	r.logger.Info("Exporting invoices after last imported receipt",
		logging.F(logging.FieldDocNumber, last.DocNumber),
		logging.F(logging.FieldWatermark, dateutils.FormatFull(ts)))
	return ts, nil
}

// ResolveOffline returns the configured lookback date without querying the
// ledger.
func (r *Resolver) ResolveOffline() (time.Time, error) {
	return r.lookback()
}

func (r *Resolver) lookback() (time.Time, error) {
	ts, err := dateutils.ParseFull(r.settings.MaxLookback)
	if err != nil {
		return time.Time{}, &etlerror.ExtractionError{
			Source: sourceName,
			Reason: "unable to parse transfer.max_lookback",
			Err:    err,
		}
	}
	r.logger.Info("Using maximum lookback date",
		logging.F(logging.FieldWatermark, dateutils.FormatFull(ts)))
	return ts, nil
}
