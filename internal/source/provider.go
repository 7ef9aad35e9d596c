// Package source reads shop invoices from the source ledger.
package source

import (
	"context"
	"time"

	"hhn/ledger-bridge/internal/models"
)

// Provider returns every invoice created strictly after a timestamp.
type Provider interface {
	FetchInvoices(ctx context.Context, after time.Time) (models.InvoiceBatch, error)
}
