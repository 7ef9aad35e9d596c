package models

import (
	"strings"
	"time"
)

// InvoiceBatch is the unit handed from extraction to transformation: the
// invoices plus the distinct customers and items they reference, so lookup
// caches can be primed without rescanning invoices.
type InvoiceBatch struct {
	Invoices  []Invoice  `yaml:"invoices"`
	Customers []Customer `yaml:"customers"`
	Items     []LineItem `yaml:"items"`
}

// NewInvoiceBatch builds a batch from invoices in source order. Customers
// are deduplicated by normalized email and items by trimmed SKU; the first
// occurrence wins and first-seen order is kept.
func NewInvoiceBatch(invoices []Invoice) InvoiceBatch {
	batch := InvoiceBatch{Invoices: invoices}

	seenCustomers := make(map[string]bool)
	seenItems := make(map[string]bool)
	for _, inv := range invoices {
		if key := inv.Customer.Key(); !seenCustomers[key] {
			seenCustomers[key] = true
			batch.Customers = append(batch.Customers, inv.Customer)
		}
		for _, item := range inv.LineItems {
			if key := strings.TrimSpace(item.SKU); !seenItems[key] {
				seenItems[key] = true
				batch.Items = append(batch.Items, item)
			}
		}
	}
	return batch
}

// Len returns the number of invoices.
func (b InvoiceBatch) Len() int {
	return len(b.Invoices)
}

// IsEmpty reports whether the batch carries no invoices.
func (b InvoiceBatch) IsEmpty() bool {
	return len(b.Invoices) == 0
}

// Emails returns the normalized email of every distinct customer.
func (b InvoiceBatch) Emails() []string {
	emails := make([]string, 0, len(b.Customers))
	for _, c := range b.Customers {
		emails = append(emails, c.Key())
	}
	return emails
}

// SKUs returns the trimmed SKU of every distinct item. Blank SKUs are
// skipped.
func (b InvoiceBatch) SKUs() []string {
	skus := make([]string, 0, len(b.Items))
	seen := make(map[string]bool, len(b.Items))
	for _, item := range b.Items {
		sku := strings.TrimSpace(item.SKU)
		if sku == "" || seen[sku] {
			continue
		}
		seen[sku] = true
		skus = append(skus, sku)
	}
	return skus
}

// SnapshotVersion is the current snapshot file format.
const SnapshotVersion = 1

// Snapshot is an extracted batch persisted between the extract and load
// commands.
type Snapshot struct {
	Version     int          `yaml:"version"`
	ExtractedAt time.Time    `yaml:"extracted_at"`
	After       time.Time    `yaml:"after"`
	Batch       InvoiceBatch `yaml:"batch"`
}
