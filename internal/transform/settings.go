// Package transform turns shop invoices into ledger sales receipts. Each
// invoice runs through a fixed sequence of stages; a stage that cannot
// resolve a business key fails only that invoice.
package transform

import (
	"hhn/ledger-bridge/internal/config"
	"hhn/ledger-bridge/internal/models"
)

// Settings are the transfer options the stages read.
type Settings struct {
	// InvoiceDateField is the 1-based position of the custom field that
	// receives the invoice timestamp. Zero means unset.
	InvoiceDateField int
	ClassName        string
	DepositAccount   string
	// ShippingSKU selects the service item used for shipping lines. Empty
	// means shipping lines reference a placeholder item.
	ShippingSKU   string
	TimeDiffHours int
	// TaxCodes translates shop tax codes into ledger tax code names.
	TaxCodes map[string]string
	// PaymentNames maps payment tags to ledger payment method names.
	PaymentNames map[models.PaymentMethod]string
}

// SettingsFromConfig extracts Settings from the transfer configuration.
// taxCodes is the merged translation table.
func SettingsFromConfig(cfg config.TransferConfig, taxCodes map[string]string) Settings {
	if taxCodes == nil {
		taxCodes = cfg.TaxCodeTable()
	}
	return Settings{
		InvoiceDateField: cfg.InvoiceDateField,
		ClassName:        cfg.ClassName,
		DepositAccount:   cfg.DepositAccount,
		ShippingSKU:      cfg.ShippingSKU,
		TimeDiffHours:    cfg.TimeDiffHours,
		TaxCodes:         taxCodes,
		PaymentNames: map[models.PaymentMethod]string{
			models.PaymentCard:   cfg.PaymentMethods.Card,
			models.PaymentPayPal: cfg.PaymentMethods.PayPal,
		},
	}
}
