// Package models holds the records exchanged by the transfer stages: the
// shop-side invoices read from the source ledger and the transaction,
// customer and reference records of the accounting ledger.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the closed set of payment tags an invoice can carry.
type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "CARD"
	PaymentPayPal PaymentMethod = "PAYPAL"
	// PaymentUnknown marks a source payment method outside the closed set.
	// Such invoices fail the payment stage.
	PaymentUnknown PaymentMethod = ""
)

// PaymentMethods lists every valid tag.
var PaymentMethods = []PaymentMethod{PaymentCard, PaymentPayPal}

// ParsePaymentMethod maps a raw shop payment method code onto a tag. The shop
// reports card payments through its Square gateway, so codes mentioning
// SQUARE or CARD are card payments.
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case upper == "":
		return PaymentUnknown, false
	case strings.Contains(upper, "SQUARE"), strings.Contains(upper, "CARD"):
		return PaymentCard, true
	case strings.Contains(upper, "PAYPAL"):
		return PaymentPayPal, true
	default:
		return PaymentUnknown, false
	}
}

func (p PaymentMethod) String() string {
	if p == PaymentUnknown {
		return "UNKNOWN"
	}
	return string(p)
}

// Address is a postal address reduced to its region and a single line.
type Address struct {
	Province    string `yaml:"province,omitempty"`
	FullAddress string `yaml:"full_address"`
}

// NewAddress creates an Address with trimmed fields.
func NewAddress(province, fullAddress string) Address {
	return Address{
		Province:    strings.TrimSpace(province),
		FullAddress: strings.TrimSpace(fullAddress),
	}
}

// Customer is the buyer of an invoice. Identity is the email, compared
// case-insensitively.
type Customer struct {
	Email           string  `yaml:"email"`
	FirstName       string  `yaml:"first_name"`
	MiddleName      string  `yaml:"middle_name,omitempty"`
	LastName        string  `yaml:"last_name"`
	BillingAddress  Address `yaml:"billing_address"`
	ShippingAddress Address `yaml:"shipping_address"`
}

// Key returns the normalized email used for deduplication and lookups.
func (c Customer) Key() string {
	return NormalizeEmail(c.Email)
}

// FullName joins the non-empty name parts with single spaces.
func (c Customer) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.FirstName, c.MiddleName, c.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LineItem is one product line of an invoice. Identity is the SKU.
type LineItem struct {
	SKU          string          `yaml:"sku"`
	DisplayName  string          `yaml:"display_name"`
	Quantity     int             `yaml:"quantity"`
	UnitPrice    decimal.Decimal `yaml:"unit_price"`
	TotalWithTax decimal.Decimal `yaml:"total_with_tax"`
	TaxCode      string          `yaml:"tax_code"`
}

// ShippingInfo describes how an invoice was shipped.
type ShippingInfo struct {
	Designation string          `yaml:"designation"`
	Cost        decimal.Decimal `yaml:"cost"`
	Address     string          `yaml:"address"`
}

// Invoice is one sale read from the shop. Identity is ID.
type Invoice struct {
	ID              int             `yaml:"id"`
	OrderName       string          `yaml:"order_name"`
	InvoiceName     string          `yaml:"invoice_name"`
	TransactionDate time.Time       `yaml:"transaction_date"`
	LineItems       []LineItem      `yaml:"line_items"`
	Customer        Customer        `yaml:"customer"`
	TotalDiscount   decimal.Decimal `yaml:"total_discount"`
	Shipping        ShippingInfo    `yaml:"shipping"`
	PaymentMethod   PaymentMethod   `yaml:"payment_method"`
}

// WithLineItem returns a copy of inv with item appended. The receiver's line
// item slice is never shared with the copy.
func (inv Invoice) WithLineItem(item LineItem) Invoice {
	items := make([]LineItem, len(inv.LineItems), len(inv.LineItems)+1)
	copy(items, inv.LineItems)
	inv.LineItems = append(items, item)
	return inv
}

// TaxCode returns the tax code of the first line item that has one. An
// invoice is treated as tax-homogeneous.
func (inv Invoice) TaxCode() (string, bool) {
	for _, item := range inv.LineItems {
		if item.TaxCode != "" {
			return item.TaxCode, true
		}
	}
	return "", false
}
