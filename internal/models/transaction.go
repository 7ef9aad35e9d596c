package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LineDetailType discriminates the detail attached to a transaction line.
type LineDetailType string

const (
	SalesItemLineDetailType LineDetailType = "SalesItemLineDetail"
	DiscountLineDetailType  LineDetailType = "DiscountLineDetail"
)

// ShippingPlaceholderItemID is the item reference used for shipping lines
// when no shipping SKU is configured.
const ShippingPlaceholderItemID ReferenceID = "SHIPPING_ITEM_ID"

// SalesItemLineDetail is the detail of a product or shipping line.
type SalesItemLineDetail struct {
	ItemRef    *Ref            `json:"ItemRef,omitempty" yaml:"item_ref,omitempty"`
	ClassRef   *Ref            `json:"ClassRef,omitempty" yaml:"class_ref,omitempty"`
	TaxCodeRef *Ref            `json:"TaxCodeRef,omitempty" yaml:"tax_code_ref,omitempty"`
	Qty        decimal.Decimal `json:"Qty" yaml:"qty"`
	UnitPrice  decimal.Decimal `json:"UnitPrice" yaml:"unit_price"`
}

// MarshalJSON encodes Qty and UnitPrice as JSON numbers.
func (d SalesItemLineDetail) MarshalJSON() ([]byte, error) {
	type plain SalesItemLineDetail
	return json.Marshal(struct {
		plain
		Qty       json.Number `json:"Qty"`
		UnitPrice json.Number `json:"UnitPrice"`
	}{plain(d), json.Number(d.Qty.String()), json.Number(d.UnitPrice.String())})
}

// DiscountLineDetail is the detail of a discount line.
type DiscountLineDetail struct {
	PercentBased bool `json:"PercentBased" yaml:"percent_based"`
}

// Line is one entry of a ledger transaction.
type Line struct {
	DetailType          LineDetailType       `json:"DetailType" yaml:"detail_type"`
	Amount              decimal.Decimal      `json:"Amount" yaml:"amount"`
	Description         string               `json:"Description,omitempty" yaml:"description,omitempty"`
	SalesItemLineDetail *SalesItemLineDetail `json:"SalesItemLineDetail,omitempty" yaml:"sales_item,omitempty"`
	DiscountLineDetail  *DiscountLineDetail  `json:"DiscountLineDetail,omitempty" yaml:"discount,omitempty"`
}

// MarshalJSON encodes Amount as a JSON number.
func (l Line) MarshalJSON() ([]byte, error) {
	type plain Line
	return json.Marshal(struct {
		plain
		Amount json.Number `json:"Amount"`
	}{plain(l), json.Number(l.Amount.String())})
}

// TxnTaxDetail carries the transaction-level tax code.
type TxnTaxDetail struct {
	TxnTaxCodeRef *Ref `json:"TxnTaxCodeRef,omitempty" yaml:"txn_tax_code_ref,omitempty"`
}

// Date is a calendar date encoded as YYYY-MM-DD in ledger records.
type Date struct {
	time.Time
}

// MarshalJSON encodes the date without a time part.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

// UnmarshalJSON accepts YYYY-MM-DD or an empty string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// TargetTransaction is the sales receipt written to the ledger for one
// invoice.
type TargetTransaction struct {
	ID                  ReferenceID      `json:"Id,omitempty" yaml:"id,omitempty"`
	DocNumber           string           `json:"DocNumber" yaml:"doc_number"`
	TxnDate             Date             `json:"TxnDate" yaml:"txn_date"`
	CustomFields        []CustomField    `json:"CustomField,omitempty" yaml:"custom_fields,omitempty"`
	ClassRef            *Ref             `json:"ClassRef,omitempty" yaml:"class_ref,omitempty"`
	Lines               []Line           `json:"Line" yaml:"lines"`
	PaymentMethodRef    *Ref             `json:"PaymentMethodRef,omitempty" yaml:"payment_method_ref,omitempty"`
	PaymentRefNum       string           `json:"PaymentRefNum,omitempty" yaml:"payment_ref_num,omitempty"`
	BillAddr            *PhysicalAddress `json:"BillAddr,omitempty" yaml:"bill_addr,omitempty"`
	BillEmail           *EmailAddress    `json:"BillEmail,omitempty" yaml:"bill_email,omitempty"`
	DepositToAccountRef *Ref             `json:"DepositToAccountRef,omitempty" yaml:"deposit_to_account_ref,omitempty"`
	TxnTaxDetail        *TxnTaxDetail    `json:"TxnTaxDetail,omitempty" yaml:"txn_tax_detail,omitempty"`
	CustomerRef         *Ref             `json:"CustomerRef,omitempty" yaml:"customer_ref,omitempty"`
	ShipAddr            *PhysicalAddress `json:"ShipAddr,omitempty" yaml:"ship_addr,omitempty"`
	ShipMethodRef       *Ref             `json:"ShipMethodRef,omitempty" yaml:"ship_method_ref,omitempty"`
}

// CustomFieldValue returns the string value of the custom field at the
// 0-based position index.
func (t TargetTransaction) CustomFieldValue(index int) (string, bool) {
	if index < 0 || index >= len(t.CustomFields) {
		return "", false
	}
	return t.CustomFields[index].StringValue, true
}

// CountLines returns the number of lines of the given detail type.
func (t TargetTransaction) CountLines(kind LineDetailType) int {
	n := 0
	for _, l := range t.Lines {
		if l.DetailType == kind {
			n++
		}
	}
	return n
}

// Total sums the sales lines and subtracts the discount lines.
func (t TargetTransaction) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range t.Lines {
		switch l.DetailType {
		case SalesItemLineDetailType:
			total = total.Add(l.Amount)
		case DiscountLineDetailType:
			total = total.Sub(l.Amount)
		}
	}
	return total
}
