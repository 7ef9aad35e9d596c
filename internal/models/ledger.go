package models

import "strings"

// ReferenceID is an opaque identifier assigned by the accounting ledger.
type ReferenceID string

// Ref is a reference to a ledger entity as it appears in ledger records.
type Ref struct {
	Value ReferenceID `json:"value" yaml:"value"`
	Name  string      `json:"name,omitempty" yaml:"name,omitempty"`
}

// NewRef returns a reference to id.
func NewRef(id ReferenceID) *Ref {
	return &Ref{Value: id}
}

// PhysicalAddress is a ledger address.
type PhysicalAddress struct {
	Line1                  string `json:"Line1,omitempty" yaml:"line1,omitempty"`
	CountrySubDivisionCode string `json:"CountrySubDivisionCode,omitempty" yaml:"region,omitempty"`
}

// EmailAddress is a ledger email holder.
type EmailAddress struct {
	Address string `json:"Address,omitempty" yaml:"address,omitempty"`
}

// CustomFieldTypeString is the only custom field type written by the transfer.
const CustomFieldTypeString = "StringType"

// CustomField is a user-defined field on a ledger transaction.
type CustomField struct {
	DefinitionID string `json:"DefinitionId" yaml:"definition_id"`
	Name         string `json:"Name,omitempty" yaml:"name,omitempty"`
	Type         string `json:"Type,omitempty" yaml:"type,omitempty"`
	StringValue  string `json:"StringValue,omitempty" yaml:"string_value,omitempty"`
}

// LedgerItem is a product or service known to the ledger.
type LedgerItem struct {
	ID     ReferenceID `json:"Id"`
	Name   string      `json:"Name"`
	SKU    string      `json:"Sku,omitempty"`
	Type   string      `json:"Type,omitempty"`
	Active bool        `json:"Active"`
}

// TrimmedSKU returns the item SKU without surrounding blanks.
func (i LedgerItem) TrimmedSKU() string {
	return strings.TrimSpace(i.SKU)
}

// LedgerClass is a ledger transaction class.
type LedgerClass struct {
	ID   ReferenceID `json:"Id"`
	Name string      `json:"Name"`
}

// LedgerDeposit is a ledger deposit; only its deposit-to account is used.
type LedgerDeposit struct {
	ID                  ReferenceID `json:"Id"`
	DepositToAccountRef Ref         `json:"DepositToAccountRef"`
}

// LedgerPaymentMethod is a ledger payment method.
type LedgerPaymentMethod struct {
	ID   ReferenceID `json:"Id"`
	Name string      `json:"Name"`
}

// LedgerTaxCode is a ledger sales tax code.
type LedgerTaxCode struct {
	ID     ReferenceID `json:"Id"`
	Name   string      `json:"Name"`
	Active bool        `json:"Active"`
}

// TargetCustomer is a customer record of the ledger.
type TargetCustomer struct {
	ID                 ReferenceID      `json:"Id,omitempty"`
	DisplayName        string           `json:"DisplayName,omitempty"`
	FullyQualifiedName string           `json:"FullyQualifiedName,omitempty"`
	GivenName          string           `json:"GivenName,omitempty"`
	MiddleName         string           `json:"MiddleName,omitempty"`
	FamilyName         string           `json:"FamilyName,omitempty"`
	PrimaryEmailAddr   *EmailAddress    `json:"PrimaryEmailAddr,omitempty"`
	BillAddr           *PhysicalAddress `json:"BillAddr,omitempty"`
	ShipAddr           *PhysicalAddress `json:"ShipAddr,omitempty"`
}

// Email returns the primary email, or "".
func (c TargetCustomer) Email() string {
	if c.PrimaryEmailAddr == nil {
		return ""
	}
	return c.PrimaryEmailAddr.Address
}

// NewTargetCustomer builds the ledger record for a shop customer. The
// display name is set separately once it has been disambiguated.
func NewTargetCustomer(c Customer) TargetCustomer {
	tc := TargetCustomer{
		GivenName:  c.FirstName,
		MiddleName: c.MiddleName,
		FamilyName: c.LastName,
	}
	if c.Email != "" {
		tc.PrimaryEmailAddr = &EmailAddress{Address: strings.TrimSpace(c.Email)}
	}
	if c.BillingAddress.FullAddress != "" {
		tc.BillAddr = &PhysicalAddress{
			Line1:                  c.BillingAddress.FullAddress,
			CountrySubDivisionCode: c.BillingAddress.Province,
		}
	}
	if c.ShippingAddress.FullAddress != "" {
		tc.ShipAddr = &PhysicalAddress{Line1: c.ShippingAddress.FullAddress}
	}
	return tc
}
