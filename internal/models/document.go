// Package models defines the domain types for Tally.
package models

// Kind selects which header fields a document carries.
type Kind string

// Document kinds.
const (
	KindInvoice       Kind = "invoice"
	KindPurchaseOrder Kind = "purchase_order"
)

// Valid reports whether k is a known document kind.
func (k Kind) Valid() bool {
	return k == KindInvoice || k == KindPurchaseOrder
}

// HeaderField names one editable header field.
type HeaderField string

// Header fields. Invoices use company_address, client_name, client_address and
// terms; purchase orders use vendor and terms.
const (
	FieldCompanyAddress HeaderField = "company_address"
	FieldClientName     HeaderField = "client_name"
	FieldClientAddress  HeaderField = "client_address"
	FieldVendor         HeaderField = "vendor"
	FieldTerms          HeaderField = "terms"
)

// ItemField names one editable line item field.
type ItemField string

// Line item fields.
const (
	ItemName     ItemField = "name"
	ItemQuantity ItemField = "quantity"
	ItemPrice    ItemField = "price"
)

// Header holds the free-text header fields of a document. Fields that do not
// belong to the document kind stay empty.
type Header struct {
	CompanyAddress string `json:"company_address,omitempty" yaml:"company_address,omitempty"`
	ClientName     string `json:"client_name,omitempty" yaml:"client_name,omitempty"`
	ClientAddress  string `json:"client_address,omitempty" yaml:"client_address,omitempty"`
	Vendor         string `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Terms          string `json:"terms" yaml:"terms"`
}

// Item is one line of a document. Quantity and Price are kept exactly as typed.
type Item struct {
	Name     string `json:"name" yaml:"name"`
	Quantity string `json:"quantity" yaml:"quantity"`
	Price    string `json:"price" yaml:"price"`
}
