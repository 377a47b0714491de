// Package document implements the editable invoice and purchase order model.
package document

import (
	"fmt"
	"strings"

	"github.com/starford/tally/internal/apperr"
	"github.com/starford/tally/internal/calc"
	"github.com/starford/tally/internal/models"
)

// DefaultCompanyAddress is the placeholder shown in a fresh invoice's issuer
// address. It counts as empty only while it is left untouched.
const DefaultCompanyAddress = `123 Your Company St.
City, State ZIP
Phone: (123) 456-7890
Email: info@yourcompany.com`

// DefaultTerms are the payment terms of a fresh document.
const DefaultTerms = "Net 30"

var kindFields = map[models.Kind][]models.HeaderField{
	models.KindInvoice: {
		models.FieldCompanyAddress,
		models.FieldClientName,
		models.FieldClientAddress,
		models.FieldTerms,
	},
	models.KindPurchaseOrder: {
		models.FieldVendor,
		models.FieldTerms,
	},
}

// Document is the full editable state of one invoice or purchase order.
// It always holds at least one item. A Document is not safe for concurrent
// use; callers serialise access.
type Document struct {
	kind   models.Kind
	header models.Header
	items  []models.Item
}

// New returns a document of the given kind with default header values and a
// single blank item.
func New(kind models.Kind) (*Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", apperr.ErrUnknownKind, kind)
	}
	d := &Document{
		kind:   kind,
		header: models.Header{Terms: DefaultTerms},
		items:  []models.Item{{}},
	}
	if kind == models.KindInvoice {
		d.header.CompanyAddress = DefaultCompanyAddress
	}
	return d, nil
}

// Kind returns the document kind.
func (d *Document) Kind() models.Kind {
	return d.kind
}

// Fields returns the header fields this document accepts, in display order.
func (d *Document) Fields() []models.HeaderField {
	fields := kindFields[d.kind]
	out := make([]models.HeaderField, len(fields))
	copy(out, fields)
	return out
}

// Header returns a copy of the header fields.
func (d *Document) Header() models.Header {
	return d.header
}

// HeaderField returns the current value of field.
func (d *Document) HeaderField(field models.HeaderField) (string, error) {
	p, err := d.headerRef(field)
	if err != nil {
		return "", err
	}
	return *p, nil
}

// SetHeaderField overwrites field with value.
func (d *Document) SetHeaderField(field models.HeaderField, value string) error {
	p, err := d.headerRef(field)
	if err != nil {
		return err
	}
	*p = value
	return nil
}

// FocusCompanyAddress clears the issuer address if it still holds the
// placeholder verbatim.
func (d *Document) FocusCompanyAddress() error {
	p, err := d.headerRef(models.FieldCompanyAddress)
	if err != nil {
		return err
	}
	if *p == DefaultCompanyAddress {
		*p = ""
	}
	return nil
}

// BlurCompanyAddress restores the placeholder if the issuer address is empty
// or white space only.
func (d *Document) BlurCompanyAddress() error {
	p, err := d.headerRef(models.FieldCompanyAddress)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*p) == "" {
		*p = DefaultCompanyAddress
	}
	return nil
}

// AddItem appends a blank item and returns its index.
func (d *Document) AddItem() int {
	d.items = append(d.items, models.Item{})
	return len(d.items) - 1
}

// SetItemField overwrites one field of the item at index.
func (d *Document) SetItemField(index int, field models.ItemField, value string) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	it := &d.items[index]
	switch field {
	case models.ItemName:
		it.Name = value
	case models.ItemQuantity:
		it.Quantity = value
	case models.ItemPrice:
		it.Price = value
	default:
		return fmt.Errorf("%w: item field %q", apperr.ErrUnknownField, field)
	}
	return nil
}

// RemoveItem deletes the item at index. The last remaining item cannot be
// removed.
func (d *Document) RemoveItem(index int) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	if len(d.items) == 1 {
		return apperr.ErrLastItem
	}
	d.items = append(d.items[:index], d.items[index+1:]...)
	return nil
}

// Len returns the number of items.
func (d *Document) Len() int {
	return len(d.items)
}

// Item returns a copy of the item at index.
func (d *Document) Item(index int) (models.Item, error) {
	if err := d.checkIndex(index); err != nil {
		return models.Item{}, err
	}
	return d.items[index], nil
}

// Items returns a copy of all items in display order.
func (d *Document) Items() []models.Item {
	out := make([]models.Item, len(d.items))
	copy(out, d.items)
	return out
}

// GrandTotal sums the current line totals. It is recomputed on every call.
func (d *Document) GrandTotal() float64 {
	totals := make([]float64, len(d.items))
	for i, it := range d.items {
		totals[i] = LineTotal(it)
	}
	return calc.Sum(totals...)
}

// Clone returns an independent copy of the document.
func (d *Document) Clone() *Document {
	return &Document{
		kind:   d.kind,
		header: d.header,
		items:  d.Items(),
	}
}

// LineTotal returns quantity × price for it, 0 when either does not parse.
func LineTotal(it models.Item) float64 {
	return calc.LineTotal(it.Quantity, it.Price)
}

// InvalidFields lists the numeric fields of it that currently count as zero
// because they do not parse. Totals are unaffected by this query.
func InvalidFields(it models.Item) []models.ItemField {
	var out []models.ItemField
	if !calc.Valid(it.Quantity) {
		out = append(out, models.ItemQuantity)
	}
	if !calc.Valid(it.Price) {
		out = append(out, models.ItemPrice)
	}
	return out
}

func (d *Document) checkIndex(index int) error {
	if index < 0 || index >= len(d.items) {
		return fmt.Errorf("%w: %d (have %d)", apperr.ErrItemOutOfRange, index, len(d.items))
	}
	return nil
}

func (d *Document) headerRef(field models.HeaderField) (*string, error) {
	allowed := false
	for _, f := range kindFields[d.kind] {
		if f == field {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %q on %s", apperr.ErrUnknownField, field, d.kind)
	}
	switch field {
	case models.FieldCompanyAddress:
		return &d.header.CompanyAddress, nil
	case models.FieldClientName:
		return &d.header.ClientName, nil
	case models.FieldClientAddress:
		return &d.header.ClientAddress, nil
	case models.FieldVendor:
		return &d.header.Vendor, nil
	default:
		return &d.header.Terms, nil
	}
}
