// Package preview projects a document into the layout shown on screen and
// captured for export. There is one layout; export has no mode of its own.
package preview

import (
	"strings"

	"github.com/starford/tally/internal/calc"
	"github.com/starford/tally/internal/document"
	"github.com/starford/tally/internal/models"
)

// Placeholder stands in for an empty field.
const Placeholder = "—"

// Align is the horizontal alignment of a table column.
type Align string

// Column alignments.
const (
	AlignLeft  Align = "left"
	AlignRight Align = "right"
)

// Layout is the rendered, read-only view of one document.
type Layout struct {
	Kind     models.Kind `json:"kind"`
	Title    string      `json:"title"`
	Sections []Section   `json:"sections"`
	Table    Table       `json:"table"`
}

// Section is a labelled block of text lines above the item table.
type Section struct {
	Label string   `json:"label"`
	Lines []string `json:"lines"`
}

// Column describes one table column.
type Column struct {
	Header string `json:"header"`
	Align  Align  `json:"align"`
}

// Table is the item table with its grand total footer.
type Table struct {
	Columns     []Column   `json:"columns"`
	Rows        [][]string `json:"rows"`
	FooterLabel string     `json:"footer_label"`
	FooterValue string     `json:"footer_value"`
}

var itemColumns = []Column{
	{Header: "Item", Align: AlignLeft},
	{Header: "Quantity", Align: AlignRight},
	{Header: "Price", Align: AlignRight},
	{Header: "Total", Align: AlignRight},
}

// Render projects d into a Layout. It does not modify d.
func Render(d *document.Document) Layout {
	h := d.Header()
	l := Layout{Kind: d.Kind()}

	switch d.Kind() {
	case models.KindInvoice:
		l.Title = "Invoice Preview"
		l.Sections = []Section{
			{Label: "From:", Lines: splitLines(h.CompanyAddress)},
			{Label: "Bill To:", Lines: append(
				splitLines(orPlaceholder(h.ClientName)),
				splitLines(orPlaceholder(h.ClientAddress))...,
			)},
			{Label: "Terms:", Lines: splitLines(orPlaceholder(h.Terms))},
		}
	case models.KindPurchaseOrder:
		l.Title = "Purchase Order Preview"
		l.Sections = []Section{
			{Label: "Vendor:", Lines: splitLines(orPlaceholder(h.Vendor))},
			{Label: "Terms:", Lines: splitLines(orPlaceholder(h.Terms))},
		}
	}

	items := d.Items()
	rows := make([][]string, len(items))
	for i, it := range items {
		rows[i] = []string{
			orPlaceholder(it.Name),
			calc.FormatQuantity(it.Quantity),
			money(calc.FormatPrice(it.Price)),
			money(calc.FormatMoney(document.LineTotal(it))),
		}
	}
	l.Table = Table{
		Columns:     append([]Column(nil), itemColumns...),
		Rows:        rows,
		FooterLabel: "Grand Total:",
		FooterValue: money(calc.FormatMoney(d.GrandTotal())),
	}
	return l
}

// Text renders the layout as plain text, one line per row.
func (l Layout) Text() string {
	var b strings.Builder
	b.WriteString(l.Title)
	b.WriteString("\n")
	for _, s := range l.Sections {
		b.WriteString("\n")
		b.WriteString(s.Label)
		b.WriteString("\n")
		for _, line := range s.Lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	headers := make([]string, len(l.Table.Columns))
	for i, c := range l.Table.Columns {
		headers[i] = c.Header
	}
	b.WriteString(strings.Join(headers, "\t"))
	b.WriteString("\n")
	for _, row := range l.Table.Rows {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteString("\n")
	}
	b.WriteString(l.Table.FooterLabel)
	b.WriteString("\t")
	b.WriteString(l.Table.FooterValue)
	b.WriteString("\n")
	return b.String()
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

func money(s string) string {
	return "$" + s
}

// splitLines breaks multi-line field text into display lines, the way a
// pre-line text block wraps on newlines.
func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}
