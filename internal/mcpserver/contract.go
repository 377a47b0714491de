package mcpserver

// DocumentFormatContract describes the documents Tally edits and the YAML
// form accepted by the load_document tool and the render/watch commands.
const DocumentFormatContract = `# Tally Document Format

Tally edits two kinds of document: ` + "`invoice`" + ` and ` + "`purchase_order`" + `.
Both carry a header and a list of line items. Only the header differs.

## Header fields

| Kind | Fields |
|---|---|
| invoice | company_address, client_name, client_address, terms |
| purchase_order | vendor, terms |

- ` + "`terms`" + ` defaults to "Net 30".
- A fresh invoice's ` + "`company_address`" + ` holds a placeholder address. Focusing
  the field clears the untouched placeholder; blurring an empty field restores it.
- Empty fields render as "—" in the preview.

## Line items

Each item has ` + "`name`" + `, ` + "`quantity`" + ` and ` + "`price`" + `, all kept as typed.

- A document always has at least one item. New items are blank.
- Quantity and price must be plain decimals (` + "`2`" + `, ` + "`10.5`" + `, ` + "`.25`" + `, ` + "`1e3`" + `).
  Anything else, including negative numbers, counts as 0. It is not an error.
- Item total = quantity × price. Grand total = sum of item totals.
- Money is shown with two decimals and a "$" prefix.

## YAML form

` + "```" + `yaml
kind: invoice
header:
  client_name: Acme Corp
  client_address: |
    1 Market St
    Springfield
  terms: Net 15
items:
  - name: Hosting
    quantity: "2"
    price: "10"
  - name: Support
    quantity: "1.5"
    price: "40"
` + "```" + `

- ` + "`kind`" + ` is required.
- Header keys must belong to the kind. Missing keys keep their defaults.
- An empty ` + "`items`" + ` list keeps the single blank item.

## Export

` + "`export_document`" + ` captures the preview at 2× resolution and writes a single
page PDF, A4 wide and as tall as the capture's aspect ratio requires. Files are
always named ` + "`invoice.pdf`" + ` or ` + "`purchase_order.pdf`" + ` and overwrite the previous
export of the same kind.
`
