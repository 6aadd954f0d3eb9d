package render

import (
	"strconv"
	"strings"

	"order_sheets_sync/internal/orders"
	"order_sheets_sync/internal/storage"
)

// Grid is the rectangular block of cell values written to a tab. Row 0 is
// the header.
type Grid [][]any

// Rows returns the number of rows including the header.
func (g Grid) Rows() int { return len(g) }

// Columns returns the width of the header row.
func (g Grid) Columns() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Fixed column positions. The formatter addresses these by index.
const (
	ColOrder = iota
	ColItemID
	ColCustomer
	ColQuantity
	ColPrice
	ColPickupPoint
	ColNote
	ColPickedUp
	ColPickedUpAt
	ColCollected
	ColCollectedAt
	ColLinks

	BaseColumnCount
)

var baseHeader = [BaseColumnCount]string{
	"Order",
	"Item ID",
	"Customer",
	"Quantity",
	"Price",
	"Pickup point",
	"Note",
	"Picked up",
	"Picked up at",
	"Collected",
	"Collected at",
	"Links",
}

// ImageMode selects how image cells are rendered.
type ImageMode string

const (
	// ImageFormula renders =IMAGE("<url>") and needs USER_ENTERED input.
	ImageFormula ImageMode = "formula"
	// ImageURL renders the bare URL and is written RAW.
	ImageURL ImageMode = "url"
)

// ParseImageMode accepts "formula" or "url".
func ParseImageMode(s string) (ImageMode, bool) {
	switch ImageMode(strings.ToLower(strings.TrimSpace(s))) {
	case ImageFormula:
		return ImageFormula, true
	case ImageURL:
		return ImageURL, true
	}
	return "", false
}

// ParsesFormulas reports whether grids built in this mode must be written
// with formula parsing enabled.
func (m ImageMode) ParsesFormulas() bool {
	return m == ImageFormula
}

// Builder turns an order into a Grid.
type Builder struct {
	Images     storage.Bucket
	Mode       ImageMode
	TrueLabel  string
	FalseLabel string
}

// Build renders the header and one row per purchase. The image tail is as
// wide as the longest image list in the order, and never narrower than one
// column.
func (b Builder) Build(order *orders.Order) Grid {
	imageCols := max(1, order.MaxImages())
	width := BaseColumnCount + imageCols

	grid := make(Grid, 0, 1+len(order.Purchases))
	grid = append(grid, header(imageCols))

	name := order.DisplayName()
	for _, p := range order.Purchases {
		row := make([]any, 0, width)
		row = append(row,
			name,
			p.ID,
			orders.Str(p.Customer),
			passThrough(p.Quantity),
			passThrough(p.Price),
			orders.Str(p.PickupPoint),
			orders.Str(p.Note),
			b.flag(p.PickedUp),
			orders.Str(p.PickedUpAt),
			b.flag(p.Collected),
			orders.Str(p.CollectedAt),
			strings.Join(p.Links, "\n"),
		)
		for i := 0; i < imageCols; i++ {
			if i < len(p.Images) {
				row = append(row, b.imageCell(p.Images[i]))
			} else {
				row = append(row, "")
			}
		}
		grid = append(grid, row)
	}
	return grid
}

func header(imageCols int) []any {
	row := make([]any, 0, BaseColumnCount+imageCols)
	for _, label := range baseHeader {
		row = append(row, label)
	}
	if imageCols == 1 {
		return append(row, "Image")
	}
	for i := 1; i <= imageCols; i++ {
		row = append(row, "Image "+strconv.Itoa(i))
	}
	return row
}

func (b Builder) flag(v bool) string {
	if v {
		return b.TrueLabel
	}
	return b.FalseLabel
}

func (b Builder) imageCell(path string) string {
	url := b.Images.PublicURL(path)
	if b.Mode == ImageFormula {
		return `=IMAGE("` + strings.ReplaceAll(url, `"`, `""`) + `")`
	}
	return url
}

func passThrough(v any) any {
	if v == nil {
		return ""
	}
	return v
}
