package render

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order_sheets_sync/internal/orders"
	"order_sheets_sync/internal/storage"
)

func strp(s string) *string { return &s }

func testBuilder(mode ImageMode) Builder {
	return Builder{
		Images:     storage.NewImageBucket("https://cdn.example.com"),
		Mode:       mode,
		TrueLabel:  "Yes",
		FalseLabel: "No",
	}
}

func TestBuildHeaderSingleImage(t *testing.T) {
	grid := testBuilder(ImageURL).Build(&orders.Order{ID: "o1"})

	require.Equal(t, 1, grid.Rows())
	assert.Equal(t, BaseColumnCount+1, grid.Columns())
	assert.Equal(t, "Pickup point", grid[0][ColPickupPoint])
	assert.Equal(t, "Picked up at", grid[0][ColPickedUpAt])
	assert.Equal(t, "Collected at", grid[0][ColCollectedAt])
	assert.Equal(t, "Image", grid[0][BaseColumnCount])
}

func TestBuildNumberedImageColumns(t *testing.T) {
	order := &orders.Order{
		ID:   "o1",
		Name: strp("Order 1"),
		Purchases: []orders.Purchase{
			{ID: "p1", Images: []string{"a.jpg", "b.jpg", "c.jpg"}},
			{ID: "p2"},
		},
	}
	grid := testBuilder(ImageURL).Build(order)

	require.Equal(t, 3, grid.Rows())
	assert.Equal(t, []any{"Image 1", "Image 2", "Image 3"}, grid[0][BaseColumnCount:])
	assert.Equal(t, []any{"", "", ""}, grid[2][BaseColumnCount:])
	assert.Equal(t, "https://cdn.example.com/storage/v1/object/public/purchase-images/b.jpg", grid[1][BaseColumnCount+1])
}

func TestBuildIsRectangular(t *testing.T) {
	order := &orders.Order{
		ID: "o1",
		Purchases: []orders.Purchase{
			{ID: "p1", Images: []string{"a"}},
			{ID: "p2", Images: []string{"a", "b", "c", "d"}},
			{ID: "p3"},
			{ID: "p4", Images: []string{"a", "b"}},
		},
	}
	grid := testBuilder(ImageFormula).Build(order)
	for i, row := range grid {
		assert.Len(t, row, BaseColumnCount+4, "row %d", i)
	}
}

func TestBuildFlagsAndTimestamps(t *testing.T) {
	order := &orders.Order{
		ID: "o1",
		Purchases: []orders.Purchase{
			{ID: "p1", PickedUp: true, PickedUpAt: nil, Collected: false, CollectedAt: strp("2024-05-01T10:00:00Z")},
		},
	}
	row := testBuilder(ImageURL).Build(order)[1]

	assert.Equal(t, "Yes", row[ColPickedUp])
	assert.Equal(t, "", row[ColPickedUpAt])
	assert.Equal(t, "No", row[ColCollected])
	assert.Equal(t, "2024-05-01T10:00:00Z", row[ColCollectedAt])
}

func TestBuildLinksPreserveOrder(t *testing.T) {
	order := &orders.Order{
		ID: "o1",
		Purchases: []orders.Purchase{
			{ID: "p1", Links: []string{"https://z.example", "https://a.example"}},
			{ID: "p2"},
		},
	}
	grid := testBuilder(ImageURL).Build(order)

	assert.Equal(t, "https://z.example\nhttps://a.example", grid[1][ColLinks])
	assert.Equal(t, "", grid[2][ColLinks])
}

func TestBuildPassesNumbersThrough(t *testing.T) {
	order := &orders.Order{
		ID:   "o1",
		Name: strp("Batch"),
		Purchases: []orders.Purchase{
			{ID: "p1", Customer: strp("Ann"), Quantity: json.Number("2"), Price: "12,50", PickupPoint: strp("Store"), Note: strp("fragile")},
			{ID: "p2"},
		},
	}
	grid := testBuilder(ImageURL).Build(order)

	assert.Equal(t, []any{"Batch", "p1", "Ann", json.Number("2"), "12,50", "Store", "fragile"}, grid[1][:ColPickedUp])
	assert.Equal(t, []any{"Batch", "p2", "", "", "", "", ""}, grid[2][:ColPickedUp])
}

func TestBuildImageFormula(t *testing.T) {
	order := &orders.Order{
		ID:        "o1",
		Purchases: []orders.Purchase{{ID: "p1", Images: []string{`we"ird.png`}}},
	}
	grid := testBuilder(ImageFormula).Build(order)

	assert.Equal(t, `=IMAGE("https://cdn.example.com/storage/v1/object/public/purchase-images/we""ird.png")`, grid[1][BaseColumnCount])
}

func TestParseImageMode(t *testing.T) {
	m, ok := ParseImageMode(" URL ")
	assert.True(t, ok)
	assert.Equal(t, ImageURL, m)
	assert.False(t, m.ParsesFormulas())

	m, ok = ParseImageMode("formula")
	assert.True(t, ok)
	assert.True(t, m.ParsesFormulas())

	_, ok = ParseImageMode("html")
	assert.False(t, ok)
}
