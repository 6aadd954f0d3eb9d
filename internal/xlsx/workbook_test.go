package xlsx

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"order_sheets_sync/internal/render"
)

func openTemp(t *testing.T, mode render.ImageMode) (*Workbook, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.xlsx")
	wb, err := Open(path, render.DefaultLayout([]string{"Store", "Warehouse"}), mode)
	require.NoError(t, err)
	return wb, path
}

func reopen(t *testing.T, path string) *excelize.File {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Order 1", SheetName("Order 1"))
	assert.Equal(t, strings.Repeat("a", MaxSheetName), SheetName(strings.Repeat("a", 40)))
	assert.Equal(t, render.FallbackTitle, SheetName("   "))
}

func TestEnsureTabReusesSheet(t *testing.T) {
	wb, _ := openTemp(t, render.ImageURL)
	ctx := context.Background()

	first, err := wb.EnsureTab(ctx, "Spring order")
	require.NoError(t, err)
	second, err := wb.EnsureTab(ctx, "Spring order")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"Sheet1", "Spring order"}, wb.file.GetSheetList())
}

func TestEnsureTabKeepsCaseDistinctTitlesApart(t *testing.T) {
	wb, _ := openTemp(t, render.ImageURL)
	ctx := context.Background()

	upper, err := wb.EnsureTab(ctx, "Order A")
	require.NoError(t, err)
	lower, err := wb.EnsureTab(ctx, "order a")
	require.NoError(t, err)
	assert.NotEqual(t, upper, lower)
	assert.Equal(t, []string{"Sheet1", "Order A", "order a (2)"}, wb.file.GetSheetList())

	require.NoError(t, wb.WriteGrid(ctx, "Order A", render.Grid{{"upper"}}))
	require.NoError(t, wb.WriteGrid(ctx, "order a", render.Grid{{"lower"}}))
	v, err := wb.file.GetCellValue("Order A", "A1")
	require.NoError(t, err)
	assert.Equal(t, "upper", v)
	v, err = wb.file.GetCellValue("order a (2)", "A1")
	require.NoError(t, err)
	assert.Equal(t, "lower", v)

	again, err := wb.EnsureTab(ctx, "order a")
	require.NoError(t, err)
	assert.Equal(t, lower, again)
}

func TestWriteGridAndSave(t *testing.T) {
	wb, path := openTemp(t, render.ImageFormula)
	ctx := context.Background()

	grid := render.Grid{
		{"Order", "Qty", "Image"},
		{"Spring", json.Number("3"), `=IMAGE("https://x/a.png")`},
	}
	_, err := wb.EnsureTab(ctx, "Spring")
	require.NoError(t, err)
	require.NoError(t, wb.WriteGrid(ctx, "Spring", grid))
	require.NoError(t, wb.Close())

	f := reopen(t, path)
	v, err := f.GetCellValue("Spring", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Order", v)
	v, err = f.GetCellValue("Spring", "B2")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
	formula, err := f.GetCellFormula("Spring", "C2")
	require.NoError(t, err)
	assert.Equal(t, `IMAGE("https://x/a.png")`, formula)
}

func TestWriteGridURLModeKeepsText(t *testing.T) {
	wb, _ := openTemp(t, render.ImageURL)
	ctx := context.Background()

	_, err := wb.EnsureTab(ctx, "T")
	require.NoError(t, err)
	require.NoError(t, wb.WriteGrid(ctx, "T", render.Grid{{"=SUM(1,2)"}}))

	formula, err := wb.file.GetCellFormula("T", "A1")
	require.NoError(t, err)
	assert.Empty(t, formula)
	v, err := wb.file.GetCellValue("T", "A1")
	require.NoError(t, err)
	assert.Equal(t, "=SUM(1,2)", v)
}

func TestClearStale(t *testing.T) {
	wb, _ := openTemp(t, render.ImageFormula)
	ctx := context.Background()

	id, err := wb.EnsureTab(ctx, "T")
	require.NoError(t, err)
	require.NoError(t, wb.WriteGrid(ctx, "T", render.Grid{
		{"a", "b", "c"},
		{"d", "e", `=IMAGE("u")`},
		{"g", "h", "i"},
	}))
	require.NoError(t, wb.WriteGrid(ctx, "T", render.Grid{{"A", "B"}, {"D", "E"}}))
	require.NoError(t, wb.ClearStale(ctx, id, 2, 2))

	for _, cell := range []string{"C1", "C2", "A3", "B3", "C3"} {
		v, err := wb.file.GetCellValue("T", cell)
		require.NoError(t, err)
		assert.Empty(t, v, cell)
		formula, err := wb.file.GetCellFormula("T", cell)
		require.NoError(t, err)
		assert.Empty(t, formula, cell)
	}
	v, err := wb.file.GetCellValue("T", "B2")
	require.NoError(t, err)
	assert.Equal(t, "E", v)
}

func TestFormatIsRepeatable(t *testing.T) {
	wb, _ := openTemp(t, render.ImageURL)
	ctx := context.Background()
	cols := render.BaseColumnCount + 1

	id, err := wb.EnsureTab(ctx, "T")
	require.NoError(t, err)
	require.NoError(t, wb.Format(ctx, id, 3, cols))
	require.NoError(t, wb.Format(ctx, id, 3, cols))

	validations, err := wb.file.GetDataValidations("T")
	require.NoError(t, err)
	assert.Len(t, validations, 3, "one drop-down and two date rules")

	style, err := wb.file.GetCellStyle("T", "A1")
	require.NoError(t, err)
	header, err := wb.file.GetStyle(style)
	require.NoError(t, err)
	require.NotNil(t, header.Font)
	assert.True(t, header.Font.Bold)
}

func TestFormatUnknownSheet(t *testing.T) {
	wb, _ := openTemp(t, render.ImageURL)
	assert.Error(t, wb.Format(context.Background(), 42, 2, 2))
}
