// Package xlsx writes order grids into a local Excel workbook, one sheet per
// order, mirroring what the spreadsheet destination does remotely.
package xlsx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"order_sheets_sync/internal/failure"
	"order_sheets_sync/internal/render"
)

// MaxSheetName is Excel's limit on sheet name length.
const MaxSheetName = 31

// Workbook is a syncer destination backed by an .xlsx file. Changes stay in
// memory until Save or Close.
type Workbook struct {
	mu     sync.Mutex
	path   string
	file   *excelize.File
	layout render.Layout
	mode   render.ImageMode
	// extents remembers the largest block written per sheet so stale cells
	// can be found even when trailing cells hold uncomputed formulas.
	extents map[string][2]int
	// names maps order titles to the sheet each was given
	names map[string]string
}

// Open loads path when it exists and starts an empty workbook otherwise.
func Open(path string, layout render.Layout, mode render.ImageMode) (*Workbook, error) {
	var f *excelize.File
	if _, err := os.Stat(path); err == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, failure.New(failure.Internal, "open workbook", err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
	} else {
		return nil, failure.New(failure.Internal, "open workbook", err)
	}
	return &Workbook{
		path:    path,
		file:    f,
		layout:  layout,
		mode:    mode,
		extents: make(map[string][2]int),
		names:   make(map[string]string),
	}, nil
}

// SheetName caps title at MaxSheetName runes.
func SheetName(title string) string {
	return capName(title, MaxSheetName)
}

func capName(title string, limit int) string {
	r := []rune(title)
	if len(r) > limit {
		r = r[:limit]
	}
	name := strings.TrimSpace(string(r))
	if name == "" {
		return render.FallbackTitle
	}
	return name
}

// sheetFor picks the sheet holding title. Excel compares sheet names
// without case, so a title that differs from an existing sheet only in case
// gets a numbered name of its own.
func (w *Workbook) sheetFor(title string) string {
	if name, ok := w.names[title]; ok {
		return name
	}
	base := SheetName(title)
	name := base
	for i := 2; ; i++ {
		existing, found := w.lookupFold(name)
		if !found || existing == name {
			break
		}
		suffix := fmt.Sprintf(" (%d)", i)
		name = capName(base, MaxSheetName-len([]rune(suffix))) + suffix
	}
	w.names[title] = name
	return name
}

func (w *Workbook) lookupFold(name string) (string, bool) {
	for _, sheet := range w.file.GetSheetList() {
		if strings.EqualFold(sheet, name) {
			return sheet, true
		}
	}
	return "", false
}

func (w *Workbook) EnsureTab(ctx context.Context, title string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	name := w.sheetFor(title)
	idx, err := w.file.GetSheetIndex(name)
	if err != nil {
		return 0, failure.New(failure.Internal, "ensure sheet", err)
	}
	if idx >= 0 {
		return int64(idx), nil
	}
	idx, err = w.file.NewSheet(name)
	if err != nil {
		return 0, failure.New(failure.Internal, "ensure sheet", err)
	}
	log.Info().Str("sheet", name).Int("index", idx).Msg("Created workbook sheet")
	return int64(idx), nil
}

func (w *Workbook) WriteGrid(ctx context.Context, title string, grid render.Grid) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	name := w.sheetFor(title)
	for r, row := range grid {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return failure.New(failure.Internal, "write grid", err)
			}
			if err := w.setCell(name, cell, value); err != nil {
				return failure.New(failure.Internal, "write grid", fmt.Errorf("%s: %w", cell, err))
			}
		}
	}

	ext := w.extents[name]
	w.extents[name] = [2]int{max(ext[0], grid.Rows()), max(ext[1], grid.Columns())}
	return nil
}

func (w *Workbook) setCell(sheet, cell string, value any) error {
	if formula, err := w.file.GetCellFormula(sheet, cell); err == nil && formula != "" {
		if err := w.file.SetCellFormula(sheet, cell, ""); err != nil {
			return err
		}
	}
	if s, ok := value.(string); ok && w.mode.ParsesFormulas() && strings.HasPrefix(s, "=") {
		return w.file.SetCellFormula(sheet, cell, strings.TrimPrefix(s, "="))
	}
	if n, ok := value.(json.Number); ok {
		if f, err := n.Float64(); err == nil {
			return w.file.SetCellValue(sheet, cell, f)
		}
		return w.file.SetCellValue(sheet, cell, n.String())
	}
	return w.file.SetCellValue(sheet, cell, value)
}

// ClearStale blanks every cell outside the rows×cols block.
func (w *Workbook) ClearStale(ctx context.Context, tabID int64, rows, cols int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	name := w.file.GetSheetName(int(tabID))
	if name == "" {
		return failure.Newf(failure.Internal, "clear stale", "no sheet at index %d", tabID)
	}
	existing, err := w.file.GetRows(name)
	if err != nil {
		return failure.New(failure.Internal, "clear stale", err)
	}

	ext := w.extents[name]
	maxRows, maxCols := max(ext[0], len(existing)), ext[1]
	for _, row := range existing {
		maxCols = max(maxCols, len(row))
	}

	for r := 1; r <= maxRows; r++ {
		for c := 1; c <= maxCols; c++ {
			if r <= rows && c <= cols {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c, r)
			if err != nil {
				return failure.New(failure.Internal, "clear stale", err)
			}
			if err := w.setCell(name, cell, nil); err != nil {
				return failure.New(failure.Internal, "clear stale", err)
			}
		}
	}
	w.extents[name] = [2]int{rows, cols}
	return nil
}

// Format applies a bold header, thin borders, the pickup point drop-down and
// date validation on timestamp columns. Existing rules on those ranges are
// replaced, so repeating it leaves the sheet unchanged.
func (w *Workbook) Format(ctx context.Context, tabID int64, rows, cols int) error {
	if rows < 1 || cols < 1 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	name := w.file.GetSheetName(int(tabID))
	if name == "" {
		return failure.Newf(failure.Internal, "format sheet", "no sheet at index %d", tabID)
	}
	if err := w.format(name, rows, cols); err != nil {
		return failure.New(failure.Internal, "format sheet", err)
	}
	return nil
}

func (w *Workbook) format(sheet string, rows, cols int) error {
	pattern := w.layout.DateTimePattern
	if pattern == "" {
		pattern = render.DefaultDateTimePattern
	}

	header, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, Border: thinBorders()})
	if err != nil {
		return err
	}
	body, err := w.file.NewStyle(&excelize.Style{Border: thinBorders()})
	if err != nil {
		return err
	}
	timestamp, err := w.file.NewStyle(&excelize.Style{Border: thinBorders(), CustomNumFmt: &pattern})
	if err != nil {
		return err
	}

	if err := w.file.SetCellStyle(sheet, cellName(1, 1), cellName(cols, 1), header); err != nil {
		return err
	}
	if rows < 2 {
		return nil
	}
	if err := w.file.SetCellStyle(sheet, cellName(1, 2), cellName(cols, rows), body); err != nil {
		return err
	}

	if len(w.layout.PickupPoints) > 0 && w.layout.PickupColumn < cols {
		sqref := columnRange(w.layout.PickupColumn, rows)
		if err := w.file.DeleteDataValidation(sheet, sqref); err != nil {
			return err
		}
		dv := excelize.NewDataValidation(true)
		dv.Sqref = sqref
		if err := dv.SetDropList(w.layout.PickupPoints); err != nil {
			return err
		}
		if err := w.file.AddDataValidation(sheet, dv); err != nil {
			return err
		}
	}

	for _, col := range w.layout.TimestampColumns {
		if col >= cols {
			continue
		}
		sqref := columnRange(col, rows)
		if err := w.file.SetCellStyle(sheet, cellName(col+1, 2), cellName(col+1, rows), timestamp); err != nil {
			return err
		}
		if err := w.file.DeleteDataValidation(sheet, sqref); err != nil {
			return err
		}
		dv := excelize.NewDataValidation(true)
		dv.Sqref = sqref
		// any serial date is accepted; anything else only warns
		if err := dv.SetRange(1, 2958465, excelize.DataValidationTypeDate, excelize.DataValidationOperatorBetween); err != nil {
			return err
		}
		dv.SetError(excelize.DataValidationErrorStyleWarning, "Date", "Expected a date and time")
		if err := w.file.AddDataValidation(sheet, dv); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the workbook to its path.
func (w *Workbook) Save() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.SaveAs(w.path); err != nil {
		return failure.New(failure.Internal, "save workbook", err)
	}
	log.Info().Str("path", w.path).Strs("sheets", w.file.GetSheetList()).Msg("Saved workbook")
	return nil
}

// Close saves and releases the workbook.
func (w *Workbook) Close() error {
	if err := w.Save(); err != nil {
		return err
	}
	return w.file.Close()
}

func thinBorders() []excelize.Border {
	borders := make([]excelize.Border, 0, 4)
	for _, side := range []string{"left", "top", "right", "bottom"} {
		borders = append(borders, excelize.Border{Type: side, Color: "000000", Style: 1})
	}
	return borders
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func columnRange(col, rows int) string {
	return cellName(col+1, 2) + ":" + cellName(col+1, rows)
}
