package sheets

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/sheets/v4"

	"order_sheets_sync/internal/render"
)

// Service is the part of the Sheets API a Destination drives. *Client
// implements it.
type Service interface {
	ListTabs(ctx context.Context, spreadsheetID string) ([]Tab, error)
	AddTab(ctx context.Context, spreadsheetID, title string) (Tab, error)
	UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}, inputOption string) error
	BatchUpdate(ctx context.Context, spreadsheetID string, requests []*sheets.Request) error
}

// Destination writes order grids into tabs of one spreadsheet.
type Destination struct {
	service       Service
	spreadsheetID string
	layout        render.Layout
	inputOption   string
}

func NewDestination(service Service, spreadsheetID string, layout render.Layout, mode render.ImageMode) *Destination {
	inputOption := InputRaw
	if mode.ParsesFormulas() {
		inputOption = InputUserEntered
	}
	return &Destination{
		service:       service,
		spreadsheetID: spreadsheetID,
		layout:        layout,
		inputOption:   inputOption,
	}
}

// EnsureTab returns the ID of the tab titled exactly title, adding the tab
// when none exists. Two callers racing on a new title can both add it.
func (d *Destination) EnsureTab(ctx context.Context, title string) (int64, error) {
	tabs, err := d.service.ListTabs(ctx, d.spreadsheetID)
	if err != nil {
		return 0, err
	}
	for _, tab := range tabs {
		if tab.Title == title {
			log.Debug().Str("title", title).Int64("tab_id", tab.ID).Msg("Found existing tab")
			return tab.ID, nil
		}
	}

	tab, err := d.service.AddTab(ctx, d.spreadsheetID, title)
	if err != nil {
		return 0, err
	}
	log.Info().Str("title", title).Int64("tab_id", tab.ID).Msg("Created tab")
	return tab.ID, nil
}

// WriteGrid overwrites the tab's values starting at A1. Cells outside the
// grid keep whatever an earlier, larger grid left there.
func (d *Destination) WriteGrid(ctx context.Context, title string, grid render.Grid) error {
	values := make([][]interface{}, len(grid))
	for i, row := range grid {
		values[i] = row
	}
	return d.service.UpdateRange(ctx, d.spreadsheetID, quoteTitle(title)+"!A1", values, d.inputOption)
}

// ClearStale blanks cells outside the rows×cols block.
func (d *Destination) ClearStale(ctx context.Context, tabID int64, rows, cols int) error {
	return d.service.BatchUpdate(ctx, d.spreadsheetID, ClearRequests(tabID, rows, cols))
}

// Format applies header, border and validation rules in one batch.
func (d *Destination) Format(ctx context.Context, tabID int64, rows, cols int) error {
	requests := FormatRequests(tabID, d.layout, rows, cols)
	if len(requests) == 0 {
		return nil
	}
	return d.service.BatchUpdate(ctx, d.spreadsheetID, requests)
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
