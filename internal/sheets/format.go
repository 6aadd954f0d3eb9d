package sheets

import (
	"google.golang.org/api/sheets/v4"

	"order_sheets_sync/internal/render"
)

// FormatRequests builds the structural requests for a tab holding rows×cols
// cells. The result depends only on its arguments, so re-applying it
// converges to the same state.
func FormatRequests(tabID int64, layout render.Layout, rows, cols int) []*sheets.Request {
	if rows < 1 || cols < 1 {
		return nil
	}

	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: gridRange(tabID, 0, 1, 0, cols),
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat.textFormat.bold",
			},
		},
		{
			UpdateBorders: &sheets.UpdateBordersRequest{
				Range:           gridRange(tabID, 0, rows, 0, cols),
				Top:             solidBorder(),
				Bottom:          solidBorder(),
				Left:            solidBorder(),
				Right:           solidBorder(),
				InnerHorizontal: solidBorder(),
				InnerVertical:   solidBorder(),
			},
		},
	}

	// body rules need at least one data row
	if rows < 2 {
		return requests
	}

	if len(layout.PickupPoints) > 0 && layout.PickupColumn < cols {
		values := make([]*sheets.ConditionValue, 0, len(layout.PickupPoints))
		for _, p := range layout.PickupPoints {
			values = append(values, &sheets.ConditionValue{UserEnteredValue: p})
		}
		requests = append(requests, &sheets.Request{
			SetDataValidation: &sheets.SetDataValidationRequest{
				Range: gridRange(tabID, 1, rows, layout.PickupColumn, layout.PickupColumn+1),
				Rule: &sheets.DataValidationRule{
					Condition:    &sheets.BooleanCondition{Type: "ONE_OF_LIST", Values: values},
					Strict:       true,
					ShowCustomUi: true,
				},
			},
		})
	}

	pattern := layout.DateTimePattern
	if pattern == "" {
		pattern = render.DefaultDateTimePattern
	}
	for _, col := range layout.TimestampColumns {
		if col >= cols {
			continue
		}
		requests = append(requests,
			&sheets.Request{
				SetDataValidation: &sheets.SetDataValidationRequest{
					Range: gridRange(tabID, 1, rows, col, col+1),
					Rule: &sheets.DataValidationRule{
						Condition:       &sheets.BooleanCondition{Type: "DATE_IS_VALID"},
						Strict:          false,
						ForceSendFields: []string{"Strict"},
					},
				},
			},
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: gridRange(tabID, 1, rows, col, col+1),
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							NumberFormat: &sheets.NumberFormat{Type: "DATE_TIME", Pattern: pattern},
						},
					},
					Fields: "userEnteredFormat.numberFormat",
				},
			},
		)
	}

	return requests
}

// ClearRequests blank every cell below row `rows` and right of column
// `cols`. Both ranges are unbounded so they never exceed the grid.
func ClearRequests(tabID int64, rows, cols int) []*sheets.Request {
	below := &sheets.GridRange{
		SheetId:         tabID,
		StartRowIndex:   int64(rows),
		ForceSendFields: []string{"SheetId", "StartRowIndex"},
	}
	right := &sheets.GridRange{
		SheetId:          tabID,
		StartRowIndex:    0,
		EndRowIndex:      int64(rows),
		StartColumnIndex: int64(cols),
		ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
	}
	return []*sheets.Request{
		{UpdateCells: &sheets.UpdateCellsRequest{Range: below, Fields: "userEnteredValue"}},
		{UpdateCells: &sheets.UpdateCellsRequest{Range: right, Fields: "userEnteredValue"}},
	}
}

// gridRange addresses [startRow,endRow)×[startCol,endCol). Zero indices and
// sheet 0 must be sent explicitly or the API treats them as unbounded.
func gridRange(tabID int64, startRow, endRow, startCol, endCol int) *sheets.GridRange {
	return &sheets.GridRange{
		SheetId:          tabID,
		StartRowIndex:    int64(startRow),
		EndRowIndex:      int64(endRow),
		StartColumnIndex: int64(startCol),
		EndColumnIndex:   int64(endCol),
		ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
	}
}

func solidBorder() *sheets.Border {
	return &sheets.Border{
		Style: "SOLID",
		Width: 1,
		Color: &sheets.Color{ForceSendFields: []string{"Red", "Green", "Blue"}},
	}
}
