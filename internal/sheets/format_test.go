package sheets

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order_sheets_sync/internal/render"
)

var pickupPoints = []string{"Store", "Warehouse", "Courier"}

func TestFormatRequestsIdempotent(t *testing.T) {
	layout := render.DefaultLayout(pickupPoints)
	cols := render.BaseColumnCount + 3

	first := FormatRequests(9, layout, 5, cols)
	second := FormatRequests(9, layout, 5, cols)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("FormatRequests not stable (-first +second):\n%s", diff)
	}
}

func TestFormatRequestsLayout(t *testing.T) {
	cols := render.BaseColumnCount + 2
	reqs := FormatRequests(0, render.DefaultLayout(pickupPoints), 4, cols)
	require.Len(t, reqs, 7)

	bold := reqs[0].RepeatCell
	require.NotNil(t, bold)
	assert.True(t, bold.Cell.UserEnteredFormat.TextFormat.Bold)
	assert.Equal(t, int64(0), bold.Range.StartRowIndex)
	assert.Equal(t, int64(1), bold.Range.EndRowIndex)
	assert.Equal(t, int64(cols), bold.Range.EndColumnIndex)
	assert.Contains(t, bold.Range.ForceSendFields, "SheetId")

	borders := reqs[1].UpdateBorders
	require.NotNil(t, borders)
	assert.Equal(t, int64(4), borders.Range.EndRowIndex)
	assert.Equal(t, "SOLID", borders.Top.Style)
	assert.Equal(t, "SOLID", borders.InnerVertical.Style)
	assert.Equal(t, int64(1), borders.InnerHorizontal.Width)

	dropdown := reqs[2].SetDataValidation
	require.NotNil(t, dropdown)
	assert.Equal(t, int64(render.ColPickupPoint), dropdown.Range.StartColumnIndex)
	assert.Equal(t, int64(1), dropdown.Range.StartRowIndex)
	assert.Equal(t, int64(4), dropdown.Range.EndRowIndex)
	assert.True(t, dropdown.Rule.Strict)
	assert.Equal(t, "ONE_OF_LIST", dropdown.Rule.Condition.Type)
	require.Len(t, dropdown.Rule.Condition.Values, 3)
	assert.Equal(t, "Warehouse", dropdown.Rule.Condition.Values[1].UserEnteredValue)

	for i, col := range []int{render.ColPickedUpAt, render.ColCollectedAt} {
		validation := reqs[3+2*i].SetDataValidation
		require.NotNil(t, validation)
		assert.Equal(t, int64(col), validation.Range.StartColumnIndex)
		assert.Equal(t, "DATE_IS_VALID", validation.Rule.Condition.Type)
		assert.False(t, validation.Rule.Strict)

		numberFormat := reqs[4+2*i].RepeatCell
		require.NotNil(t, numberFormat)
		assert.Equal(t, int64(col), numberFormat.Range.StartColumnIndex)
		assert.Equal(t, "DATE_TIME", numberFormat.Cell.UserEnteredFormat.NumberFormat.Type)
		assert.Equal(t, render.DefaultDateTimePattern, numberFormat.Cell.UserEnteredFormat.NumberFormat.Pattern)
	}
}

func TestFormatRequestsHeaderOnly(t *testing.T) {
	reqs := FormatRequests(1, render.DefaultLayout(pickupPoints), 1, render.BaseColumnCount+1)
	require.Len(t, reqs, 2)
	assert.NotNil(t, reqs[0].RepeatCell)
	assert.NotNil(t, reqs[1].UpdateBorders)
}

func TestFormatRequestsWithoutPickupPoints(t *testing.T) {
	reqs := FormatRequests(1, render.DefaultLayout(nil), 3, render.BaseColumnCount+1)
	require.Len(t, reqs, 6)
	for _, r := range reqs {
		if r.SetDataValidation != nil {
			assert.NotEqual(t, "ONE_OF_LIST", r.SetDataValidation.Rule.Condition.Type)
		}
	}
}

func TestFormatRequestsEmpty(t *testing.T) {
	assert.Nil(t, FormatRequests(1, render.DefaultLayout(nil), 0, 0))
}
