package render

// DefaultDateTimePattern is the display format for timestamp columns.
const DefaultDateTimePattern = "yyyy-mm-dd hh:mm"

// Layout names the columns that carry per-column formatting rules.
type Layout struct {
	PickupColumn     int
	TimestampColumns []int
	PickupPoints     []string
	DateTimePattern  string
}

// DefaultLayout matches the column order produced by Builder.
func DefaultLayout(pickupPoints []string) Layout {
	return Layout{
		PickupColumn:     ColPickupPoint,
		TimestampColumns: []int{ColPickedUpAt, ColCollectedAt},
		PickupPoints:     pickupPoints,
		DateTimePattern:  DefaultDateTimePattern,
	}
}
