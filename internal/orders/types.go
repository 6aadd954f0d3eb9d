package orders

// Order is the record synchronized into one tab.
type Order struct {
	ID        string
	Name      *string
	Purchases []Purchase
}

// Purchase is one line of an order. Quantity and Price hold whatever the
// record source returned (json.Number, int64, float64, string) or nil.
type Purchase struct {
	ID          string
	Customer    *string
	Quantity    any
	Price       any
	PickupPoint *string
	Note        *string
	PickedUp    bool
	PickedUpAt  *string
	Collected   bool
	CollectedAt *string
	Links       []string
	Images      []string // storage-relative paths
}

// DisplayName returns the order name, or "" when it is unset.
func (o *Order) DisplayName() string {
	if o.Name == nil {
		return ""
	}
	return *o.Name
}

// MaxImages returns the longest image list across the order's purchases.
func (o *Order) MaxImages() int {
	maxImages := 0
	for _, p := range o.Purchases {
		if len(p.Images) > maxImages {
			maxImages = len(p.Images)
		}
	}
	return maxImages
}

// Str dereferences an optional string, mapping nil to "".
func Str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
