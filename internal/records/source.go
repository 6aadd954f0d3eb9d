// Package records loads orders, with their purchases, links and images, from
// the system of record.
package records

import (
	"context"

	"order_sheets_sync/internal/orders"
)

// Source returns the order identified by key, or an error classified as
// failure.RecordNotFound when there is none.
type Source interface {
	Order(ctx context.Context, key string) (*orders.Order, error)
}
