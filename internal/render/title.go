package render

import (
	"strings"

	"order_sheets_sync/internal/orders"
)

const (
	MaxTitleLength = 100
	FallbackTitle  = "Order"
)

var illegalTitleChars = strings.NewReplacer(
	"[", " ", "]", " ", "*", " ", "/", " ",
	"\\", " ", "?", " ", ":", " ",
)

// ResolveTitle turns a free-text name into a tab title: characters sheets
// reject become spaces, the result is trimmed and capped at MaxTitleLength
// runes, and an empty result falls back to FallbackTitle.
func ResolveTitle(displayName string) string {
	title := strings.TrimSpace(illegalTitleChars.Replace(displayName))
	if runes := []rune(title); len(runes) > MaxTitleLength {
		title = strings.TrimSpace(string(runes[:MaxTitleLength]))
	}
	if title == "" {
		return FallbackTitle
	}
	return title
}

// TitleFor resolves the tab title of an order, using the order ID when the
// display name is blank.
func TitleFor(order *orders.Order) string {
	name := order.DisplayName()
	if strings.TrimSpace(name) == "" {
		name = order.ID
	}
	return ResolveTitle(name)
}
