package webhook

import (
	"bytes"
	"encoding/json"
	"strings"

	"order_sheets_sync/internal/failure"
)

// KeyStrategy pulls an order key out of a decoded payload. It returns ""
// when the payload does not carry the key in the shape it looks for.
type KeyStrategy struct {
	Name string
	Path []string
}

// DefaultKeyStrategies lists the accepted payload shapes in priority order.
// Each call returns a fresh slice.
func DefaultKeyStrategies() []KeyStrategy {
	return []KeyStrategy{
		{Name: "order_id", Path: []string{"order_id"}},
		{Name: "orderId", Path: []string{"orderId"}},
		{Name: "record.order_id", Path: []string{"record", "order_id"}},
		{Name: "record.orderId", Path: []string{"record", "orderId"}},
		{Name: "old_record.order_id", Path: []string{"old_record", "order_id"}},
	}
}

func (s KeyStrategy) Extract(payload map[string]any) string {
	var cur any = payload
	for _, field := range s.Path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = obj[field]
	}
	switch v := cur.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// ExtractKey decodes body and returns the first non-empty key found by
// strategies, along with the name of the strategy that matched.
func ExtractKey(body []byte, strategies []KeyStrategy) (string, string, error) {
	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return "", "", failure.New(failure.InvalidRequest, "parse payload", err)
	}
	for _, s := range strategies {
		if key := s.Extract(payload); key != "" {
			return key, s.Name, nil
		}
	}
	return "", "", failure.Newf(failure.InvalidRequest, "parse payload", "payload has no order key")
}
