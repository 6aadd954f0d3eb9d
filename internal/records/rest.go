package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"order_sheets_sync/internal/failure"
	"order_sheets_sync/internal/orders"
)

const orderSelect = "id,name,purchases(id,customer,quantity,price,pickup_point,note," +
	"picked_up,picked_up_at,collected,collected_at," +
	"purchase_links(url),purchase_images(path))"

// REST reads orders through a PostgREST endpoint such as Supabase's.
type REST struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type restOrder struct {
	ID        json.RawMessage `json:"id"`
	Name      *string         `json:"name"`
	Purchases []restPurchase  `json:"purchases"`
}

type restPurchase struct {
	ID          json.RawMessage `json:"id"`
	Customer    *string         `json:"customer"`
	Quantity    any             `json:"quantity"`
	Price       any             `json:"price"`
	PickupPoint *string         `json:"pickup_point"`
	Note        *string         `json:"note"`
	PickedUp    *bool           `json:"picked_up"`
	PickedUpAt  *string         `json:"picked_up_at"`
	Collected   *bool           `json:"collected"`
	CollectedAt *string         `json:"collected_at"`
	Links       []struct {
		URL *string `json:"url"`
	} `json:"purchase_links"`
	Images []struct {
		Path *string `json:"path"`
	} `json:"purchase_images"`
}

func NewREST(baseURL, apiKey string) *REST {
	return &REST{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (r *REST) Order(ctx context.Context, key string) (*orders.Order, error) {
	q := url.Values{}
	q.Set("id", "eq."+key)
	q.Set("select", orderSelect)
	endpoint := r.baseURL + "/rest/v1/orders?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, failure.New(failure.RecordSourceFailure, "fetch order", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, failure.New(failure.RecordSourceFailure, "fetch order", fmt.Errorf("failed to make request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.New(failure.RecordSourceFailure, "fetch order", fmt.Errorf("failed to read response body: %w", err))
	}

	log.Debug().
		Str("order_id", key).
		Int("status_code", resp.StatusCode).
		Int("body_length", len(body)).
		Msg("Received record source response")

	if resp.StatusCode != http.StatusOK {
		return nil, failure.Newf(failure.RecordSourceFailure, "fetch order", "API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return decodeOrder(key, body)
}

func decodeOrder(key string, body []byte) (*orders.Order, error) {
	all, err := DecodeOrders(body)
	if err != nil {
		return nil, failure.New(failure.RecordSourceFailure, "fetch order", err)
	}
	if len(all) == 0 {
		return nil, failure.Newf(failure.RecordNotFound, "fetch order", "order %s not found", key)
	}
	return all[0], nil
}

// DecodeOrders parses a PostgREST order listing with embedded purchases.
// Numeric fields are kept as json.Number.
func DecodeOrders(body []byte) ([]*orders.Order, error) {
	var rows []restOrder
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	out := make([]*orders.Order, 0, len(rows))
	for i, row := range rows {
		id := rawID(row.ID)
		if id == "" {
			return nil, fmt.Errorf("order %d has no id", i)
		}

		order := &orders.Order{ID: id, Name: row.Name}
		for _, p := range row.Purchases {
			purchase := orders.Purchase{
				ID:          rawID(p.ID),
				Customer:    p.Customer,
				Quantity:    p.Quantity,
				Price:       p.Price,
				PickupPoint: p.PickupPoint,
				Note:        p.Note,
				PickedUp:    p.PickedUp != nil && *p.PickedUp,
				PickedUpAt:  p.PickedUpAt,
				Collected:   p.Collected != nil && *p.Collected,
				CollectedAt: p.CollectedAt,
			}
			for _, l := range p.Links {
				if l.URL != nil {
					purchase.Links = append(purchase.Links, *l.URL)
				}
			}
			for _, img := range p.Images {
				if img.Path != nil {
					purchase.Images = append(purchase.Images, *img.Path)
				}
			}
			order.Purchases = append(order.Purchases, purchase)
		}
		out = append(out, order)
	}
	return out, nil
}

// rawID accepts string and numeric identifiers.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
