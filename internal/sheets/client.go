package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"order_sheets_sync/internal/failure"
)

// Value input modes for UpdateRange.
const (
	InputUserEntered = "USER_ENTERED"
	InputRaw         = "RAW"
)

// Tab is one sheet of a spreadsheet.
type Tab struct {
	ID    int64
	Title string
}

type Client struct {
	service *sheets.Service
}

// NewClient authenticates with a service-account key. The access token is
// obtained by exchanging a signed JWT assertion and refreshed on expiry.
func NewClient(ctx context.Context, credentialsJSON []byte) (*Client, error) {
	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, failure.New(failure.UpstreamAuthFailure, "parse service account credentials", err)
	}
	tokens := oauth2.ReuseTokenSource(nil, authTokenSource{src: jwtConfig.TokenSource(ctx)})
	return NewClientWithOptions(ctx, option.WithTokenSource(tokens))
}

// NewClientWithOptions builds a client from raw API options.
func NewClientWithOptions(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		service: service,
	}, nil
}

// authTokenSource tags token exchange failures so they are reported as
// auth problems rather than spreadsheet failures.
type authTokenSource struct {
	src oauth2.TokenSource
}

func (a authTokenSource) Token() (*oauth2.Token, error) {
	tok, err := a.src.Token()
	if err != nil {
		return nil, failure.New(failure.UpstreamAuthFailure, "fetch access token", err)
	}
	return tok, nil
}

func (c *Client) ListTabs(ctx context.Context, spreadsheetID string) ([]Tab, error) {
	resp, err := c.service.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("list tabs", err)
	}
	if resp == nil {
		return nil, failure.Newf(failure.SpreadsheetServiceFailure, "list tabs", "empty response")
	}

	tabs := make([]Tab, 0, len(resp.Sheets))
	for i, sheet := range resp.Sheets {
		if sheet == nil || sheet.Properties == nil {
			return nil, failure.Newf(failure.SpreadsheetServiceFailure, "list tabs", "sheet %d has no properties", i)
		}
		tabs = append(tabs, Tab{ID: sheet.Properties.SheetId, Title: sheet.Properties.Title})
	}
	return tabs, nil
}

func (c *Client) AddTab(ctx context.Context, spreadsheetID, title string) (Tab, error) {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}
	resp, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return Tab{}, classify("add tab", err)
	}
	if resp == nil || len(resp.Replies) == 0 || resp.Replies[0] == nil ||
		resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return Tab{}, failure.Newf(failure.SpreadsheetServiceFailure, "add tab", "reply for %q has no sheet properties", title)
	}

	props := resp.Replies[0].AddSheet.Properties
	return Tab{ID: props.SheetId, Title: props.Title}, nil
}

func (c *Client) UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}, inputOption string) error {
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err := c.service.Spreadsheets.Values.Update(spreadsheetID, range_, valueRange).
		ValueInputOption(inputOption).
		Context(ctx).
		Do()
	if err != nil {
		return classify("update range", err)
	}

	return nil
}

func (c *Client) BatchUpdate(ctx context.Context, spreadsheetID string, requests []*sheets.Request) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}
	if _, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return classify("batch update", err)
	}
	return nil
}

func classify(op string, err error) error {
	if failure.Is(err, failure.UpstreamAuthFailure) {
		return failure.New(failure.UpstreamAuthFailure, op, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return failure.New(failure.UpstreamAuthFailure, op, err)
	}
	return failure.New(failure.SpreadsheetServiceFailure, op, fmt.Errorf("failed to %s: %w", op, err))
}
