// Package gas is the client for the spreadsheet-backed report store exposed
// as a Google Apps Script web app: one endpoint, POST {action, payload},
// response {status, message?, data?}. Item payloads use the store's native
// field labels; translation happens in the labels package.
package gas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store/labels"
)

// Client talks to one Apps Script deployment.
type Client struct {
	endpoint string
	httpc    *http.Client
}

var (
	_ store.ReportStore    = (*Client)(nil)
	_ store.RateSource     = (*Client)(nil)
	_ store.CitySearcher   = (*Client)(nil)
	_ store.FlightSearcher = (*Client)(nil)
	_ store.Identity       = (*Client)(nil)
)

// New creates a client for the given web-app URL. A nil httpc gets a client
// with a conservative timeout; Apps Script cold starts are slow.
func New(endpoint string, httpc *http.Client) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("gas: missing endpoint URL")
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{endpoint: endpoint, httpc: httpc}, nil
}

type envelope struct {
	Action  string `json:"action"`
	Payload any    `json:"payload"`
}

// response covers the loose reply shape: some actions answer inside data,
// some at the top level.
type response struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	ReportID string          `json:"reportId"`
	Rate     float64         `json:"rate"`
}

func (c *Client) send(ctx context.Context, action string, payload any) (response, error) {
	body, err := json.Marshal(envelope{Action: action, Payload: payload})
	if err != nil {
		return response{}, fmt.Errorf("gas %s: marshal request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return response{}, fmt.Errorf("gas %s: build request: %w", action, err)
	}
	// The Apps Script endpoint only parses text/plain bodies; it rejects
	// preflighted content types.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("gas %s: %w", action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return response{}, fmt.Errorf("gas %s: read response: %w", action, err)
	}
	if resp.StatusCode != http.StatusOK {
		return response{}, fmt.Errorf("gas %s: status %d", action, resp.StatusCode)
	}

	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return response{}, fmt.Errorf("gas %s: decode response: %w", action, err)
	}
	if out.Status == "error" {
		msg := out.Message
		if msg == "" {
			msg = "unknown store error"
		}
		return response{}, fmt.Errorf("gas %s: %s", action, msg)
	}

	slog.DebugContext(ctx, "Store request completed",
		"action", action,
		"elapsed", time.Since(start).String())
	return out, nil
}

// CreateReport implements store.ReportStore.
func (c *Client) CreateReport(ctx context.Context, userID string, exchangeRate decimal.Decimal) (string, error) {
	resp, err := c.send(ctx, "createReport", map[string]any{
		"userId":       userID,
		"exchangeRate": exchangeRate.InexactFloat64(),
	})
	if err != nil {
		return "", err
	}
	if resp.ReportID != "" {
		return resp.ReportID, nil
	}
	var data struct {
		ReportID string `json:"reportId"`
	}
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err == nil && data.ReportID != "" {
			return data.ReportID, nil
		}
	}
	return "", fmt.Errorf("gas createReport: no report id in response")
}

// GetReport implements store.ReportStore.
func (c *Client) GetReport(ctx context.Context, reportID string) (store.Report, error) {
	resp, err := c.send(ctx, "getReport", map[string]any{"reportId": reportID})
	if err != nil {
		return store.Report{}, err
	}

	var data struct {
		Header map[string]any              `json:"header"`
		Items  map[string][]map[string]any `json:"items"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return store.Report{}, fmt.Errorf("gas getReport: decode data: %w", err)
	}

	rep := store.Report{
		Header: labels.HeaderFromLabels(reportID, data.Header),
		Items:  make(store.ItemsByCategory),
	}
	for wireKey, rows := range data.Items {
		cat, ok := labels.CategoryFromWire(wireKey)
		if !ok {
			slog.WarnContext(ctx, "Ignoring unknown item group", "key", wireKey, "report_id", reportID)
			continue
		}
		for _, row := range rows {
			it, err := labels.ItemFromLabels(cat, row)
			if err != nil {
				return store.Report{}, fmt.Errorf("gas getReport: %s item: %w", cat, err)
			}
			rep.Items[cat] = append(rep.Items[cat], it)
		}
	}
	return rep, nil
}

// AddItem implements store.ReportStore.
func (c *Client) AddItem(ctx context.Context, reportID string, item core.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	_, err := c.send(ctx, "addItem", map[string]any{
		"reportId": reportID,
		"category": labels.WireCategory(item.Category),
		"itemData": labels.ItemToLabels(item),
	})
	return err
}

// DeleteItem implements store.ReportStore.
func (c *Client) DeleteItem(ctx context.Context, reportID string, cat core.Category, sequence int) error {
	if sequence < 1 {
		return core.ErrInvalidSequence
	}
	_, err := c.send(ctx, "deleteItem", map[string]any{
		"reportId": reportID,
		"category": labels.WireCategory(cat),
		"sequence": sequence,
	})
	return err
}

// ExchangeRate implements store.RateSource.
func (c *Client) ExchangeRate(ctx context.Context, currency string, date core.Date) (decimal.Decimal, error) {
	resp, err := c.send(ctx, "getExchangeRate", map[string]any{
		"currency": currency,
		"date":     date.String(),
	})
	if err != nil {
		return decimal.Zero, err
	}

	rate := resp.Rate
	if rate == 0 && len(resp.Data) > 0 {
		var data struct {
			Rate float64 `json:"rate"`
		}
		if err := json.Unmarshal(resp.Data, &data); err == nil {
			rate = data.Rate
		}
	}
	if rate <= 0 {
		return decimal.Zero, store.ErrNoRate
	}
	return decimal.NewFromFloat(rate), nil
}

// SearchCity implements store.CitySearcher.
func (c *Client) SearchCity(ctx context.Context, query string) ([]string, error) {
	resp, err := c.send(ctx, "searchCity", map[string]any{"query": query})
	if err != nil {
		return nil, err
	}
	var data []struct {
		Name string `json:"name"`
	}
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return nil, fmt.Errorf("gas searchCity: decode data: %w", err)
		}
	}
	names := make([]string, 0, len(data))
	for _, d := range data {
		names = append(names, d.Name)
	}
	return names, nil
}

// SearchFlight implements store.FlightSearcher.
func (c *Client) SearchFlight(ctx context.Context, code string, date core.Date) (store.FlightInfo, error) {
	resp, err := c.send(ctx, "searchFlight", map[string]any{
		"code": code,
		"date": date.String(),
	})
	if err != nil {
		return store.FlightInfo{}, err
	}
	var data struct {
		Departure string `json:"departure"`
		Arrival   string `json:"arrival"`
		DepTime   string `json:"depTime"`
		ArrTime   string `json:"arrTime"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return store.FlightInfo{}, fmt.Errorf("gas searchFlight: decode data: %w", err)
	}
	return store.FlightInfo{
		Departure: data.Departure,
		Arrival:   data.Arrival,
		DepTime:   data.DepTime,
		ArrTime:   data.ArrTime,
	}, nil
}

type wireUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SignIn implements store.Identity.
func (c *Client) SignIn(ctx context.Context, email, password string) (store.User, error) {
	resp, err := c.send(ctx, "signin", map[string]any{"email": email, "password": password})
	if err != nil {
		return store.User{}, err
	}
	var u wireUser
	if err := json.Unmarshal(resp.Data, &u); err != nil {
		return store.User{}, fmt.Errorf("gas signin: decode data: %w", err)
	}
	return store.User{ID: u.ID, Name: u.Name, Email: u.Email}, nil
}

// SignUp implements store.Identity.
func (c *Client) SignUp(ctx context.Context, name, email, password string) (store.User, error) {
	resp, err := c.send(ctx, "signup", map[string]any{"name": name, "email": email, "password": password})
	if err != nil {
		return store.User{}, err
	}
	var u wireUser
	if err := json.Unmarshal(resp.Data, &u); err != nil {
		return store.User{}, fmt.Errorf("gas signup: decode data: %w", err)
	}
	return store.User{ID: u.ID, Name: u.Name, Email: u.Email}, nil
}

// ForgotPassword implements store.Identity.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.send(ctx, "forgotPassword", map[string]any{"email": email})
	return err
}

// ChangePassword implements store.Identity.
func (c *Client) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	_, err := c.send(ctx, "changePassword", map[string]any{
		"userId":      userID,
		"oldPassword": oldPassword,
		"newPassword": newPassword,
	})
	return err
}
