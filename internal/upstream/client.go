package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

var (
	// ErrUnauthorized — the upstream rejected the access token (401/403).
	// Routed through the session gate, never surfaced as an inline error.
	ErrUnauthorized = errors.New("upstream rejected credentials")

	// ErrUnavailable — the requested resource does not exist or the
	// upstream failed serving it (404/5xx).
	ErrUnavailable = errors.New("resource unavailable")

	// ErrRetryLater — transient transport failure, no HTTP status.
	ErrRetryLater = errors.New("temporary failure, retry later")
)

// TokenSource supplies the bearer token attached to upstream calls.
// An empty token means the call goes out unauthenticated.
type TokenSource interface {
	AccessToken() string
}

// Client talks to the remote DOT reporting API
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// New creates an upstream client. tokens may be nil for
// unauthenticated usage (login flow only).
func New(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// Login exchanges credentials for an access token
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login/", nil, LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCheckins returns one page of check-in rows.
// pageSize <= 0 requests the complete set.
func (c *Client) GetCheckins(ctx context.Context, page, pageSize int, mode, date string) (*CheckinsPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	if mode != "" {
		q.Set("mode", mode)
	}
	if date != "" {
		q.Set("date", date)
	}

	var resp CheckinsPage
	if err := c.do(ctx, http.MethodGet, "/reports/checkins/", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCheckinKPIs returns the scalar KPI snapshot for a mode/date
func (c *Client) GetCheckinKPIs(ctx context.Context, mode, date string) (*KPISnapshot, error) {
	q := url.Values{}
	if mode != "" {
		q.Set("mode", mode)
	}
	if date != "" {
		q.Set("date", date)
	}

	var resp KPISnapshot
	if err := c.do(ctx, http.MethodGet, "/reports/checkins-kpis/", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRoomTypes returns the establishment's room type reference list
func (c *Client) GetRoomTypes(ctx context.Context) ([]RoomType, error) {
	var resp []RoomType
	if err := c.do(ctx, http.MethodGet, "/ae/room-types/", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetNationalities returns the nationality reference list
func (c *Client) GetNationalities(ctx context.Context) ([]Nationality, error) {
	var resp []Nationality
	if err := c.do(ctx, http.MethodGet, "/reports/nationalities/", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetMergedReports returns one page of merged report rows for an
// establishment/year(/month), preserving server order.
func (c *Client) GetMergedReports(ctx context.Context, query MergedReportsQuery) (*ReportsPage, error) {
	q := url.Values{}
	q.Set("establishment_id", strconv.FormatInt(query.EstablishmentID, 10))
	if query.Year > 0 {
		q.Set("year", strconv.Itoa(query.Year))
	}
	if query.Month != nil {
		q.Set("month", strconv.Itoa(*query.Month))
	}
	q.Set("page", strconv.Itoa(query.Page))
	if query.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(query.PageSize))
	}
	if query.Status != "" {
		q.Set("status", query.Status)
	}

	var resp ReportsPage
	if err := c.do(ctx, http.MethodGet, "/reports/merged/", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateCheckin creates a check-in (guest log) row
func (c *Client) CreateCheckin(ctx context.Context, req CheckinUpsert) (*CheckinRow, error) {
	var resp CheckinRow
	if err := c.do(ctx, http.MethodPost, "/reports/checkins/", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateCheckin replaces a check-in row by ID
func (c *Client) UpdateCheckin(ctx context.Context, id int64, req CheckinUpsert) (*CheckinRow, error) {
	var resp CheckinRow
	path := fmt.Sprintf("/reports/checkins/%d/", id)
	if err := c.do(ctx, http.MethodPut, path, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteCheckin deletes a check-in row by ID
func (c *Client) DeleteCheckin(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/reports/checkins/%d/", id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// DeleteGuestlogNationality removes one nationality line from a guest log
func (c *Client) DeleteGuestlogNationality(ctx context.Context, logID, nationID int64) error {
	path := fmt.Sprintf("/guestlogs/%d/nationalities/%d/", logID, nationID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// do issues one request and decodes the JSON response into out (if
// non-nil), translating failures into the package error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRetryLater, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s returned %d", ErrUnavailable, method, path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upstream %s %s: status=%d body=%s", method, path, resp.StatusCode, string(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
