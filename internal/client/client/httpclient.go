package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/kopilka/internal/client/models"
	"github.com/dmitrijs2005/kopilka/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

// expiryMargin: a token this close to expiring is refreshed proactively
// instead of waiting for the gateway to reject it.
const expiryMargin = 30 * time.Second

// HTTPClient talks to the hosted database's RPC gateway: JSON payloads,
// POST {endpoint}/rpc/{procedure}, bearer-token auth with transparent
// refresh. It implements Client and the connectivity prober.
type HTTPClient struct {
	endpointURL string
	apiKey      string
	http        *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// NewHTTPClient returns a client bound to the given gateway endpoint.
// The API key identifies the application; user auth is added after Login.
func NewHTTPClient(endpointURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		endpointURL: strings.TrimRight(endpointURL, "/"),
		apiKey:      apiKey,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// expenseRow is the wire shape of an expense. Calendar dates travel as
// "YYYY-MM-DD" strings; amounts as decimal strings.
type expenseRow struct {
	ID            string                   `json:"id"`
	UserID        string                   `json:"user_id"`
	Amount        decimal.Decimal          `json:"amount"`
	Description   string                   `json:"description"`
	Date          string                   `json:"date"`
	Currency      string                   `json:"currency"`
	CategoryID    *string                  `json:"category_id"`
	Category      *models.CategorySnapshot `json:"category,omitempty"`
	PaymentMethod string                   `json:"payment_method,omitempty"`
	Notes         string                   `json:"notes,omitempty"`
	Excluded      bool                     `json:"excluded"`
	Origin        string                   `json:"origin"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

func toRow(e *models.Expense) expenseRow {
	return expenseRow{
		ID:            e.ID,
		UserID:        e.UserID,
		Amount:        e.Amount,
		Description:   e.Description,
		Date:          e.Date.Format(models.DateLayout),
		Currency:      e.Currency,
		CategoryID:    e.CategoryID,
		Category:      e.Category,
		PaymentMethod: e.PaymentMethod,
		Notes:         e.Notes,
		Excluded:      e.Excluded,
		Origin:        string(e.Origin),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func fromRow(row expenseRow) (*models.Expense, error) {
	date, err := time.Parse(models.DateLayout, row.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", row.Date, err)
	}
	return &models.Expense{
		ID:            row.ID,
		UserID:        row.UserID,
		Amount:        row.Amount,
		Description:   row.Description,
		Date:          date,
		Currency:      row.Currency,
		CategoryID:    row.CategoryID,
		Category:      row.Category,
		PaymentMethod: row.PaymentMethod,
		Notes:         row.Notes,
		Excluded:      row.Excluded,
		Origin:        models.Origin(row.Origin),
		Synced:        true,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

// Login authenticates with the password grant and stores the session tokens.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (string, error) {
	payload := map[string]string{
		"grant_type": "password",
		"email":      email,
		"password":   password,
	}

	var resp tokenResponse
	if err := c.post(ctx, "/auth/token", payload, &resp, false); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.refreshToken = resp.RefreshToken
	c.mu.Unlock()

	return resp.UserID, nil
}

func (c *HTTPClient) RestoreSession(accessToken, refreshToken string) {
	c.mu.Lock()
	c.accessToken = accessToken
	c.refreshToken = refreshToken
	c.mu.Unlock()
}

func (c *HTTPClient) Session() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

// Ping probes the gateway health endpoint. Any transport failure or
// non-2xx status counts as unreachable.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL+"/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ErrUnavailable
	}
	return nil
}

func (c *HTTPClient) ListExpenses(ctx context.Context, userID string, from, to time.Time) ([]models.Expense, error) {
	payload := map[string]string{
		"owner_id":  userID,
		"date_from": from.Format(models.DateLayout),
		"date_to":   to.Format(models.DateLayout),
	}

	var rows []expenseRow
	if err := c.rpc(ctx, "list_expenses", payload, &rows); err != nil {
		return nil, err
	}

	result := make([]models.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, nil
}

func (c *HTTPClient) CreateExpense(ctx context.Context, draft *models.Expense) (*models.Expense, error) {
	var row expenseRow
	if err := c.rpc(ctx, "create_expense", toRow(draft), &row); err != nil {
		return nil, err
	}
	return fromRow(row)
}

func (c *HTTPClient) UpdateExpense(ctx context.Context, snapshot models.Expense) error {
	payload := map[string]any{
		"expense_id":  snapshot.ID,
		"amount":      snapshot.Amount,
		"description": snapshot.Description,
		"date":        snapshot.Date.Format(models.DateLayout),
		"currency":    snapshot.Currency,
		"category_id": snapshot.CategoryID,
		"excluded":    snapshot.Excluded,
	}
	return c.rpc(ctx, "update_expense", payload, nil)
}

func (c *HTTPClient) DeleteExpense(ctx context.Context, id string) error {
	return c.rpc(ctx, "delete_expense", map[string]string{"expense_id": id}, nil)
}

func (c *HTTPClient) ImportSplitwise(ctx context.Context, payload []byte) (int, error) {
	var resp struct {
		Imported int `json:"imported"`
	}
	body := map[string]json.RawMessage{"export": json.RawMessage(payload)}
	if err := c.rpc(ctx, "import_splitwise", body, &resp); err != nil {
		return 0, err
	}
	return resp.Imported, nil
}

func (c *HTTPClient) rpc(ctx context.Context, procedure string, payload, out any) error {
	return c.post(ctx, "/rpc/"+procedure, payload, out, true)
}

// post performs one JSON call. Authenticated calls refresh the access token
// proactively when its exp claim is close, and once more reactively when the
// gateway still answers 401 (mirrors an expired-token race).
func (c *HTTPClient) post(ctx context.Context, path string, payload, out any, authed bool) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if authed {
		c.refreshIfExpired(ctx)
	}

	status, data, err := c.do(ctx, path, body, authed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if status == http.StatusUnauthorized && authed {
		if refreshErr := c.refresh(ctx); refreshErr != nil {
			return c.mapStatus(status, data)
		}
		status, data, err = c.do(ctx, path, body, authed)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	if status < 200 || status > 299 {
		return c.mapStatus(status, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, path string, body []byte, authed bool) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if authed {
		c.mu.Lock()
		token := c.accessToken
		c.mu.Unlock()
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

// refreshIfExpired renews the session when the access token's exp claim has
// passed (or is about to). Errors are swallowed: the follow-up call will hit
// the reactive 401 path or fail with a mapped error.
func (c *HTTPClient) refreshIfExpired(ctx context.Context) {
	c.mu.Lock()
	token, refresh := c.accessToken, c.refreshToken
	c.mu.Unlock()

	if token == "" || refresh == "" || !tokenExpired(token) {
		return
	}
	_ = c.refresh(ctx)
}

func (c *HTTPClient) refresh(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.refreshToken
	c.mu.Unlock()

	if refresh == "" {
		return ErrUnauthorized
	}

	payload := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refresh,
	}
	var resp tokenResponse
	if err := c.post(ctx, "/auth/token", payload, &resp, false); err != nil {
		return err
	}

	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.refreshToken = resp.RefreshToken
	c.mu.Unlock()
	return nil
}

func (c *HTTPClient) mapStatus(status int, body []byte) error {
	switch {
	case status == http.StatusNotFound:
		return common.ErrorNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status >= 500:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc status %d: %s", status, strings.TrimSpace(string(body)))
	}
}

// tokenExpired inspects the unverified exp claim. Signature checks belong to
// the gateway; the client only needs a cheap local expiry estimate.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < expiryMargin
}
