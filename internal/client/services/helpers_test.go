package services

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/dmitrijs2005/kopilka/internal/client/models"
	"github.com/dmitrijs2005/kopilka/internal/logging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// a single connection keeps the in-memory database alive across the
	// pool and lets transactions see prior writes
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
CREATE TABLE expenses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  date TEXT NOT NULL,
  currency TEXT NOT NULL,
  category_id TEXT,
  category_name TEXT,
  category_color TEXT,
  category_icon TEXT,
  payment_method TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT '',
  excluded INTEGER NOT NULL DEFAULT 0,
  origin TEXT NOT NULL DEFAULT 'manual',
  synced INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE TABLE pending_actions (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  expense TEXT NOT NULL,
  enqueued_at INTEGER NOT NULL
);
CREATE TABLE metadata (
  name TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.DiscardHandler))
}

func testExpense(id, userID string, amount string) *models.Expense {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	return &models.Expense{
		ID:        id,
		UserID:    userID,
		Amount:    decimal.RequireFromString(amount),
		Date:      time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		Currency:  "EUR",
		Origin:    models.OriginManual,
		Synced:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// fakeClient lets each test intercept just the calls it cares about.
type fakeClient struct {
	loginFunc   func(ctx context.Context, email, password string) (string, error)
	pingFunc    func(ctx context.Context) error
	listFunc    func(ctx context.Context, userID string, from, to time.Time) ([]models.Expense, error)
	createFunc  func(ctx context.Context, draft *models.Expense) (*models.Expense, error)
	updateFunc  func(ctx context.Context, snapshot models.Expense) error
	deleteFunc  func(ctx context.Context, id string) error
	importFunc  func(ctx context.Context, payload []byte) (int, error)
	access      string
	refresh     string
	closeCalled bool
}

func (c *fakeClient) Close() error {
	c.closeCalled = true
	return nil
}

func (c *fakeClient) Login(ctx context.Context, email, password string) (string, error) {
	if c.loginFunc != nil {
		return c.loginFunc(ctx, email, password)
	}
	return "user-1", nil
}

func (c *fakeClient) RestoreSession(accessToken, refreshToken string) {
	c.access, c.refresh = accessToken, refreshToken
}

func (c *fakeClient) Session() (string, string) {
	return c.access, c.refresh
}

func (c *fakeClient) Ping(ctx context.Context) error {
	if c.pingFunc != nil {
		return c.pingFunc(ctx)
	}
	return nil
}

func (c *fakeClient) ListExpenses(ctx context.Context, userID string, from, to time.Time) ([]models.Expense, error) {
	if c.listFunc != nil {
		return c.listFunc(ctx, userID, from, to)
	}
	return nil, nil
}

func (c *fakeClient) CreateExpense(ctx context.Context, draft *models.Expense) (*models.Expense, error) {
	if c.createFunc != nil {
		return c.createFunc(ctx, draft)
	}
	created := *draft
	created.ID = "server-id"
	return &created, nil
}

func (c *fakeClient) UpdateExpense(ctx context.Context, snapshot models.Expense) error {
	if c.updateFunc != nil {
		return c.updateFunc(ctx, snapshot)
	}
	return nil
}

func (c *fakeClient) DeleteExpense(ctx context.Context, id string) error {
	if c.deleteFunc != nil {
		return c.deleteFunc(ctx, id)
	}
	return nil
}

func (c *fakeClient) ImportSplitwise(ctx context.Context, payload []byte) (int, error) {
	if c.importFunc != nil {
		return c.importFunc(ctx, payload)
	}
	return 0, nil
}
