package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/kopilka/internal/client/models"
)

// Client is the remote data service reached through named procedure calls.
// All business rules (budget math, import transformation) live behind these
// procedures; the client only knows their call signatures and result shapes.
type Client interface {
	Close() error

	// Login authenticates against the gateway token endpoint and returns
	// the user identifier. Tokens are held by the client afterwards.
	Login(ctx context.Context, email, password string) (string, error)

	// RestoreSession injects previously persisted tokens, e.g. after a
	// process restart.
	RestoreSession(accessToken, refreshToken string)

	// Session returns the current access and refresh tokens so callers can
	// persist them for the next start.
	Session() (accessToken, refreshToken string)

	// Ping checks gateway liveness. Used as the reachability probe.
	Ping(ctx context.Context) error

	// ListExpenses fetches expenses for an owner within a date range.
	ListExpenses(ctx context.Context, userID string, from, to time.Time) ([]models.Expense, error)

	// CreateExpense creates an expense remotely and returns the stored row
	// with its server-assigned identifier.
	CreateExpense(ctx context.Context, draft *models.Expense) (*models.Expense, error)

	// UpdateExpense applies the snapshot's fields to the remote record.
	UpdateExpense(ctx context.Context, snapshot models.Expense) error

	// DeleteExpense removes the remote record.
	DeleteExpense(ctx context.Context, id string) error

	// ImportSplitwise forwards a Splitwise export payload to the delegated
	// import procedure and returns the number of imported expenses.
	ImportSplitwise(ctx context.Context, payload []byte) (int, error)
}
