package expenses

import (
	"context"
	"time"

	"github.com/dmitrijs2005/kopilka/internal/client/models"
)

// Repository describes persistence operations for locally cached expenses.
// Implementations are backed by the local SQLite database and never touch
// the network.
type Repository interface {
	// Save inserts a new expense or fully replaces an existing one by ID.
	Save(ctx context.Context, e *models.Expense) error

	// SaveAll upserts every expense in the list. Callers that need
	// atomicity bind the repository to a transaction via dbx.WithTx.
	SaveAll(ctx context.Context, list []models.Expense) error

	// GetAll returns every cached expense, newest date first.
	GetAll(ctx context.Context) ([]models.Expense, error)

	// GetByID returns a single expense, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Expense, error)

	// GetByDateRange returns expenses whose calendar date falls within
	// [from, to], both ends inclusive.
	GetByDateRange(ctx context.Context, from, to time.Time) ([]models.Expense, error)

	// DeleteByID removes an expense. Deleting an absent ID is not an error.
	DeleteByID(ctx context.Context, id string) error

	// Clear erases the whole collection. Used on logout/reset only.
	Clear(ctx context.Context) error
}
