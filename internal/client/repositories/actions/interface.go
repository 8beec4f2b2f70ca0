package actions

import (
	"context"

	"github.com/dmitrijs2005/kopilka/internal/client/models"
)

// Repository describes the durable pending-action queue. Actions survive
// process restarts and any number of failed reconciliation attempts; they are
// removed only after the corresponding remote call succeeds.
type Repository interface {
	// Enqueue appends an action to the queue.
	Enqueue(ctx context.Context, a *models.PendingAction) error

	// GetAll returns the queue ordered by enqueue timestamp ascending.
	// Same-millisecond ties fall back to insertion order.
	GetAll(ctx context.Context) ([]models.PendingAction, error)

	// Count returns the number of queued actions.
	Count(ctx context.Context) (int, error)

	// RemoveByID deletes a single action. Absent ids are ignored.
	RemoveByID(ctx context.Context, id string) error

	// Clear erases the queue. Used on logout/reset only.
	Clear(ctx context.Context) error
}
