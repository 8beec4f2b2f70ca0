package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/kopilka/internal/client/models"
	"github.com/dmitrijs2005/kopilka/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
// The expense snapshot is stored as a JSON document; decimal amounts marshal
// as strings, so no precision is lost on the round trip.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Enqueue appends an action to the queue.
func (r *SQLiteRepository) Enqueue(ctx context.Context, a *models.PendingAction) error {
	snapshot, err := json.Marshal(a.Expense)
	if err != nil {
		return fmt.Errorf("failed to marshal expense snapshot: %w", err)
	}

	query := `INSERT INTO pending_actions (id, kind, expense, enqueued_at) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, a.ID, string(a.Kind), string(snapshot), a.EnqueuedAt); err != nil {
		return fmt.Errorf("failed to enqueue action: %w", err)
	}
	return nil
}

// GetAll returns the queue in replay order: enqueue timestamp ascending,
// insertion order for ties.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.PendingAction, error) {
	query := `SELECT id, kind, expense, enqueued_at FROM pending_actions
		ORDER BY enqueued_at ASC, rowid ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select actions: %w", err)
	}
	defer rows.Close()

	var result []models.PendingAction
	for rows.Next() {
		var (
			a        models.PendingAction
			kind     string
			snapshot string
		)
		if err := rows.Scan(&a.ID, &kind, &snapshot, &a.EnqueuedAt); err != nil {
			return nil, err
		}
		a.Kind = models.ActionKind(kind)
		if err := json.Unmarshal([]byte(snapshot), &a.Expense); err != nil {
			return nil, fmt.Errorf("failed to unmarshal expense snapshot: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Count returns the number of queued actions.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_actions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count actions: %w", err)
	}
	return n, nil
}

// RemoveByID deletes a single action. Absent ids are ignored.
func (r *SQLiteRepository) RemoveByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove action: %w", err)
	}
	return nil
}

// Clear erases the queue.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_actions`); err != nil {
		return fmt.Errorf("failed to clear actions: %w", err)
	}
	return nil
}
