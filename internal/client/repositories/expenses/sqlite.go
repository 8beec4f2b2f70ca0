package expenses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/kopilka/internal/client/models"
	"github.com/dmitrijs2005/kopilka/internal/common"
	"github.com/dmitrijs2005/kopilka/internal/dbx"
	"github.com/shopspring/decimal"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const expenseColumns = `id, user_id, amount, description, date, currency,
	category_id, category_name, category_color, category_icon,
	payment_method, notes, excluded, origin, synced, created_at, updated_at`

// Save upserts an expense by id. On conflict every column is replaced, so a
// remote refresh fully overwrites a stale local row.
func (r *SQLiteRepository) Save(ctx context.Context, e *models.Expense) error {
	query := `INSERT INTO expenses (` + expenseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			amount = excluded.amount,
			description = excluded.description,
			date = excluded.date,
			currency = excluded.currency,
			category_id = excluded.category_id,
			category_name = excluded.category_name,
			category_color = excluded.category_color,
			category_icon = excluded.category_icon,
			payment_method = excluded.payment_method,
			notes = excluded.notes,
			excluded = excluded.excluded,
			origin = excluded.origin,
			synced = excluded.synced,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`

	var categoryID, categoryName, categoryColor, categoryIcon sql.NullString
	if e.CategoryID != nil {
		categoryID = sql.NullString{String: *e.CategoryID, Valid: true}
	}
	if e.Category != nil {
		categoryName = sql.NullString{String: e.Category.Name, Valid: true}
		categoryColor = sql.NullString{String: e.Category.Color, Valid: true}
		categoryIcon = sql.NullString{String: e.Category.Icon, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.Amount.String(), e.Description,
		e.Date.Format(models.DateLayout), e.Currency,
		categoryID, categoryName, categoryColor, categoryIcon,
		e.PaymentMethod, e.Notes, boolToInt(e.Excluded), string(e.Origin),
		boolToInt(e.Synced),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		e.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert expense: %w", err)
	}
	return nil
}

// SaveAll upserts every expense in the list.
func (r *SQLiteRepository) SaveAll(ctx context.Context, list []models.Expense) error {
	for i := range list {
		if err := r.Save(ctx, &list[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetAll lists every cached expense, newest date first.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses ORDER BY date DESC, id`
	return r.query(ctx, query)
}

// GetByDateRange lists expenses with from <= date <= to.
func (r *SQLiteRepository) GetByDateRange(ctx context.Context, from, to time.Time) ([]models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses
		WHERE date >= ? AND date <= ? ORDER BY date DESC, id`
	return r.query(ctx, query, from.Format(models.DateLayout), to.Format(models.DateLayout))
}

// GetByID returns a single expense or common.ErrorNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("expense %s: %w", id, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return e, nil
}

// DeleteByID removes an expense. Absent ids are ignored.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

// Clear erases the whole collection.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("failed to clear expenses: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select expenses: %w", err)
	}
	defer rows.Close()

	var result []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	var (
		e                           models.Expense
		amount, date               string
		categoryID, categoryName   sql.NullString
		categoryColor, categoryIcon sql.NullString
		excluded, synced            int
		origin                      string
		createdAt, updatedAt        string
	)

	err := row.Scan(&e.ID, &e.UserID, &amount, &e.Description, &date, &e.Currency,
		&categoryID, &categoryName, &categoryColor, &categoryIcon,
		&e.PaymentMethod, &e.Notes, &excluded, &origin, &synced,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if e.Date, err = time.Parse(models.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	if categoryID.Valid {
		e.CategoryID = &categoryID.String
	}
	if categoryName.Valid || categoryColor.Valid || categoryIcon.Valid {
		e.Category = &models.CategorySnapshot{
			Name:  categoryName.String,
			Color: categoryColor.String,
			Icon:  categoryIcon.String,
		}
	}
	e.Excluded = excluded != 0
	e.Origin = models.Origin(origin)
	e.Synced = synced != 0
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if e.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
