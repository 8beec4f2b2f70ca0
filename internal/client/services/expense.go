package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/kopilka/internal/client/client"
	"github.com/dmitrijs2005/kopilka/internal/client/connectivity"
	"github.com/dmitrijs2005/kopilka/internal/client/models"
	"github.com/dmitrijs2005/kopilka/internal/client/repositories/actions"
	"github.com/dmitrijs2005/kopilka/internal/client/repositories/expenses"
	"github.com/dmitrijs2005/kopilka/internal/common"
	"github.com/dmitrijs2005/kopilka/internal/dbx"
	"github.com/dmitrijs2005/kopilka/internal/logging"
	"github.com/sethvargo/go-retry"
)

// ExpenseService is the application-facing surface for expense reads and
// mutations. Update and Delete work offline: the mutation is applied to the
// local cache optimistically and queued for replay. Add and ImportSplitwise
// require connectivity.
type ExpenseService interface {
	List(ctx context.Context) ([]models.Expense, error)
	ListRange(ctx context.Context, from, to time.Time) ([]models.Expense, error)
	Get(ctx context.Context, id string) (*models.Expense, error)

	// Add creates an expense remotely (server-assigned identifier) and
	// caches the returned row. Fails with common.ErrOffline when offline.
	Add(ctx context.Context, draft models.Expense) (*models.Expense, error)

	// Update merges the patch into the cached record, marks it unsynced,
	// queues an update action and returns the merged record. The caller
	// sees the new values immediately, before any network activity.
	Update(ctx context.Context, id string, patch models.ExpensePatch) (*models.Expense, error)

	// Delete queues a delete action. The cached record stays visible until
	// the delete is confirmed remotely; a failed delete therefore leaves
	// the record in place instead of silently vanishing.
	Delete(ctx context.Context, id string) error

	// Refresh hydrates the local cache from the remote service for the
	// given owner and date range. Returns the number of fetched rows.
	Refresh(ctx context.Context, userID string, from, to time.Time) (int, error)

	// ImportSplitwise forwards a Splitwise export to the delegated import
	// procedure. Fails with common.ErrOffline when offline.
	ImportSplitwise(ctx context.Context, payload []byte) (int, error)
}

type expenseService struct {
	client  client.Client
	db      *sql.DB
	monitor *connectivity.Monitor
	syncer  SyncService
	logger  logging.Logger
}

// NewExpenseService constructs an ExpenseService. monitor and syncer may be
// nil: without a monitor connectivity is assumed, without a syncer mutations
// are queued but no drain is triggered.
func NewExpenseService(c client.Client, db *sql.DB, monitor *connectivity.Monitor, syncer SyncService, logger logging.Logger) ExpenseService {
	return &expenseService{client: c, db: db, monitor: monitor, syncer: syncer, logger: logger}
}

func (s *expenseService) repo() *expenses.SQLiteRepository {
	return expenses.NewSQLiteRepository(s.db)
}

func (s *expenseService) List(ctx context.Context) ([]models.Expense, error) {
	return s.repo().GetAll(ctx)
}

func (s *expenseService) ListRange(ctx context.Context, from, to time.Time) ([]models.Expense, error) {
	return s.repo().GetByDateRange(ctx, from, to)
}

func (s *expenseService) Get(ctx context.Context, id string) (*models.Expense, error) {
	return s.repo().GetByID(ctx, id)
}

func (s *expenseService) online() bool {
	return s.monitor == nil || s.monitor.Online()
}

func (s *expenseService) Add(ctx context.Context, draft models.Expense) (*models.Expense, error) {
	if !s.online() {
		return nil, fmt.Errorf("create expense: %w", common.ErrOffline)
	}

	if draft.Origin == "" {
		draft.Origin = models.OriginManual
	}

	created, err := s.client.CreateExpense(ctx, &draft)
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	created.Synced = true
	if err := s.repo().Save(ctx, created); err != nil {
		return nil, fmt.Errorf("failed to cache created expense: %w", err)
	}
	return created, nil
}

func (s *expenseService) Update(ctx context.Context, id string, patch models.ExpensePatch) (*models.Expense, error) {
	var merged *models.Expense

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := expenses.NewSQLiteRepository(tx)

		e, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		e.Apply(patch)
		e.Synced = false
		e.UpdatedAt = time.Now().UTC()

		if err := repo.Save(ctx, e); err != nil {
			return err
		}

		action := models.NewPendingAction(models.ActionUpdate, *e)
		if err := actions.NewSQLiteRepository(tx).Enqueue(ctx, action); err != nil {
			return err
		}

		merged = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.triggerSync()
	return merged, nil
}

func (s *expenseService) Delete(ctx context.Context, id string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		e, err := expenses.NewSQLiteRepository(tx).GetByID(ctx, id)
		if err != nil {
			return err
		}

		// the record itself is left untouched until the remote confirms
		action := models.NewPendingAction(models.ActionDelete, *e)
		return actions.NewSQLiteRepository(tx).Enqueue(ctx, action)
	})
	if err != nil {
		return err
	}

	s.triggerSync()
	return nil
}

// triggerSync kicks off a drain pass in the background when online. The
// caller never blocks on network activity.
func (s *expenseService) triggerSync() {
	if s.syncer == nil || !s.online() {
		return
	}
	go func() {
		if err := s.syncer.Sync(context.Background()); err != nil {
			s.logger.Warn(context.Background(), "background sync failed", "err", err)
		}
	}()
}

func (s *expenseService) Refresh(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var rows []models.Expense

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		rows, err = s.client.ListExpenses(ctx, userID, from, to)
		if err != nil {
			if errors.Is(err, client.ErrUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("refresh: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return expenses.NewSQLiteRepository(tx).SaveAll(ctx, rows)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to cache fetched expenses: %w", err)
	}

	return len(rows), nil
}

func (s *expenseService) ImportSplitwise(ctx context.Context, payload []byte) (int, error) {
	if !s.online() {
		return 0, fmt.Errorf("splitwise import: %w", common.ErrOffline)
	}

	n, err := s.client.ImportSplitwise(ctx, payload)
	if err != nil {
		return 0, fmt.Errorf("splitwise import: %w", err)
	}
	return n, nil
}
