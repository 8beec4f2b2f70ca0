package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/dmitrijs2005/kopilka/internal/client/client"
	"github.com/dmitrijs2005/kopilka/internal/client/connectivity"
	"github.com/dmitrijs2005/kopilka/internal/client/models"
	"github.com/dmitrijs2005/kopilka/internal/client/repositories/actions"
	"github.com/dmitrijs2005/kopilka/internal/client/repositories/expenses"
	"github.com/dmitrijs2005/kopilka/internal/dbx"
	"github.com/dmitrijs2005/kopilka/internal/logging"
)

// failureWarnThreshold: after this many consecutive failed replays a warning
// is logged. Individual failures stay at debug level so transient network
// blips do not spam the user.
const failureWarnThreshold = 3

// SyncService drains the pending-action queue against the remote service,
// at most one drain at a time.
type SyncService interface {
	// Sync runs one drain pass. It is a no-op when offline or when a pass
	// is already in flight; both cases return nil.
	Sync(ctx context.Context) error

	// PendingCount re-reads the queue and returns the number of actions
	// still awaiting confirmation.
	PendingCount(ctx context.Context) (int, error)

	// ConsecutiveFailures returns the current run of failed replays.
	// Reset to zero by any successful replay.
	ConsecutiveFailures() int

	// Run blocks, triggering a drain on every offline-to-online edge,
	// until ctx is cancelled.
	Run(ctx context.Context)
}

type syncService struct {
	client  client.Client
	db      *sql.DB
	monitor *connectivity.Monitor
	logger  logging.Logger

	draining atomic.Bool
	failures atomic.Int64
}

// NewSyncService constructs a SyncService. monitor may be nil, in which case
// connectivity is assumed and every Sync call attempts a drain.
func NewSyncService(c client.Client, db *sql.DB, monitor *connectivity.Monitor, logger logging.Logger) SyncService {
	return &syncService{client: c, db: db, monitor: monitor, logger: logger}
}

func (s *syncService) Sync(ctx context.Context) error {
	if s.monitor != nil && !s.monitor.Online() {
		return nil
	}
	if !s.draining.CompareAndSwap(false, true) {
		return nil
	}
	defer s.draining.Store(false)

	queue := actions.NewSQLiteRepository(s.db)

	list, err := queue.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to read action queue: %w", err)
	}

	for i := range list {
		action := &list[i]
		if err := s.replay(ctx, action); err != nil {
			// the action stays queued for a later pass; one bad action
			// must not block the rest of the queue
			n := s.failures.Add(1)
			s.logger.Debug(ctx, "action replay failed, left queued",
				"action_id", action.ID, "kind", action.Kind, "expense_id", action.Expense.ID, "err", err)
			if n == failureWarnThreshold {
				s.logger.Warn(ctx, "sync keeps failing", "consecutive_failures", n)
			}
			continue
		}
		s.failures.Store(0)
	}

	remaining, err := queue.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count remaining actions: %w", err)
	}
	s.logger.Info(ctx, "sync pass finished", "processed", len(list), "pending", remaining)
	return nil
}

// replay applies one action remotely and, on success, mirrors the committed
// state into the local cache and removes the action — both in one
// transaction, so a crash cannot leave a confirmed action queued.
func (s *syncService) replay(ctx context.Context, action *models.PendingAction) error {
	switch action.Kind {
	case models.ActionUpdate:
		if err := s.client.UpdateExpense(ctx, action.Expense); err != nil {
			return err
		}
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			confirmed := action.Expense
			confirmed.Synced = true
			if err := expenses.NewSQLiteRepository(tx).Save(ctx, &confirmed); err != nil {
				return err
			}
			return actions.NewSQLiteRepository(tx).RemoveByID(ctx, action.ID)
		})

	case models.ActionDelete:
		if err := s.client.DeleteExpense(ctx, action.Expense.ID); err != nil {
			return err
		}
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := expenses.NewSQLiteRepository(tx).DeleteByID(ctx, action.Expense.ID); err != nil {
				return err
			}
			return actions.NewSQLiteRepository(tx).RemoveByID(ctx, action.ID)
		})

	default:
		return fmt.Errorf("unknown action kind %q", action.Kind)
	}
}

func (s *syncService) PendingCount(ctx context.Context) (int, error) {
	return actions.NewSQLiteRepository(s.db).Count(ctx)
}

func (s *syncService) ConsecutiveFailures() int {
	return int(s.failures.Load())
}

func (s *syncService) Run(ctx context.Context) {
	if s.monitor == nil {
		return
	}

	ch, unsubscribe := s.monitor.Subscribe()
	defer unsubscribe()

	for {
		select {
		case online := <-ch:
			if !online {
				continue
			}
			if err := s.Sync(ctx); err != nil {
				s.logger.Warn(ctx, "sync after reconnect failed", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
