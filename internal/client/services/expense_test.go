package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/kopilka/internal/client/client"
	"github.com/dmitrijs2005/kopilka/internal/client/connectivity"
	"github.com/dmitrijs2005/kopilka/internal/client/models"
	"github.com/dmitrijs2005/kopilka/internal/client/repositories/actions"
	"github.com/dmitrijs2005/kopilka/internal/client/repositories/expenses"
	"github.com/dmitrijs2005/kopilka/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUpdate_OptimisticLocalVisibility(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	e1 := testExpense("e1", "u1", "10")
	require.NoError(t, expenses.NewSQLiteRepository(db).Save(ctx, e1))

	// the client must never be reached: the mutation is local
	c := &fakeClient{
		updateFunc: func(ctx context.Context, snapshot models.Expense) error {
			t.Error("update must not hit the network")
			return nil
		},
	}

	svc := NewExpenseService(c, db, nil, nil, testLogger())

	amount := decimal.RequireFromString("50")
	merged, err := svc.Update(ctx, "e1", models.ExpensePatch{Amount: &amount})
	require.NoError(t, err)

	assert.True(t, merged.Amount.Equal(amount))
	assert.False(t, merged.Synced)

	// the cached record reflects the change immediately
	got, err := expenses.NewSQLiteRepository(db).GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(amount))
	assert.False(t, got.Synced)

	// and exactly one update action is queued
	queued, err := actions.NewSQLiteRepository(db).GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, models.ActionUpdate, queued[0].Kind)
	assert.Equal(t, "e1", queued[0].Expense.ID)
	assert.True(t, queued[0].Expense.Amount.Equal(amount), "the snapshot carries the merged state")
}

func TestUpdate_MissingRecordEnqueuesNothing(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	svc := NewExpenseService(&fakeClient{}, db, nil, nil, testLogger())

	amount := decimal.RequireFromString("50")
	_, err := svc.Update(ctx, "absent", models.ExpensePatch{Amount: &amount})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	n, err := actions.NewSQLiteRepository(db).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdate_ClearingCategoryDropsSnapshot(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	e1 := testExpense("e1", "u1", "10")
	e1.CategoryID = strPtr("cat-1")
	e1.Category = &models.CategorySnapshot{Name: "Groceries", Color: "#0f0", Icon: "cart"}
	require.NoError(t, expenses.NewSQLiteRepository(db).Save(ctx, e1))

	svc := NewExpenseService(&fakeClient{}, db, nil, nil, testLogger())

	merged, err := svc.Update(ctx, "e1", models.ExpensePatch{CategoryID: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, merged.CategoryID)
	assert.Nil(t, merged.Category)
}

func TestDelete_KeepsRecordUntilConfirmed(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	e1 := testExpense("e1", "u1", "10")
	require.NoError(t, expenses.NewSQLiteRepository(db).Save(ctx, e1))

	svc := NewExpenseService(&fakeClient{}, db, nil, nil, testLogger())
	require.NoError(t, svc.Delete(ctx, "e1"))

	// still cached: only a confirmed remote delete removes it
	_, err := expenses.NewSQLiteRepository(db).GetByID(ctx, "e1")
	require.NoError(t, err)

	queued, err := actions.NewSQLiteRepository(db).GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, models.ActionDelete, queued[0].Kind)
	assert.Equal(t, "e1", queued[0].Expense.ID)
}

func TestDelete_MissingRecord(t *testing.T) {
	db := setupDB(t)
	svc := NewExpenseService(&fakeClient{}, db, nil, nil, testLogger())
	assert.ErrorIs(t, svc.Delete(context.Background(), "absent"), common.ErrorNotFound)
}

func TestAdd_RequiresConnectivity(t *testing.T) {
	db := setupDB(t)
	m := connectivity.NewMonitor(false, testLogger())
	svc := NewExpenseService(&fakeClient{}, db, m, nil, testLogger())

	_, err := svc.Add(context.Background(), *testExpense("", "u1", "5"))
	assert.ErrorIs(t, err, common.ErrOffline)
}

func TestAdd_CachesServerRow(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	c := &fakeClient{
		createFunc: func(ctx context.Context, draft *models.Expense) (*models.Expense, error) {
			created := *draft
			created.ID = "srv-1"
			return &created, nil
		},
	}

	svc := NewExpenseService(c, db, connectivity.NewMonitor(true, testLogger()), nil, testLogger())

	draft := testExpense("", "u1", "5")
	draft.Origin = ""
	created, err := svc.Add(ctx, *draft)
	require.NoError(t, err)
	assert.Equal(t, "srv-1", created.ID)
	assert.Equal(t, models.OriginManual, created.Origin)

	got, err := expenses.NewSQLiteRepository(db).GetByID(ctx, "srv-1")
	require.NoError(t, err)
	assert.True(t, got.Synced)
}

func TestRefresh_RetriesOnUnavailable(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	var mu sync.Mutex
	calls := 0
	c := &fakeClient{
		listFunc: func(ctx context.Context, userID string, from, to time.Time) ([]models.Expense, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls < 3 {
				return nil, fmt.Errorf("gateway: %w", client.ErrUnavailable)
			}
			return []models.Expense{*testExpense("e1", userID, "10"), *testExpense("e2", userID, "20")}, nil
		},
	}

	svc := NewExpenseService(c, db, nil, nil, testLogger())

	n, err := svc.Refresh(ctx, "u1", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	mu.Lock()
	assert.Equal(t, 3, calls)
	mu.Unlock()

	all, err := expenses.NewSQLiteRepository(db).GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRefresh_DoesNotRetryAuthFailures(t *testing.T) {
	db := setupDB(t)

	var mu sync.Mutex
	calls := 0
	c := &fakeClient{
		listFunc: func(ctx context.Context, userID string, from, to time.Time) ([]models.Expense, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			return nil, client.ErrUnauthorized
		},
	}

	svc := NewExpenseService(c, db, nil, nil, testLogger())

	_, err := svc.Refresh(context.Background(), "u1", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestImportSplitwise_RequiresConnectivity(t *testing.T) {
	db := setupDB(t)
	m := connectivity.NewMonitor(false, testLogger())
	svc := NewExpenseService(&fakeClient{}, db, m, nil, testLogger())

	_, err := svc.ImportSplitwise(context.Background(), []byte(`[]`))
	assert.ErrorIs(t, err, common.ErrOffline)
}

func TestImportSplitwise_DelegatesToGateway(t *testing.T) {
	db := setupDB(t)

	c := &fakeClient{
		importFunc: func(ctx context.Context, payload []byte) (int, error) {
			assert.JSONEq(t, `[{"cost":"12.50"}]`, string(payload))
			return 7, nil
		},
	}

	svc := NewExpenseService(c, db, nil, nil, testLogger())
	n, err := svc.ImportSplitwise(context.Background(), []byte(`[{"cost":"12.50"}]`))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

// The full offline round trip: edit while offline, reconnect, drain.
func TestOfflineUpdateThenReconnect(t *testing.T) {
	db := setupDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e1 := testExpense("e1", "u1", "10")
	require.NoError(t, expenses.NewSQLiteRepository(db).Save(ctx, e1))

	replayed := make(chan models.Expense, 1)
	c := &fakeClient{
		updateFunc: func(ctx context.Context, snapshot models.Expense) error {
			replayed <- snapshot
			return nil
		},
	}

	m := connectivity.NewMonitor(false, testLogger())
	syncer := NewSyncService(c, db, m, testLogger())
	svc := NewExpenseService(c, db, m, syncer, testLogger())
	go syncer.Run(ctx)

	amount := decimal.RequireFromString("25")
	merged, err := svc.Update(ctx, "e1", models.ExpensePatch{Amount: &amount})
	require.NoError(t, err)
	assert.False(t, merged.Synced)

	select {
	case <-replayed:
		t.Fatal("nothing must be replayed while offline")
	case <-time.After(50 * time.Millisecond):
	}

	m.Set(true)

	select {
	case snapshot := <-replayed:
		assert.True(t, snapshot.Amount.Equal(amount))
	case <-time.After(time.Second):
		t.Fatal("reconnect did not drain the queue")
	}

	require.Eventually(t, func() bool {
		n, err := syncer.PendingCount(ctx)
		return err == nil && n == 0
	}, time.Second, 10*time.Millisecond)

	got, err := expenses.NewSQLiteRepository(db).GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, got.Synced)
}

func TestUpdate_OnlineTriggersBackgroundDrain(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	e1 := testExpense("e1", "u1", "10")
	require.NoError(t, expenses.NewSQLiteRepository(db).Save(ctx, e1))

	replayed := make(chan struct{}, 1)
	c := &fakeClient{
		updateFunc: func(ctx context.Context, snapshot models.Expense) error {
			replayed <- struct{}{}
			return nil
		},
	}

	m := connectivity.NewMonitor(true, testLogger())
	syncer := NewSyncService(c, db, m, testLogger())
	svc := NewExpenseService(c, db, m, syncer, testLogger())

	amount := decimal.RequireFromString("25")
	_, err := svc.Update(ctx, "e1", models.ExpensePatch{Amount: &amount})
	require.NoError(t, err)

	select {
	case <-replayed:
	case <-time.After(time.Second):
		t.Fatal("online update did not trigger a drain")
	}

	require.Eventually(t, func() bool {
		n, err := syncer.PendingCount(ctx)
		return err == nil && n == 0
	}, time.Second, 10*time.Millisecond)
}
