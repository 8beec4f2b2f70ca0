package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/kopilka/internal/common"
)

// refreshWindow is the range hydrated by default: the last quarter of data.
const refreshWindow = 92 * 24 * time.Hour

// Sync runs a manual drain of the pending-action queue.
func (a *App) Sync(ctx context.Context) error {
	if err := a.syncer.Sync(ctx); err != nil {
		a.logger.Error(ctx, "sync failed", "err", err)
		return err
	}

	n, err := a.syncer.PendingCount(ctx)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Sync finished, %d action(s) still pending", n))
	return nil
}

// Status prints connectivity and queue state.
func (a *App) Status(ctx context.Context) error {
	mode := "offline"
	if a.monitor.Online() {
		mode = "online"
	}

	n, err := a.syncer.PendingCount(ctx)
	if err != nil {
		return err
	}

	printlnFn("Mode:", mode)
	printlnFn("Pending actions:", n)
	if f := a.syncer.ConsecutiveFailures(); f > 0 {
		printlnFn("Consecutive sync failures:", f)
	}
	return nil
}

// Refresh re-fetches recent expenses from the gateway into the local cache.
func (a *App) Refresh(ctx context.Context) error {
	if a.session == nil {
		printlnFn("Log in first")
		return nil
	}

	to := time.Now().UTC()
	from := to.Add(-refreshWindow)

	n, err := a.expenses.Refresh(ctx, a.session.UserID, from, to)
	if err != nil {
		a.logger.Error(ctx, "refresh failed", "err", err)
		return err
	}

	printlnFn(fmt.Sprintf("Fetched %d expense(s)", n))
	return nil
}

// Import reads a Splitwise export file and forwards it to the gateway's
// import procedure. Requires connectivity.
func (a *App) Import(ctx context.Context) error {
	path, err := getSimpleText(a.reader, "Enter path to Splitwise export file", os.Stdout)
	if err != nil {
		return err
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		a.logger.Error(ctx, "cannot read export file", "path", path, "err", err)
		return err
	}

	n, err := a.expenses.ImportSplitwise(ctx, payload)
	if err != nil {
		if errors.Is(err, common.ErrOffline) {
			printlnFn("Import requires connectivity; try again when back online")
			return nil
		}
		a.logger.Error(ctx, "import failed", "err", err)
		return err
	}

	printlnFn(fmt.Sprintf("Imported %d expense(s)", n))
	return nil
}
