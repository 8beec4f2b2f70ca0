package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/kopilka/internal/client/migrations"
	"github.com/dmitrijs2005/kopilka/internal/common"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies the embedded goose migrations. Safe to call on every
// start: goose skips versions that are already applied.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating on first use) the local client database and
// brings its schema up to date. Any failure surfaces as
// common.ErrStorageUnavailable: offline functionality is gone, but
// online-only operation may continue.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}

	return db, nil
}
