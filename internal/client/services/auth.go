package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/kopilka/internal/client/client"
	"github.com/dmitrijs2005/kopilka/internal/client/repositories/actions"
	"github.com/dmitrijs2005/kopilka/internal/client/repositories/expenses"
	"github.com/dmitrijs2005/kopilka/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/kopilka/internal/common"
	"github.com/dmitrijs2005/kopilka/internal/dbx"
)

// Session identifies the signed-in user of this device.
type Session struct {
	UserID string
	Email  string
}

// AuthService manages the gateway session and the local reset on logout.
type AuthService interface {
	// Login authenticates against the gateway and persists the session so
	// a restart stays signed in.
	Login(ctx context.Context, email, password string) (*Session, error)

	// Restore loads a persisted session into the gateway client. Returns
	// nil, nil when no session is stored.
	Restore(ctx context.Context) (*Session, error)

	// Logout wipes the session and both sync collections in one
	// transaction. Pending actions are discarded deliberately: they belong
	// to the account being signed out.
	Logout(ctx context.Context) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(c client.Client, db *sql.DB) AuthService {
	return &authService{client: c, db: db}
}

func (a *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	userID, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	access, refresh := a.client.Session()

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		for name, value := range map[string]string{
			"user_id":       userID,
			"email":         email,
			"access_token":  access,
			"refresh_token": refresh,
		} {
			if err := repo.Set(ctx, name, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}

	return &Session{UserID: userID, Email: email}, nil
}

func (a *authService) Restore(ctx context.Context) (*Session, error) {
	repo := metadata.NewSQLiteRepository(a.db)

	userID, err := repo.Get(ctx, "user_id")
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}

	email, err := repo.Get(ctx, "email")
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	access, _ := repo.Get(ctx, "access_token")
	refresh, _ := repo.Get(ctx, "refresh_token")
	a.client.RestoreSession(access, refresh)

	return &Session{UserID: userID, Email: email}, nil
}

func (a *authService) Logout(ctx context.Context) error {
	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := expenses.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		if err := actions.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		return metadata.NewSQLiteRepository(tx).Clear(ctx)
	})
	if err != nil {
		return fmt.Errorf("logout error: %w", err)
	}

	a.client.RestoreSession("", "")
	return nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
