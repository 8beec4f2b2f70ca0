package cli

import (
	"context"
	"errors"
	"os"

	"github.com/dmitrijs2005/kopilka/internal/client/client"
	"github.com/dmitrijs2005/kopilka/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts the user for credentials and authenticates against the
// gateway. Login is an online-only operation: when the gateway cannot be
// reached the user is told to retry once connectivity returns.
//
// The password byte slice is securely wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	sess, err := a.auth.Login(ctx, email, string(password))
	if err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			a.logger.Warn(ctx, "gateway unavailable, try again when back online")
		} else {
			a.logger.Error(ctx, "login unsuccessful", "err", err)
		}
		return err
	}

	a.session = sess
	a.logger.Info(ctx, "login successful", "email", sess.Email)
	return nil
}

// Logout wipes the local cache, the pending queue and the persisted session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		a.logger.Error(ctx, "logout failed", "err", err)
		return err
	}
	a.session = nil
	printlnFn("Logged out")
	return nil
}
