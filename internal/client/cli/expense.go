package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/kopilka/internal/client/models"
	"github.com/dmitrijs2005/kopilka/internal/common"
	"github.com/shopspring/decimal"
)

func formatExpense(e *models.Expense) string {
	s := fmt.Sprintf("%s  %s  %s %s  %s",
		e.ID, e.Date.Format(models.DateLayout), e.Amount.StringFixed(2), e.Currency, e.Description)
	if e.Category != nil {
		s += fmt.Sprintf(" [%s]", e.Category.Name)
	}
	if !e.Synced {
		s += " (pending)"
	}
	return s
}

// List prints every cached expense, newest first.
func (a *App) List(ctx context.Context) error {
	list, err := a.expenses.List(ctx)
	if err != nil {
		a.logger.Error(ctx, "list failed", "err", err)
		return err
	}
	for i := range list {
		printlnFn(formatExpense(&list[i]))
	}
	return nil
}

// Range prompts for a date range and prints the cached expenses within it.
func (a *App) Range(ctx context.Context) error {
	from, err := a.getDate("Enter start date (YYYY-MM-DD)")
	if err != nil {
		return err
	}
	to, err := a.getDate("Enter end date (YYYY-MM-DD)")
	if err != nil {
		return err
	}

	list, err := a.expenses.ListRange(ctx, from, to)
	if err != nil {
		a.logger.Error(ctx, "range failed", "err", err)
		return err
	}
	for i := range list {
		printlnFn(formatExpense(&list[i]))
	}
	return nil
}

// Show prints the full detail of a single expense.
func (a *App) Show(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter expense id", os.Stdout)
	if err != nil {
		return err
	}

	e, err := a.expenses.Get(ctx, id)
	if err != nil {
		a.logger.Error(ctx, "show failed", "err", err)
		return err
	}

	printlnFn(formatExpense(e))
	if e.PaymentMethod != "" {
		printlnFn("Payment method:", e.PaymentMethod)
	}
	if e.Notes != "" {
		printlnFn("Notes:", e.Notes)
	}
	printlnFn("Origin:", string(e.Origin))
	return nil
}

// Add collects the fields of a new expense and creates it on the gateway.
// Requires connectivity.
func (a *App) Add(ctx context.Context) error {
	if a.session == nil {
		printlnFn("Log in first")
		return nil
	}

	amount, err := a.getAmount("Enter amount")
	if err != nil {
		return err
	}
	date, err := a.getDate("Enter date (YYYY-MM-DD, empty for today)")
	if err != nil {
		return err
	}
	currency, err := getSimpleText(a.reader, "Enter currency (e.g. EUR)", os.Stdout)
	if err != nil {
		return err
	}
	description, err := getSimpleText(a.reader, "Enter description", os.Stdout)
	if err != nil {
		return err
	}

	created, err := a.expenses.Add(ctx, models.Expense{
		UserID:      a.session.UserID,
		Amount:      amount,
		Date:        date,
		Currency:    currency,
		Description: description,
	})
	if err != nil {
		if errors.Is(err, common.ErrOffline) {
			printlnFn("Adding expenses requires connectivity; try again when back online")
			return nil
		}
		a.logger.Error(ctx, "add failed", "err", err)
		return err
	}

	printlnFn("Created:", formatExpense(created))
	return nil
}

// Update prompts for an expense id and a set of optional new values. Empty
// answers keep the current value. The change is visible immediately and
// synchronized in the background.
func (a *App) Update(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter expense id to update", os.Stdout)
	if err != nil {
		return err
	}

	var patch models.ExpensePatch

	if text, ok, err := GetOptionalText(a.reader, "New amount", os.Stdout); err != nil {
		return err
	} else if ok {
		amount, err := decimal.NewFromString(text)
		if err != nil {
			printlnFn("Invalid amount:", text)
			return nil
		}
		patch.Amount = &amount
	}

	if text, ok, err := GetOptionalText(a.reader, "New description", os.Stdout); err != nil {
		return err
	} else if ok {
		patch.Description = &text
	}

	if text, ok, err := GetOptionalText(a.reader, "New date (YYYY-MM-DD)", os.Stdout); err != nil {
		return err
	} else if ok {
		date, err := time.Parse(models.DateLayout, text)
		if err != nil {
			printlnFn("Invalid date:", text)
			return nil
		}
		patch.Date = &date
	}

	if text, ok, err := GetOptionalText(a.reader, "New notes", os.Stdout); err != nil {
		return err
	} else if ok {
		patch.Notes = &text
	}

	merged, err := a.expenses.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			printlnFn("No expense with id", id)
			return nil
		}
		a.logger.Error(ctx, "update failed", "err", err)
		return err
	}

	printlnFn("Updated:", formatExpense(merged))
	return nil
}

// Delete queues an expense for deletion. The record stays listed (pending)
// until the gateway confirms.
func (a *App) Delete(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter expense id to delete", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.expenses.Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			printlnFn("No expense with id", id)
			return nil
		}
		a.logger.Error(ctx, "delete failed", "err", err)
		return err
	}

	printlnFn("Queued for deletion")
	return nil
}

func (a *App) getDate(prompt string) (time.Time, error) {
	text, err := getSimpleText(a.reader, prompt, os.Stdout)
	if err != nil {
		return time.Time{}, err
	}
	if text == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(models.DateLayout, text)
}

func (a *App) getAmount(prompt string) (decimal.Decimal, error) {
	text, err := getSimpleText(a.reader, prompt, os.Stdout)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(text)
}
