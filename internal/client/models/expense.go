// Package models defines the locally cached expense records and the pending
// actions that capture mutations made while offline.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used for storage and wire payloads.
const DateLayout = "2006-01-02"

// Origin tags how an expense entered the system.
type Origin string

const (
	OriginManual    Origin = "manual"
	OriginSplitwise Origin = "splitwise"
)

// CategorySnapshot is a denormalized copy of the category an expense points
// to, kept locally so categorized expenses render while offline.
type CategorySnapshot struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// Expense is a financial transaction mirrored from the remote service.
//
// Synced is false whenever the row reflects a local mutation that has not
// been confirmed remotely yet. The identifier is assigned by the server and
// is unique within the local store.
type Expense struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	Amount        decimal.Decimal   `json:"amount"`
	Description   string            `json:"description"`
	Date          time.Time         `json:"date"`
	Currency      string            `json:"currency"`
	CategoryID    *string           `json:"category_id,omitempty"`
	Category      *CategorySnapshot `json:"category,omitempty"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	Excluded      bool              `json:"excluded"`
	Origin        Origin            `json:"origin"`
	Synced        bool              `json:"synced"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// ExpensePatch carries the fields of a partial edit. Nil fields are left
// unchanged by Apply. Setting CategoryID to an empty string clears the
// category reference together with its snapshot.
type ExpensePatch struct {
	Amount        *decimal.Decimal
	Description   *string
	Date          *time.Time
	Currency      *string
	CategoryID    *string
	Category      *CategorySnapshot
	PaymentMethod *string
	Notes         *string
	Excluded      *bool
}

// Apply merges the patch into e. Identifiers, sync state and timestamps are
// not touched; the caller stamps those.
func (e *Expense) Apply(p ExpensePatch) {
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Currency != nil {
		e.Currency = *p.Currency
	}
	if p.CategoryID != nil {
		if *p.CategoryID == "" {
			e.CategoryID = nil
			e.Category = nil
		} else {
			id := *p.CategoryID
			e.CategoryID = &id
		}
	}
	if p.Category != nil {
		snapshot := *p.Category
		e.Category = &snapshot
	}
	if p.PaymentMethod != nil {
		e.PaymentMethod = *p.PaymentMethod
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
	if p.Excluded != nil {
		e.Excluded = *p.Excluded
	}
}
