package models

import (
	"time"

	"github.com/google/uuid"
)

// ActionKind enumerates the queued mutation kinds. Creates are deliberately
// absent: a create needs a server-assigned identifier and always goes
// straight to the remote service.
type ActionKind string

const (
	ActionUpdate ActionKind = "update"
	ActionDelete ActionKind = "delete"
)

// PendingAction is one durable queued mutation awaiting remote confirmation.
// Expense is a full snapshot of the record at mutation time. The queue is
// append-only per user action: two edits to the same record produce two
// entries, replayed in enqueue order.
type PendingAction struct {
	ID         string     `json:"id"`
	Kind       ActionKind `json:"kind"`
	Expense    Expense    `json:"expense"`
	EnqueuedAt int64      `json:"enqueued_at"` // unix milliseconds
}

// NewPendingAction builds an action with a fresh identifier and the current
// enqueue timestamp.
func NewPendingAction(kind ActionKind, snapshot Expense) *PendingAction {
	return &PendingAction{
		ID:         uuid.NewString(),
		Kind:       kind,
		Expense:    snapshot,
		EnqueuedAt: time.Now().UnixMilli(),
	}
}
