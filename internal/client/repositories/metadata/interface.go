package metadata

import "context"

// Repository is a small key-value store for session metadata (user id,
// tokens). It lives next to the sync collections so logout can wipe
// everything in one transaction.
type Repository interface {
	// Get returns the value for a key, or common.ErrorNotFound.
	Get(ctx context.Context, name string) (string, error)

	// Set inserts or replaces a value.
	Set(ctx context.Context, name, value string) error

	// Clear erases all metadata.
	Clear(ctx context.Context) error
}
