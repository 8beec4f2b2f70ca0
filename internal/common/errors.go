// Package common defines shared sentinel errors used across the Kopilka
// client layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound         = errors.New("not found")
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// Service-level errors (generic flow control).
	ErrorInternal = errors.New("internal error")

	// ErrOffline is returned by operations that require connectivity
	// (record creation, Splitwise import) when the client is offline.
	ErrOffline = errors.New("operation requires connectivity")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)
