// Package services contains the application services of the Kopilka client:
// the expense service (reads, optimistic offline mutations and the pending
// queue), the sync service (draining the queue against the remote gateway),
// and the auth service (session lifecycle and local reset).
package services
