// Package cli provides the interactive Kopilka command-line client.
//
// It wires configuration, local storage, the gateway client and an
// interactive REPL that supports online/offline operation. Typical flow:
// restore or prompt for credentials, start a background connectivity watcher
// and the reconnect drainer, then execute user commands.
//
// Key features:
//   - Login / Logout with a persisted session
//   - List / Range / Show expenses from the local cache
//   - Update / Delete while offline (queued and replayed on reconnect)
//   - Add / Import (online-only)
//   - Sync / Status / Refresh
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
