// Package client holds the remote gateway client and the local database
// bootstrap for the Kopilka CLI. The gateway is a hosted Postgres RPC
// endpoint speaking JSON over HTTPS; the local database is SQLite, migrated
// with goose on startup.
package client
