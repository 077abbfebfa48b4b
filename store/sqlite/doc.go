// Package sqlite is a goAccount.UserStore on an embedded SQLite database
// (modernc.org/sqlite, no cgo). It suits single-node deployments and local
// development. Timestamps are stored as unix milliseconds.
package sqlite
