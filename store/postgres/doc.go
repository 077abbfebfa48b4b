// Package postgres is a goAccount.UserStore on PostgreSQL through the pgx
// database/sql driver. The schema ships embedded and is applied with goose.
package postgres
