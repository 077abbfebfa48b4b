// Package memory is an in-process goAccount.UserStore for tests, demos and
// single-instance development servers. Nothing survives a restart.
package memory
