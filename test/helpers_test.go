//go:build integration
// +build integration

package test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/store/memory"
	"github.com/MrEthical07/goAccount/store/sqlite"
)

type storeFactory struct {
	name string
	open func(t *testing.T) goAccount.UserStore
}

// userStores lists every store that runs without external services.
func userStores() []storeFactory {
	return []storeFactory{
		{name: "memory", open: func(*testing.T) goAccount.UserStore { return memory.New() }},
		{name: "sqlite", open: openSQLite},
	}
}

func openSQLite(t *testing.T) goAccount.UserStore {
	t.Helper()
	st, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "accounts.db"))
	if err != nil {
		t.Fatalf("sqlite open failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func makeRecord(id, email, tokenHash string) goAccount.UserRecord {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return goAccount.UserRecord{
		ID:                    id,
		Email:                 email,
		PasswordHash:          "$2a$04$notarealhashnotarealhashnotarealhashnotarealhas",
		Name:                  "enc-name",
		Phone:                 "enc-phone",
		DOB:                   "enc-dob",
		VerificationTokenHash: tokenHash,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func strPtr(s string) *string {
	return &s
}
