//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"testing"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
)

func TestStoreConsistencyDuplicateEmail(t *testing.T) {
	for _, f := range userStores() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			st := f.open(t)

			if err := st.Create(ctx, makeRecord("u1", "a@x.io", "tok-1")); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			err := st.Create(ctx, makeRecord("u2", "a@x.io", "tok-2"))
			if !errors.Is(err, goAccount.ErrDuplicateIdentity) {
				t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
			}
		})
	}
}

func TestStoreConsistencyMissingRecords(t *testing.T) {
	for _, f := range userStores() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			st := f.open(t)

			if _, err := st.FindByID(ctx, "nope"); !errors.Is(err, goAccount.ErrRecordNotFound) {
				t.Fatalf("FindByID: expected ErrRecordNotFound, got %v", err)
			}
			if _, err := st.FindByEmail(ctx, "nope@x.io"); !errors.Is(err, goAccount.ErrRecordNotFound) {
				t.Fatalf("FindByEmail: expected ErrRecordNotFound, got %v", err)
			}
			if err := st.SetOTP(ctx, "nope", "h", time.Now()); !errors.Is(err, goAccount.ErrRecordNotFound) {
				t.Fatalf("SetOTP: expected ErrRecordNotFound, got %v", err)
			}
			if _, err := st.UpdateProfile(ctx, "nope", goAccount.ProfilePatch{Name: strPtr("x")}, time.Now()); !errors.Is(err, goAccount.ErrRecordNotFound) {
				t.Fatalf("UpdateProfile: expected ErrRecordNotFound, got %v", err)
			}
		})
	}
}

func TestStoreConsistencyVerificationTokenSingleUse(t *testing.T) {
	for _, f := range userStores() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			st := f.open(t)
			now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

			if err := st.Create(ctx, makeRecord("u1", "a@x.io", "tok-1")); err != nil {
				t.Fatalf("Create failed: %v", err)
			}

			rec, err := st.ConsumeVerificationToken(ctx, "tok-1", now)
			if err != nil {
				t.Fatalf("first consume failed: %v", err)
			}
			if !rec.EmailVerified || rec.VerificationTokenHash != "" {
				t.Fatalf("unexpected record after consume: %+v", rec)
			}
			if !rec.UpdatedAt.Equal(now) {
				t.Fatalf("updated_at = %v, want %v", rec.UpdatedAt, now)
			}
			if _, err := st.ConsumeVerificationToken(ctx, "tok-1", now); !errors.Is(err, goAccount.ErrRecordNotFound) {
				t.Fatalf("second consume: expected ErrRecordNotFound, got %v", err)
			}
		})
	}
}

func TestStoreConsistencyClearOTPComparesHash(t *testing.T) {
	for _, f := range userStores() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			st := f.open(t)
			expires := time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC)

			if err := st.Create(ctx, makeRecord("u1", "a@x.io", "")); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if err := st.SetOTP(ctx, "u1", "first", expires); err != nil {
				t.Fatalf("SetOTP failed: %v", err)
			}
			if err := st.SetOTP(ctx, "u1", "second", expires); err != nil {
				t.Fatalf("SetOTP failed: %v", err)
			}

			rec, err := st.FindByID(ctx, "u1")
			if err != nil {
				t.Fatalf("FindByID failed: %v", err)
			}
			if rec.OTPHash != "second" || !rec.OTPExpiresAt.Equal(expires) {
				t.Fatalf("passcode not replaced: %+v", rec)
			}

			if ok, err := st.ClearOTP(ctx, "u1", "first"); err != nil || ok {
				t.Fatalf("stale hash cleared the passcode: ok=%v err=%v", ok, err)
			}
			if ok, err := st.ClearOTP(ctx, "u1", "second"); err != nil || !ok {
				t.Fatalf("expected clear, got ok=%v err=%v", ok, err)
			}
			if ok, err := st.ClearOTP(ctx, "u1", "second"); err != nil || ok {
				t.Fatalf("passcode cleared twice: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestStoreConsistencyPartialProfileUpdate(t *testing.T) {
	for _, f := range userStores() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			st := f.open(t)

			if err := st.Create(ctx, makeRecord("u1", "a@x.io", "")); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			rec, err := st.UpdateProfile(ctx, "u1", goAccount.ProfilePatch{Phone: strPtr("enc-phone-2")}, time.Now())
			if err != nil {
				t.Fatalf("UpdateProfile failed: %v", err)
			}
			if rec.Phone != "enc-phone-2" || rec.Name != "enc-name" || rec.DOB != "enc-dob" {
				t.Fatalf("unexpected record after update: %+v", rec)
			}
		})
	}
}

func TestStoreConsistencyDeleteIsIdempotent(t *testing.T) {
	for _, f := range userStores() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			st := f.open(t)

			if err := st.Create(ctx, makeRecord("u1", "a@x.io", "tok-1")); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if err := st.Delete(ctx, "u1"); err != nil {
				t.Fatalf("first Delete failed: %v", err)
			}
			if err := st.Delete(ctx, "u1"); err != nil {
				t.Fatalf("second Delete failed: %v", err)
			}
			if _, err := st.ConsumeVerificationToken(ctx, "tok-1", time.Now()); !errors.Is(err, goAccount.ErrRecordNotFound) {
				t.Fatalf("token survived delete: %v", err)
			}
			if err := st.Create(ctx, makeRecord("u2", "a@x.io", "")); err != nil {
				t.Fatalf("email not released by delete: %v", err)
			}
		})
	}
}
