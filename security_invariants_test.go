package goAccount_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/internal"
	"github.com/MrEthical07/goAccount/internal/testkit"
	"github.com/MrEthical07/goAccount/store/memory"
)

func TestSecurityInvariantSecretsHashedAtRest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.engine.Register(ctx, aliceRequest()); err != nil {
		t.Fatalf("register: %v", err)
	}
	token := h.mailer.Token(t, "alice@x.io")

	rec, err := h.users.FindByEmail(ctx, "alice@x.io")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.VerificationTokenHash == token || rec.VerificationTokenHash != internal.HashSecret(token) {
		t.Fatal("verification token is not stored as its digest")
	}
	if strings.Contains(rec.PasswordHash, "pw1") {
		t.Fatal("password stored in clear")
	}

	if _, err := h.engine.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("verify email: %v", err)
	}
	if _, err := h.engine.VerifyPassword(ctx, "alice@x.io", "pw1"); err != nil {
		t.Fatalf("verify password: %v", err)
	}
	otp := h.mailer.OTP(t, "alice@x.io")

	rec, err = h.users.FindByEmail(ctx, "alice@x.io")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.OTPHash == otp || rec.OTPHash != internal.HashSecret(otp) {
		t.Fatal("passcode is not stored as its digest")
	}
}

func TestSecurityInvariantPIIEncryptedAtRest(t *testing.T) {
	h := newHarness(t)
	h.registerVerified(t)

	rec, err := h.users.FindByEmail(context.Background(), "alice@x.io")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	for field, v := range map[string]string{"name": rec.Name, "phone": rec.Phone, "dob": rec.DOB} {
		if v == "" {
			t.Fatalf("%s missing", field)
		}
		for _, clear := range []string{"Alice", "555", "2000-01-01"} {
			if strings.Contains(v, clear) {
				t.Fatalf("%s stored in clear: %q", field, v)
			}
		}
	}
}

func TestSecurityInvariantSessionsCarryNoPII(t *testing.T) {
	h := newHarness(t)
	h.registerVerified(t)
	ctx := context.Background()

	sid := h.newSession(t)
	if _, err := h.engine.SubmitPassword(ctx, sid, "alice@x.io", "pw1"); err != nil {
		t.Fatalf("submit password: %v", err)
	}
	if _, err := h.engine.SubmitOTP(ctx, sid, h.mailer.OTP(t, "alice@x.io")); err != nil {
		t.Fatalf("submit otp: %v", err)
	}

	keys := h.redis.Keys()
	if len(keys) == 0 {
		t.Fatal("no session keys in redis")
	}
	for _, key := range keys {
		raw, err := h.redis.Get(key)
		if err != nil {
			t.Fatalf("get %s: %v", key, err)
		}
		for _, secret := range []string{"alice@x.io", "Alice", "2000-01-01"} {
			if strings.Contains(raw, secret) {
				t.Fatalf("session %s contains %q", key, secret)
			}
		}
	}
}

func TestSecurityInvariantFaultLogsCarryNoSecrets(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	var logs bytes.Buffer
	mailer := testkit.NewMailer()
	engine, err := goAccount.New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithUserStore(memory.New()).
		WithMailer(mailer).
		WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	ctx := context.Background()

	if _, err := engine.Register(ctx, aliceRequest()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := engine.VerifyEmail(ctx, mailer.Token(t, "alice@x.io")); err != nil {
		t.Fatalf("verify email: %v", err)
	}

	mailer.SetFail(errors.New("smtp: connection refused"))
	if _, err := engine.VerifyPassword(ctx, "alice@x.io", "pw1"); !errors.Is(err, goAccount.ErrMailDelivery) {
		t.Fatalf("expected ErrMailDelivery, got %v", err)
	}

	out := logs.String()
	if !strings.Contains(out, "verify_password.mail") {
		t.Fatalf("fault not logged: %s", out)
	}
	for _, secret := range []string{"pw1", "Alice", "alice@x.io", "2000-01-01"} {
		if strings.Contains(out, secret) {
			t.Fatalf("log contains %q: %s", secret, out)
		}
	}
}

func TestSecurityInvariantSequenceNeverSkipsPasscode(t *testing.T) {
	h := newHarness(t)
	h.registerVerified(t)
	ctx := context.Background()

	sid := h.newSession(t)
	if _, err := h.engine.SubmitPassword(ctx, sid, "alice@x.io", "pw1"); err != nil {
		t.Fatalf("submit password: %v", err)
	}
	if _, ok, err := h.engine.Resolve(ctx, sid); err != nil || ok {
		t.Fatalf("pending session resolved: ok=%v err=%v", ok, err)
	}

	other := h.newSession(t)
	if _, err := h.engine.SubmitOTP(ctx, other, h.mailer.OTP(t, "alice@x.io")); !errors.Is(err, goAccount.ErrLoginSequence) {
		t.Fatalf("passcode accepted on a session that never passed step one: %v", err)
	}
}
