// Package testkit builds engines over miniredis and the in-memory user store
// for tests outside the root package.
package testkit

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/pii"
	"github.com/MrEthical07/goAccount/store/memory"
)

// Mailer records every message instead of sending it.
type Mailer struct {
	mu       sync.Mutex
	links    map[string]string
	otps     map[string]string
	otpSends int
	fail     error
}

func NewMailer() *Mailer {
	return &Mailer{links: map[string]string{}, otps: map[string]string{}}
}

func (m *Mailer) SendVerification(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.links[to] = link
	return nil
}

func (m *Mailer) SendOTP(_ context.Context, to, otp string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.otps[to] = otp
	m.otpSends++
	return nil
}

// SetFail makes every later send return err. A nil err restores delivery.
func (m *Mailer) SetFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Link returns the verification link last mailed to email, or "".
func (m *Mailer) Link(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[email]
}

// OTPSends counts delivered passcode mails.
func (m *Mailer) OTPSends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.otpSends
}

// Token returns the verification token last mailed to email.
func (m *Mailer) Token(t testing.TB, email string) string {
	t.Helper()
	m.mu.Lock()
	link := m.links[email]
	m.mu.Unlock()
	u, err := url.Parse(link)
	if err != nil || link == "" {
		t.Fatalf("no verification link for %s", email)
	}
	return u.Query().Get("token")
}

// OTP returns the passcode last mailed to email.
func (m *Mailer) OTP(t testing.TB, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	otp, ok := m.otps[email]
	if !ok {
		t.Fatalf("no otp mailed to %s", email)
	}
	return otp
}

// Env bundles an engine with the fakes behind it.
type Env struct {
	Engine *goAccount.Engine
	Users  goAccount.UserStore
	Mailer *Mailer
	Redis  *miniredis.Miniredis
}

// Config returns a valid configuration with fixed test keys and a cheap
// bcrypt cost.
func Config() goAccount.Config {
	cfg := goAccount.DefaultConfig()
	cfg.Session.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.PII.Key = []byte("fedcba9876543210fedcba9876543210")
	cfg.PII.IV = []byte("0123456789abcdef")
	cfg.PII.IVMode = pii.IVStatic
	cfg.Password.BcryptCost = 4
	cfg.Metrics.Enabled = true
	return cfg
}

// Options tune [New].
type Options struct {
	Users  goAccount.UserStore
	Mutate func(*goAccount.Config)
}

// New builds an engine over a fresh miniredis. Everything is closed when
// the test ends.
func New(t testing.TB, opts Options) *Env {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := Config()
	if opts.Mutate != nil {
		opts.Mutate(&cfg)
	}

	users := opts.Users
	if users == nil {
		users = memory.New()
	}

	env := &Env{Users: users, Mailer: NewMailer(), Redis: mr}
	engine, err := goAccount.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(users).
		WithMailer(env.Mailer).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	env.Engine = engine
	return env
}

// Alice is the account used across scenario tests.
func Alice() goAccount.RegisterRequest {
	return goAccount.RegisterRequest{
		Name:     "Alice",
		Email:    "alice@x.io",
		Password: "pw1",
		Phone:    "555",
		DOB:      "2000-01-01",
	}
}

// RegisterVerified registers req and consumes its verification link.
func (e *Env) RegisterVerified(t testing.TB, req goAccount.RegisterRequest) {
	t.Helper()
	ctx := context.Background()
	if _, err := e.Engine.Register(ctx, req); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := e.Engine.VerifyEmail(ctx, e.Mailer.Token(t, req.Email)); err != nil {
		t.Fatalf("verify email: %v", err)
	}
}
