package csrf

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type memoryTokens struct {
	mu     sync.Mutex
	tokens map[string]string
	err    error
}

func newMemoryTokens(sessions ...string) *memoryTokens {
	m := &memoryTokens{tokens: map[string]string{}}
	for _, s := range sessions {
		m.tokens[s] = ""
	}
	return m
}

func (m *memoryTokens) CSRFToken(_ context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.tokens[sessionID], nil
}

func (m *memoryTokens) BindCSRFToken(_ context.Context, sessionID, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens[sessionID] == "" {
		m.tokens[sessionID] = token
	}
	return m.tokens[sessionID], nil
}

func TestEnsureIsStablePerSession(t *testing.T) {
	store := newMemoryTokens("s1", "s2")
	s := New(store, Config{Enforce: true})
	ctx := context.Background()

	a, err := s.Ensure(ctx, "s1")
	if err != nil || a == "" {
		t.Fatalf("Ensure = %q %v", a, err)
	}
	b, _ := s.Ensure(ctx, "s1")
	if a != b {
		t.Fatalf("token changed within a session: %q vs %q", a, b)
	}
	c, _ := s.Ensure(ctx, "s2")
	if c == a {
		t.Fatal("distinct sessions must get distinct tokens")
	}
}

func TestValidate(t *testing.T) {
	store := newMemoryTokens("s1", "s2")
	s := New(store, Config{Enforce: true})
	ctx := context.Background()

	tok, _ := s.Ensure(ctx, "s1")
	other, _ := s.Ensure(ctx, "s2")

	if err := s.Validate(ctx, "s1", tok); err != nil {
		t.Fatalf("matching token rejected: %v", err)
	}
	for name, presented := range map[string]string{"missing": "", "wrong": "nope", "other session": other} {
		if err := s.Validate(ctx, "s1", presented); !errors.Is(err, ErrValidationFailed) {
			t.Fatalf("%s: expected ErrValidationFailed, got %v", name, err)
		}
	}
}

func TestValidateWithoutBoundToken(t *testing.T) {
	s := New(newMemoryTokens("s1"), Config{Enforce: true})
	if err := s.Validate(context.Background(), "s1", "anything"); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if err := s.Validate(context.Background(), "", "anything"); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed without session, got %v", err)
	}
}

func TestValidateDisabled(t *testing.T) {
	s := New(newMemoryTokens("s1"), Config{Enforce: false})
	if err := s.Validate(context.Background(), "s1", ""); err != nil {
		t.Fatalf("disabled synchronizer rejected request: %v", err)
	}
	if s.Enforcing() {
		t.Fatal("expected Enforcing() false")
	}
}

func TestValidatePropagatesStoreErrors(t *testing.T) {
	store := newMemoryTokens("s1")
	store.err = errors.New("backend down")
	s := New(store, Config{Enforce: true})
	err := s.Validate(context.Background(), "s1", "tok")
	if err == nil || errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestValidateRequestSkipsSafeMethods(t *testing.T) {
	store := newMemoryTokens("s1")
	s := New(store, Config{Enforce: true, Header: "x-csrf-token"})
	tok, _ := s.Ensure(context.Background(), "s1")

	get := httptest.NewRequest(http.MethodGet, "/users/profile", nil)
	if err := s.ValidateRequest(get, "s1"); err != nil {
		t.Fatalf("GET rejected: %v", err)
	}

	put := httptest.NewRequest(http.MethodPut, "/users/profile", nil)
	if err := s.ValidateRequest(put, "s1"); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("PUT without header: expected ErrValidationFailed, got %v", err)
	}

	put.Header.Set("X-CSRF-Token", tok)
	if err := s.ValidateRequest(put, "s1"); err != nil {
		t.Fatalf("PUT with header rejected: %v", err)
	}
	if s.Header() != "X-Csrf-Token" {
		t.Fatalf("unexpected canonical header %q", s.Header())
	}
}
