package csrf

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/MrEthical07/goAccount/internal"
)

// DefaultHeader is the request header that carries the token.
const DefaultHeader = "X-CSRF-Token"

const defaultTokenBytes = 32

// ErrValidationFailed is returned when a state-changing request carries no
// token or a token that does not match the session's.
var ErrValidationFailed = errors.New("csrf validation failed")

// TokenStore binds tokens to sessions. CSRFToken returns "" with a nil error
// when the session has no token or does not exist.
type TokenStore interface {
	CSRFToken(ctx context.Context, sessionID string) (string, error)
	BindCSRFToken(ctx context.Context, sessionID, token string) (string, error)
}

// Config controls a [Synchronizer].
type Config struct {
	// Enforce turns validation on. When false every request passes.
	Enforce bool
	// Header names the request header carrying the token.
	Header string
	// TokenBytes is the random length of generated tokens.
	TokenBytes int
}

// Synchronizer issues and checks per-session tokens.
type Synchronizer struct {
	store      TokenStore
	enforce    bool
	header     string
	tokenBytes int
	newToken   func(n int) (string, error)
}

// New returns a Synchronizer over store.
func New(store TokenStore, cfg Config) *Synchronizer {
	if cfg.Header == "" {
		cfg.Header = DefaultHeader
	}
	if cfg.TokenBytes <= 0 {
		cfg.TokenBytes = defaultTokenBytes
	}
	return &Synchronizer{
		store:      store,
		enforce:    cfg.Enforce,
		header:     http.CanonicalHeaderKey(cfg.Header),
		tokenBytes: cfg.TokenBytes,
		newToken:   internal.NewURLToken,
	}
}

func (s *Synchronizer) Header() string {
	return s.header
}

func (s *Synchronizer) Enforcing() bool {
	return s.enforce
}

// Ensure returns the session's token, generating and binding one if absent.
func (s *Synchronizer) Ensure(ctx context.Context, sessionID string) (string, error) {
	current, err := s.store.CSRFToken(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if current != "" {
		return current, nil
	}

	token, err := s.newToken(s.tokenBytes)
	if err != nil {
		return "", err
	}
	return s.store.BindCSRFToken(ctx, sessionID, token)
}

// Validate checks presented against the session's token. It always succeeds
// when enforcement is off.
func (s *Synchronizer) Validate(ctx context.Context, sessionID, presented string) error {
	if !s.enforce {
		return nil
	}
	if presented == "" || sessionID == "" {
		return ErrValidationFailed
	}

	expected, err := s.store.CSRFToken(ctx, sessionID)
	if err != nil {
		return err
	}
	if expected == "" {
		return ErrValidationFailed
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) != 1 {
		return ErrValidationFailed
	}
	return nil
}

// ValidateRequest applies [Synchronizer.Validate] to r, skipping safe methods.
func (s *Synchronizer) ValidateRequest(r *http.Request, sessionID string) error {
	if Safe(r.Method) {
		return nil
	}
	return s.Validate(r.Context(), sessionID, r.Header.Get(s.header))
}

// Safe reports whether method is exempt from token checks.
func Safe(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
