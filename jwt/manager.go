package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretBytes is the shortest HMAC secret accepted.
const MinSecretBytes = 32

// ErrInvalidCookie is returned for any cookie value that does not verify.
var ErrInvalidCookie = errors.New("invalid session cookie")

// Config controls a [Manager]. Cookies are signed with HS256.
type Config struct {
	// TTL bounds the signed value. It should match the session lifetime.
	TTL    time.Duration
	Secret []byte
	// KeyID is written as the kid header when set.
	KeyID string
	// PreviousSecrets maps retired kids to their secrets. Cookies signed under
	// them keep verifying until they expire; new cookies always use Secret.
	PreviousSecrets map[string][]byte
}

// Manager signs session ids into cookie values.
type Manager struct {
	config Config
	now    func() time.Time
}

// SessionClaims is the signed cookie payload.
type SessionClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.Secret) < MinSecretBytes {
		return nil, fmt.Errorf("secret must be at least %d bytes", MinSecretBytes)
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	if len(cfg.PreviousSecrets) > 0 && cfg.KeyID == "" {
		return nil, errors.New("PreviousSecrets requires KeyID")
	}
	previous := make(map[string][]byte, len(cfg.PreviousSecrets))
	for kid, secret := range cfg.PreviousSecrets {
		kid = strings.TrimSpace(kid)
		switch {
		case kid == "":
			return nil, errors.New("previous secret with empty kid")
		case kid == cfg.KeyID:
			return nil, fmt.Errorf("kid %q is both current and previous", kid)
		case len(secret) < MinSecretBytes:
			return nil, fmt.Errorf("previous secret %q must be at least %d bytes", kid, MinSecretBytes)
		}
		previous[kid] = append([]byte(nil), secret...)
	}
	cfg.Secret = append([]byte(nil), cfg.Secret...)
	cfg.PreviousSecrets = previous

	return &Manager{config: cfg, now: time.Now}, nil
}

// Sign returns the cookie value for sessionID.
func (j *Manager) Sign(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("empty session id")
	}
	now := j.now()
	claims := SessionClaims{
		SID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}
	return token.SignedString(j.config.Secret)
}

// Parse verifies a cookie value and returns the session id it names. Every
// failure is reported as [ErrInvalidCookie].
func (j *Manager) Parse(value string) (string, error) {
	claims, err := j.parse(value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}
	return claims.SID, nil
}

func (j *Manager) parse(value string) (*SessionClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)

	token, err := parser.ParseWithClaims(value, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		return j.secretFor(kid)
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (j *Manager) secretFor(kid string) ([]byte, error) {
	if kid == j.config.KeyID {
		return j.config.Secret, nil
	}
	if secret, ok := j.config.PreviousSecrets[kid]; ok {
		return secret, nil
	}
	return nil, errors.New("unknown kid")
}
