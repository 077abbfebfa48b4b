package goAccount

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/pii"
)

// Config is the complete engine configuration. Obtain defaults from
// [DefaultConfig], adjust, and pass to [Builder.WithConfig].
type Config struct {
	Environment  Environment
	Session      SessionConfig
	OTP          OTPConfig
	Verification VerificationConfig
	Password     PasswordConfig
	PII          PIIConfig
	CSRF         CSRFConfig
	Metrics      MetricsConfig
}

// Environment selects production or development behaviour for cookies and
// error detail.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls server-side sessions and the cookie naming them.
type SessionConfig struct {
	RedisPrefix string
	// Lifetime is absolute: a session expires Lifetime after creation.
	Lifetime   time.Duration
	CookieName string
	// Secret signs session cookies. At least 32 bytes.
	Secret []byte
	// KeyID labels cookies signed with Secret. Required when PreviousSecrets
	// is set.
	KeyID string
	// PreviousSecrets maps retired key ids to their secrets so cookies issued
	// before a rotation stay valid until they expire.
	PreviousSecrets map[string][]byte
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig controls the emailed second factor.
type OTPConfig struct {
	Digits int
	TTL    time.Duration
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig controls email verification links.
type VerificationConfig struct {
	TokenBytes int
	// FrontendURL is the origin the verification link points at; the link is
	// FrontendURL + "/verify-email?token=<token>".
	FrontendURL string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the hashing algorithm for new hashes. Existing hashes
// in either format keep verifying.
type PasswordConfig struct {
	Algorithm  string // "bcrypt" (default) or "argon2id"
	BcryptCost int
	Argon2     password.Argon2Config
}

/*
====================================
PII CONFIG
====================================
*/

// PIIConfig holds the field-encryption key material.
type PIIConfig struct {
	Key    []byte
	IV     []byte
	IVMode pii.IVMode
}

/*
====================================
CSRF CONFIG
====================================
*/

// CSRFConfig controls synchronizer-token enforcement.
type CSRFConfig struct {
	Enforce    bool
	Header     string
	TokenBytes int
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a development configuration. Key material is left
// empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Environment: EnvDevelopment,
		Session: SessionConfig{
			RedisPrefix: "acs",
			Lifetime:    24 * time.Hour,
			CookieName:  "account_session",
		},
		OTP: OTPConfig{
			Digits: 6,
			TTL:    10 * time.Minute,
		},
		Verification: VerificationConfig{
			TokenBytes:  32,
			FrontendURL: "http://localhost:3000",
		},
		Password: PasswordConfig{
			Algorithm:  "bcrypt",
			BcryptCost: password.DefaultBcryptCost,
			Argon2:     password.DefaultArgon2Config(),
		},
		PII: PIIConfig{
			IVMode: pii.IVStatic,
		},
		CSRF: CSRFConfig{
			Enforce:    true,
			Header:     "X-CSRF-Token",
			TokenBytes: 32,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.Secret = cloneBytes(cfg.Session.Secret)
	if cfg.Session.PreviousSecrets != nil {
		out.Session.PreviousSecrets = make(map[string][]byte, len(cfg.Session.PreviousSecrets))
		for kid, secret := range cfg.Session.PreviousSecrets {
			out.Session.PreviousSecrets[kid] = cloneBytes(secret)
		}
	}
	out.PII.Key = cloneBytes(cfg.PII.Key)
	out.PII.IV = cloneBytes(cfg.PII.IV)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Production reports whether the engine runs with production cookie and
// error-detail policy.
func (c *Config) Production() bool {
	return c.Environment == EnvProduction
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return errors.New("Environment must be 'development' or 'production'")
	}

	// Session
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.Lifetime <= 0 {
		return errors.New("Session Lifetime must be > 0")
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		return errors.New("Session CookieName must not be empty")
	}
	if len(c.Session.Secret) < 32 {
		return errors.New("Session Secret must be at least 32 bytes")
	}
	if len(c.Session.PreviousSecrets) > 0 && strings.TrimSpace(c.Session.KeyID) == "" {
		return errors.New("Session KeyID is required when PreviousSecrets is set")
	}
	for kid, secret := range c.Session.PreviousSecrets {
		if strings.TrimSpace(kid) == "" || kid == c.Session.KeyID {
			return fmt.Errorf("Session PreviousSecrets has invalid key id %q", kid)
		}
		if len(secret) < 32 {
			return fmt.Errorf("Session PreviousSecrets[%q] must be at least 32 bytes", kid)
		}
	}

	// OTP
	if c.OTP.Digits < 6 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be between 6 and 10")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}

	// Verification
	if c.Verification.TokenBytes < 16 {
		return errors.New("Verification TokenBytes must be >= 16")
	}
	u, err := url.Parse(c.Verification.FrontendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("Verification FrontendURL must be an absolute URL")
	}

	// Password
	switch c.Password.Algorithm {
	case "bcrypt", "argon2id":
	default:
		return errors.New("Password Algorithm must be 'bcrypt' or 'argon2id'")
	}

	// PII
	if len(c.PII.Key) != pii.KeySize {
		return errors.New("PII Key must be 32 bytes")
	}
	switch c.PII.IVMode {
	case pii.IVStatic:
		if len(c.PII.IV) != pii.IVSize {
			return errors.New("PII IV must be 16 bytes in static mode")
		}
	case pii.IVRandom:
	default:
		return errors.New("PII IVMode is invalid")
	}

	// CSRF
	if c.CSRF.Enforce && strings.TrimSpace(c.CSRF.Header) == "" {
		return errors.New("CSRF Header must not be empty when Enforce is true")
	}
	if c.CSRF.TokenBytes < 16 {
		return errors.New("CSRF TokenBytes must be >= 16")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
