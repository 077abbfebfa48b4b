// Package appconfig loads process configuration for cmd/accountd from
// environment variables prefixed with GOACCOUNT_.
package appconfig

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/mail"
	"github.com/MrEthical07/goAccount/pii"
)

// Prefix is prepended to every variable name.
const Prefix = "GOACCOUNT_"

// HexBytes decodes a hex-encoded variable.
type HexBytes []byte

func (h *HexBytes) UnmarshalText(text []byte) error {
	out, err := hex.DecodeString(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	*h = out
	return nil
}

// Config is everything the server binary reads at startup.
type Config struct {
	Environment string `env:"ENV"          envDefault:"development"`
	HTTPAddr    string `env:"HTTP_ADDR"    envDefault:":5000"`
	BasePath    string `env:"BASE_PATH"    envDefault:"/api"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// DBDriver is one of postgres, sqlite or memory.
	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN"    envDefault:"file:goaccount.db"`

	SessionSecret   string        `env:"SESSION_SECRET,required"`
	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"24h"`
	CookieName      string        `env:"COOKIE_NAME"      envDefault:"account_session"`

	// SessionKeyID labels cookies signed with SESSION_SECRET.
	SessionKeyID string `env:"SESSION_KEY_ID"`
	// SessionPreviousSecrets holds retired secrets as kid:secret,kid:secret.
	SessionPreviousSecrets map[string]string `env:"SESSION_PREVIOUS_SECRETS"`

	EncryptionKey HexBytes `env:"ENCRYPTION_KEY,required"`
	EncryptionIV  HexBytes `env:"ENCRYPTION_IV"`
	RandomIV      bool     `env:"ENCRYPTION_RANDOM_IV" envDefault:"false"`

	PasswordAlgorithm string `env:"PASSWORD_ALGORITHM" envDefault:"bcrypt"`
	BcryptCost        int    `env:"BCRYPT_COST"        envDefault:"10"`

	OTPTTL      time.Duration `env:"OTP_TTL"      envDefault:"10m"`
	CSRFEnforce bool          `env:"CSRF_ENFORCE" envDefault:"true"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// OTLPEndpoint enables tracing when set.
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`

	SMTP SMTP `envPrefix:"SMTP_"`
}

// SMTP configures outbound mail. An empty Host selects the logging mailer,
// which is only allowed in development.
type SMTP struct {
	Host     string        `env:"HOST"`
	Port     int           `env:"PORT"    envDefault:"587"`
	Username string        `env:"USER"`
	Password string        `env:"PASS"`
	From     string        `env:"FROM"    envDefault:"no-reply@localhost"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("%sDB_DRIVER must be postgres, sqlite or memory", Prefix)
	}
	if c.SMTP.Host == "" && c.Production() {
		return errors.New(Prefix + "SMTP_HOST is required in production")
	}
	if c.DBDriver == "memory" && c.Production() {
		return errors.New("the memory user store is not allowed in production")
	}
	return nil
}

// Production reports whether ENV is production.
func (c Config) Production() bool {
	return goAccount.Environment(c.Environment) == goAccount.EnvProduction
}

// EngineConfig maps c onto the engine configuration. The result still needs
// [goAccount.Config.Validate], which Builder.Build runs.
func (c Config) EngineConfig() goAccount.Config {
	cfg := goAccount.DefaultConfig()
	cfg.Environment = goAccount.Environment(c.Environment)

	cfg.Session.Lifetime = c.SessionLifetime
	cfg.Session.CookieName = c.CookieName
	cfg.Session.Secret = []byte(c.SessionSecret)
	cfg.Session.KeyID = c.SessionKeyID
	if len(c.SessionPreviousSecrets) > 0 {
		cfg.Session.PreviousSecrets = make(map[string][]byte, len(c.SessionPreviousSecrets))
		for kid, secret := range c.SessionPreviousSecrets {
			cfg.Session.PreviousSecrets[kid] = []byte(secret)
		}
	}

	cfg.OTP.TTL = c.OTPTTL
	cfg.Verification.FrontendURL = c.FrontendURL

	cfg.Password.Algorithm = c.PasswordAlgorithm
	cfg.Password.BcryptCost = c.BcryptCost

	cfg.PII.Key = []byte(c.EncryptionKey)
	cfg.PII.IV = []byte(c.EncryptionIV)
	cfg.PII.IVMode = pii.IVStatic
	if c.RandomIV {
		cfg.PII.IVMode = pii.IVRandom
	}

	cfg.CSRF.Enforce = c.CSRFEnforce
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled
	return cfg
}

// SMTPConfig maps the SMTP section onto the mailer configuration.
func (c Config) SMTPConfig() mail.SMTPConfig {
	return mail.SMTPConfig{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		Timeout:  c.SMTP.Timeout,
	}
}
