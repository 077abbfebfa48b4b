package goAccount

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/MrEthical07/goAccount/csrf"
	"github.com/MrEthical07/goAccount/jwt"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/pii"
	"github.com/MrEthical07/goAccount/session"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

const instrumentationName = "github.com/MrEthical07/goAccount"

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	users  UserStore
	mailer Mailer
	logger *slog.Logger
	clock  func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the session store. After a successful
// Build the engine owns client and closes it in [Engine.Close].
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the account store. A store that implements io.Closer is
// closed by [Engine.Close].
func (b *Builder) WithUserStore(users UserStore) *Builder {
	b.users = users
	return b
}

func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithLogger sets the logger used for internal faults. Without one the engine
// discards its logs.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock replaces the time source used for passcode expiry and record
// timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- PII --------
	cipher, err := pii.New(cfg.PII.Key, cfg.PII.IV, cfg.PII.IVMode)
	if err != nil {
		return nil, err
	}

	// -------- PASSWORDS --------
	hasher, err := newHasher(cfg.Password)
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash("goaccount-unknown-user")
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	// -------- SESSIONS --------
	sessions := session.NewAuthority(
		session.NewStore(b.redis, cfg.Session.RedisPrefix),
		cfg.Session.Lifetime,
	)

	cookies, err := jwt.NewManager(jwt.Config{
		TTL:             cfg.Session.Lifetime,
		Secret:          cfg.Session.Secret,
		KeyID:           cfg.Session.KeyID,
		PreviousSecrets: cfg.Session.PreviousSecrets,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	clock := b.clock
	if clock == nil {
		clock = nowUTC
	}

	engine := &Engine{
		config:    cloneConfig(cfg),
		users:     b.users,
		mailer:    b.mailer,
		cipher:    cipher,
		hasher:    hasher,
		dummyHash: dummyHash,
		sessions:  sessions,
		cookies:   cookies,
		metrics:   NewMetrics(cfg.Metrics),
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		now:       clock,
		rdb:       b.redis,
	}
	engine.csrf = csrf.New(csrfTokens{sessions: sessions}, csrf.Config{
		Enforce:    cfg.CSRF.Enforce,
		Header:     cfg.CSRF.Header,
		TokenBytes: cfg.CSRF.TokenBytes,
	})

	b.built = true

	return engine, nil
}

// newHasher hashes with the configured algorithm and verifies either format.
func newHasher(cfg PasswordConfig) (*password.Compat, error) {
	bc, err := password.NewBcrypt(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	a2, err := password.NewArgon2(cfg.Argon2)
	if err != nil {
		return nil, err
	}
	if cfg.Algorithm == "argon2id" {
		return password.NewCompat(a2, bc), nil
	}
	return password.NewCompat(bc, a2), nil
}
