// Command accountd serves the account HTTP API.
//
// Configuration comes from GOACCOUNT_* environment variables; see
// internal/appconfig.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/httpapi"
	"github.com/MrEthical07/goAccount/internal/appconfig"
	"github.com/MrEthical07/goAccount/internal/telemetry"
	"github.com/MrEthical07/goAccount/mail"
	"github.com/MrEthical07/goAccount/metrics/export/prometheus"
	"github.com/MrEthical07/goAccount/store/memory"
	"github.com/MrEthical07/goAccount/store/postgres"
	"github.com/MrEthical07/goAccount/store/sqlite"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "accountd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}

	logger := newLogger(os.Stdout, cfg)
	logger.InfoContext(ctx, "starting", slog.String("version", version), slog.String("env", cfg.Environment))

	shutdownTracing, err := telemetry.Setup(ctx, "accountd", version, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", slog.Any("error", err))
		}
	}()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping: %w", err)
	}

	users, closeUsers, err := openUserStore(ctx, cfg)
	if err != nil {
		_ = rdb.Close()
		return err
	}

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		closeUsers()
		_ = rdb.Close()
		return err
	}

	engine, err := goAccount.New().
		WithConfig(cfg.EngineConfig()).
		WithRedis(rdb).
		WithUserStore(users).
		WithMailer(mailer).
		WithLogger(logger).
		Build()
	if err != nil {
		closeUsers()
		_ = rdb.Close()
		return fmt.Errorf("engine: %w", err)
	}
	// The engine owns rdb and users from here on.
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("engine close", slog.Any("error", err))
		}
	}()

	opts := httpapi.Options{
		BasePath:       cfg.BasePath,
		FrontendOrigin: cfg.FrontendURL,
	}
	if cfg.MetricsEnabled {
		opts.Metrics = prometheus.NewExporter(engine).Handler()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(engine, opts),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.HTTPAddr), slog.String("base_path", cfg.BasePath))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func newLogger(w io.Writer, cfg appconfig.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Production() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func openUserStore(ctx context.Context, cfg appconfig.Config) (goAccount.UserStore, func(), error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		st := postgres.New(db)
		return st, func() { _ = st.Close() }, nil
	case "sqlite":
		st, err := sqlite.Open(ctx, cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	case "memory":
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
}

func newMailer(cfg appconfig.Config, logger *slog.Logger) (goAccount.Mailer, error) {
	if cfg.SMTP.Host == "" {
		logger.Warn("no SMTP host configured; emails are written to the log")
		return mail.NewLogMailer(logger), nil
	}
	return mail.NewSMTPMailer(cfg.SMTPConfig())
}
