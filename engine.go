package goAccount

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/goAccount/csrf"
	"github.com/MrEthical07/goAccount/jwt"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/pii"
	"github.com/MrEthical07/goAccount/session"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Engine runs the account operations. It is safe for concurrent use once
// built.
type Engine struct {
	config    Config
	users     UserStore
	mailer    Mailer
	cipher    *pii.Cipher
	hasher    *password.Compat
	dummyHash string
	sessions  *session.Authority
	csrf      *csrf.Synchronizer
	cookies   *jwt.Manager
	metrics   *Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	rdb       redis.UniversalClient
	closeOnce sync.Once
	closeErr  error
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// Close releases the Redis client and, when it implements io.Closer, the user
// store. Both belong to the engine once Build succeeds. Later calls return the
// first result.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		var errs []error
		if e.rdb != nil {
			if err := e.rdb.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close redis: %w", err))
			}
		}
		if c, ok := e.users.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close user store: %w", err))
			}
		}
		e.closeErr = errors.Join(errs...)
	})
	return e.closeErr
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Logger returns the logger the engine writes faults to.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeLatency(start time.Time) {
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricOperationLatency, time.Since(start))
	}
}

func (e *Engine) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "goAccount."+name, trace.WithAttributes(attrs...))
}

// finishSpan records err on span. Business errors are recorded as events; only
// internal faults mark the span failed.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		if IsInternal(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.AddEvent("rejected", trace.WithAttributes(attribute.String("reason", err.Error())))
		}
	}
	span.End()
}

// fault wraps cause in sentinel and logs it. Only non-secret context is passed
// in attrs.
func (e *Engine) fault(ctx context.Context, sentinel error, op string, cause error, attrs ...any) error {
	err := fmt.Errorf("%w: %v", sentinel, cause)
	args := append([]any{slog.String("op", op), slog.Any("error", cause)}, attrs...)
	e.logger.ErrorContext(ctx, "account operation failed", args...)
	return err
}

func (e *Engine) storeFault(ctx context.Context, op string, cause error) error {
	return e.fault(ctx, ErrStoreUnavailable, op, cause)
}

func (e *Engine) sessionFault(ctx context.Context, op string, cause error) error {
	return e.fault(ctx, ErrSessionUnavailable, op, cause)
}

// IsInternal reports whether err is a fault rather than a rejection of the
// caller's input.
func IsInternal(err error) bool {
	if err == nil {
		return false
	}
	for _, business := range []error{
		ErrValidation,
		ErrDuplicateIdentity,
		ErrInvalidToken,
		ErrInvalidCredentials,
		ErrEmailNotVerified,
		ErrOTPNotFound,
		ErrInvalidOrExpiredOTP,
		ErrLoginSequence,
		ErrUserNotFound,
		ErrUnauthorized,
		csrf.ErrValidationFailed,
	} {
		if errors.Is(err, business) {
			return false
		}
	}
	return true
}
