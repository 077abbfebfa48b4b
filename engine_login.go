package goAccount

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/internal"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/session"
	"go.opentelemetry.io/otel/attribute"
)

const (
	msgMissingCredentials = "Please provide email and password."
	msgMissingOTP         = "Please provide the one-time passcode."
)

// VerifyPassword checks the first factor and, on success, issues and mails a
// fresh passcode, replacing any outstanding one. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (e *Engine) VerifyPassword(ctx context.Context, email, pw string) (userID string, err error) {
	ctx, span := e.startSpan(ctx, "VerifyPassword")
	start := time.Now()
	defer func() {
		e.observeLatency(start)
		if err != nil && !IsInternal(err) {
			e.metricInc(MetricPasswordStepFailure)
		}
		finishSpan(span, err)
	}()

	email = normalizeEmail(email)
	if email == "" || pw == "" {
		return "", invalid(msgMissingCredentials)
	}

	rec, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			_, _ = e.hasher.Verify(pw, e.dummyHash)
			return "", ErrInvalidCredentials
		}
		return "", e.storeFault(ctx, "verify_password.lookup", err)
	}

	ok, err := e.hasher.Verify(pw, rec.PasswordHash)
	if err != nil {
		if errors.Is(err, password.ErrUnrecognizedHash) {
			return "", e.fault(ctx, ErrDataCorruption, "verify_password.hash", err, "user_id", rec.ID)
		}
		return "", e.fault(ctx, ErrStoreUnavailable, "verify_password.hash", err, "user_id", rec.ID)
	}
	if !ok {
		return "", ErrInvalidCredentials
	}
	e.upgradeHash(ctx, rec, pw)

	if !rec.EmailVerified {
		return "", ErrEmailNotVerified
	}

	otp, err := internal.NewOTP(e.config.OTP.Digits)
	if err != nil {
		return "", e.fault(ctx, ErrStoreUnavailable, "verify_password.otp", err)
	}
	expiresAt := e.now().Add(e.config.OTP.TTL)
	if err := e.users.SetOTP(ctx, rec.ID, internal.HashSecret(otp), expiresAt); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", e.storeFault(ctx, "verify_password.set_otp", err)
	}

	if err := e.mailer.SendOTP(ctx, rec.Email, otp, e.config.OTP.TTL); err != nil {
		e.metricInc(MetricMailFailure)
		return "", e.fault(ctx, ErrMailDelivery, "verify_password.mail", err, "user_id", rec.ID)
	}

	span.SetAttributes(attribute.String("user.id", rec.ID))
	e.metricInc(MetricPasswordStepSuccess)
	return rec.ID, nil
}

// upgradeHash rewrites rec's password hash when it was produced by a fallback
// hasher or with weaker settings than configured. Failures are logged and do
// not affect the login.
func (e *Engine) upgradeHash(ctx context.Context, rec UserRecord, pw string) {
	stale, err := e.hasher.NeedsUpgrade(rec.PasswordHash)
	if err != nil {
		e.logger.WarnContext(ctx, "password hash not inspected", "op", "verify_password.rehash", "user_id", rec.ID, "error", err)
		return
	}
	if !stale {
		return
	}
	hash, err := e.hasher.Hash(pw)
	if err != nil {
		e.logger.WarnContext(ctx, "password not rehashed", "op", "verify_password.rehash", "user_id", rec.ID, "error", err)
		return
	}
	if err := e.users.SetPasswordHash(ctx, rec.ID, hash, e.now()); err != nil {
		e.logger.WarnContext(ctx, "password not rehashed", "op", "verify_password.rehash", "user_id", rec.ID, "error", err)
	}
}

// VerifyOTP checks the second factor for userID. A failed attempt leaves the
// passcode in place; a successful one clears it so it cannot be replayed.
func (e *Engine) VerifyOTP(ctx context.Context, userID, otp string) (u *User, err error) {
	ctx, span := e.startSpan(ctx, "VerifyOTP", attribute.String("user.id", userID))
	start := time.Now()
	defer func() {
		e.observeLatency(start)
		if err != nil && !IsInternal(err) {
			e.metricInc(MetricOTPStepFailure)
		}
		finishSpan(span, err)
	}()

	otp = strings.TrimSpace(otp)
	if otp == "" {
		return nil, invalid(msgMissingOTP)
	}
	if userID == "" {
		return nil, ErrOTPNotFound
	}

	rec, err := e.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrOTPNotFound
		}
		return nil, e.storeFault(ctx, "verify_otp.lookup", err)
	}
	if !otpOutstanding(rec) {
		return nil, ErrOTPNotFound
	}
	if !otpLive(rec, e.now()) || !internal.EqualDigest(internal.HashSecret(otp), rec.OTPHash) {
		return nil, ErrInvalidOrExpiredOTP
	}

	cleared, err := e.users.ClearOTP(ctx, rec.ID, rec.OTPHash)
	if err != nil {
		return nil, e.storeFault(ctx, "verify_otp.clear", err)
	}
	if !cleared {
		// consumed or replaced concurrently
		return nil, ErrInvalidOrExpiredOTP
	}

	u, err = e.openRecord(rec)
	if err != nil {
		e.logger.ErrorContext(ctx, "account operation failed", "op", "verify_otp.decrypt", "user_id", rec.ID, "error", err)
		return nil, err
	}
	e.metricInc(MetricOTPStepSuccess)
	return u, nil
}

// SubmitPassword runs the first login step on a session. A session that does
// not exist is rejected before any passcode is sent; a failed password check
// leaves the session state unchanged.
func (e *Engine) SubmitPassword(ctx context.Context, sessionID, email, pw string) (string, error) {
	if _, err := e.sessions.State(ctx, sessionID); err != nil {
		return "", e.sequenceError(ctx, "submit_password.load", err)
	}

	userID, err := e.VerifyPassword(ctx, email, pw)
	if err != nil {
		return "", err
	}

	if err := e.sessions.BeginOTPChallenge(ctx, sessionID, userID); err != nil {
		return "", e.sequenceError(ctx, "submit_password.challenge", err)
	}
	return userID, nil
}

// SubmitOTP runs the second login step. The session must be waiting for a
// passcode; on success it becomes authenticated under the same id.
func (e *Engine) SubmitOTP(ctx context.Context, sessionID, otp string) (*User, error) {
	state, err := e.sessions.State(ctx, sessionID)
	if err != nil {
		return nil, e.sequenceError(ctx, "submit_otp.load", err)
	}
	pending, ok := state.PendingUserID()
	if !ok {
		e.metricInc(MetricLoginSequenceRejected)
		return nil, ErrLoginSequence
	}

	u, err := e.VerifyOTP(ctx, pending, otp)
	if err != nil {
		return nil, err
	}

	if err := e.sessions.CompleteAuthentication(ctx, sessionID, pending); err != nil {
		return nil, e.sequenceError(ctx, "submit_otp.complete", err)
	}
	return u, nil
}

// sequenceError maps a session failure during login. Missing sessions and
// lost transitions are sequence errors; anything else is a fault.
func (e *Engine) sequenceError(ctx context.Context, op string, err error) error {
	if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrStateConflict) {
		e.metricInc(MetricLoginSequenceRejected)
		return ErrLoginSequence
	}
	return e.sessionFault(ctx, op, err)
}

// Logout destroys the session in whatever state it is in.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrUnauthorized
	}
	if err := e.sessions.Destroy(ctx, sessionID); err != nil {
		return e.sessionFault(ctx, "logout", err)
	}
	e.metricInc(MetricLogout)
	return nil
}
