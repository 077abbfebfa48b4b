package goAccount

import (
	"context"
	"errors"
	"net/mail"
	"net/url"
	"strings"

	"github.com/MrEthical07/goAccount/internal"
	"github.com/MrEthical07/goAccount/password"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	msgRegistered    = "Registration successful. Please check your email to verify your account."
	msgEmailVerified = "Email verified successfully. You can now log in."
	msgMissingFields = "Please provide all required fields."
	msgBadEmail      = "Please provide a valid email address."
	msgLongPassword  = "Password is too long."
	msgMissingToken  = "Verification token is required."
)

// normalizeEmail is applied before every lookup and write.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Register creates an unverified account and emails its verification link.
// The raw token only ever leaves the process in that email.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (res *Result, err error) {
	ctx, span := e.startSpan(ctx, "Register")
	defer func() { finishSpan(span, err) }()

	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	phone := strings.TrimSpace(req.Phone)
	dob := strings.TrimSpace(req.DOB)
	if name == "" || email == "" || req.Password == "" || phone == "" || dob == "" {
		e.metricInc(MetricRegisterFailure)
		return nil, invalid(msgMissingFields)
	}
	if !validEmail(email) {
		e.metricInc(MetricRegisterFailure)
		return nil, invalid(msgBadEmail)
	}

	if _, err := e.users.FindByEmail(ctx, email); err == nil {
		e.metricInc(MetricRegisterDuplicate)
		return nil, ErrDuplicateIdentity
	} else if !errors.Is(err, ErrRecordNotFound) {
		return nil, e.storeFault(ctx, "register.lookup", err)
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			e.metricInc(MetricRegisterFailure)
			return nil, invalid(msgLongPassword)
		}
		return nil, e.fault(ctx, ErrStoreUnavailable, "register.hash", err)
	}

	token, err := internal.NewHexToken(e.config.Verification.TokenBytes)
	if err != nil {
		return nil, e.fault(ctx, ErrStoreUnavailable, "register.token", err)
	}

	now := e.now()
	rec, err := e.sealUser(User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Phone:     phone,
		DOB:       dob,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, e.fault(ctx, ErrDataCorruption, "register.encrypt", err)
	}
	rec.PasswordHash = hash
	rec.VerificationTokenHash = internal.HashSecret(token)

	if err := e.users.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicateIdentity) {
			e.metricInc(MetricRegisterDuplicate)
			return nil, ErrDuplicateIdentity
		}
		return nil, e.storeFault(ctx, "register.create", err)
	}
	span.SetAttributes(attribute.String("user.id", rec.ID))

	if err := e.mailer.SendVerification(ctx, email, e.verificationLink(token)); err != nil {
		e.metricInc(MetricMailFailure)
		if delErr := e.users.Delete(context.WithoutCancel(ctx), rec.ID); delErr != nil {
			e.logger.ErrorContext(ctx, "could not undo registration", "op", "register.rollback", "user_id", rec.ID, "error", delErr)
		}
		return nil, e.fault(ctx, ErrMailDelivery, "register.mail", err, "user_id", rec.ID)
	}

	e.metricInc(MetricRegisterSuccess)
	return &Result{Message: msgRegistered}, nil
}

func (e *Engine) verificationLink(token string) string {
	base := strings.TrimRight(e.config.Verification.FrontendURL, "/")
	return base + "/verify-email?token=" + url.QueryEscape(token)
}

// VerifyEmail consumes a verification token. A token verifies at most once.
func (e *Engine) VerifyEmail(ctx context.Context, token string) (res *Result, err error) {
	ctx, span := e.startSpan(ctx, "VerifyEmail")
	defer func() { finishSpan(span, err) }()

	token = strings.TrimSpace(token)
	if token == "" {
		e.metricInc(MetricEmailVerificationFailure)
		return nil, invalid(msgMissingToken)
	}

	rec, err := e.users.ConsumeVerificationToken(ctx, internal.HashSecret(token), e.now())
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			e.metricInc(MetricEmailVerificationFailure)
			return nil, ErrInvalidToken
		}
		return nil, e.storeFault(ctx, "verify_email.consume", err)
	}
	span.SetAttributes(attribute.String("user.id", rec.ID))

	e.metricInc(MetricEmailVerificationSuccess)
	return &Result{Message: msgEmailVerified}, nil
}
