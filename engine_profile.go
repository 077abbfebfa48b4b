package goAccount

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
)

// GetProfile returns the decrypted profile of userID.
func (e *Engine) GetProfile(ctx context.Context, userID string) (p *Profile, err error) {
	ctx, span := e.startSpan(ctx, "GetProfile", attribute.String("user.id", userID))
	defer func() { finishSpan(span, err) }()

	u, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return profileOf(u), nil
}

// UpdateProfile replaces the non-blank fields of upd. Email and password are
// not editable here. An update with no fields returns the profile unchanged.
func (e *Engine) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (p *Profile, err error) {
	ctx, span := e.startSpan(ctx, "UpdateProfile", attribute.String("user.id", userID))
	defer func() { finishSpan(span, err) }()

	if userID == "" {
		return nil, ErrUserNotFound
	}

	patch, changed, err := e.sealPatch(upd)
	if err != nil {
		return nil, e.fault(ctx, ErrDataCorruption, "update_profile.encrypt", err, "user_id", userID)
	}
	if !changed {
		return e.GetProfile(ctx, userID)
	}

	rec, err := e.users.UpdateProfile(ctx, userID, patch, e.now())
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, e.storeFault(ctx, "update_profile.write", err)
	}

	u, err := e.openRecord(rec)
	if err != nil {
		e.logger.ErrorContext(ctx, "account operation failed", "op", "update_profile.decrypt", "user_id", userID, "error", err)
		return nil, err
	}
	e.metricInc(MetricProfileUpdate)
	return profileOf(u), nil
}

// User returns the decrypted user for userID.
func (e *Engine) User(ctx context.Context, userID string) (*User, error) {
	return e.loadUser(ctx, userID)
}

func (e *Engine) loadUser(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}
	rec, err := e.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, e.storeFault(ctx, "load_user", err)
	}
	u, err := e.openRecord(rec)
	if err != nil {
		e.logger.ErrorContext(ctx, "account operation failed", "op", "load_user.decrypt", "user_id", userID, "error", err)
		return nil, err
	}
	return u, nil
}
