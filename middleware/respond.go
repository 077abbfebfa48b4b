package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/csrf"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Problem is the HTTP reading of an engine error.
type Problem struct {
	Status  int
	Code    string
	Message string
}

const (
	msgInternal = "Something went wrong on the server."
	msgUserGone = "Not authorized, user not found"
)

var problems = []struct {
	err error
	Problem
}{
	{goAccount.ErrDuplicateIdentity, Problem{http.StatusBadRequest, "duplicate_identity", "User with this email already exists."}},
	{goAccount.ErrInvalidToken, Problem{http.StatusBadRequest, "invalid_token", "Invalid verification token."}},
	{goAccount.ErrOTPNotFound, Problem{http.StatusBadRequest, "not_found", "Could not find user or OTP request."}},
	{goAccount.ErrInvalidCredentials, Problem{http.StatusUnauthorized, "invalid_credentials", "Invalid credentials."}},
	{goAccount.ErrEmailNotVerified, Problem{http.StatusUnauthorized, "email_not_verified", "Please verify your email before logging in."}},
	{goAccount.ErrInvalidOrExpiredOTP, Problem{http.StatusUnauthorized, "invalid_or_expired_otp", "Invalid or expired OTP."}},
	{goAccount.ErrLoginSequence, Problem{http.StatusUnauthorized, "sequence_error", "Invalid login sequence. Please start over."}},
	{goAccount.ErrUnauthorized, Problem{http.StatusUnauthorized, "unauthorized", "Not authorized, no session"}},
	{goAccount.ErrUserNotFound, Problem{http.StatusNotFound, "not_found", "User not found."}},
	{csrf.ErrValidationFailed, Problem{http.StatusForbidden, "csrf_validation_failed", "Invalid CSRF token."}},
}

// Classify maps err to a status, an error code and a message safe to show.
// Unknown errors are internal.
func Classify(err error) Problem {
	var verr *goAccount.ValidationError
	if errors.As(err, &verr) {
		return Problem{http.StatusBadRequest, "validation_error", verr.Message}
	}
	for _, p := range problems {
		if errors.Is(err, p.err) {
			return p.Problem
		}
	}
	return Problem{http.StatusInternalServerError, "internal_error", msgInternal}
}

// Responder writes envelopes. Internal errors are logged; their detail is
// echoed to the client only in development.
type Responder struct {
	Logger      *slog.Logger
	Development bool
}

// NewResponder takes its logger and environment from engine.
func NewResponder(engine *goAccount.Engine) Responder {
	cfg := engine.Config()
	return Responder{
		Logger:      engine.Logger(),
		Development: cfg.Environment == goAccount.EnvDevelopment,
	}
}

// OK writes a success envelope.
func (rs Responder) OK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes err as a failure envelope.
func (rs Responder) Fail(w http.ResponseWriter, r *http.Request, err error) {
	p := Classify(err)
	env := Envelope{Message: p.Message, Error: p.Code}
	if p.Status >= http.StatusInternalServerError {
		if rs.Logger != nil {
			rs.Logger.ErrorContext(r.Context(), "request failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("error", err),
			)
		}
		if rs.Development {
			env.Detail = err.Error()
		}
	}
	writeJSON(w, p.Status, env)
}

// FailWith writes a failure envelope with an explicit status and message.
func (rs Responder) FailWith(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Envelope{Message: message, Error: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
