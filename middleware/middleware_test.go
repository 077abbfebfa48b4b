package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/csrf"
	"github.com/MrEthical07/goAccount/internal/testkit"
	"github.com/MrEthical07/goAccount/middleware"
)

func echoSession(w http.ResponseWriter, r *http.Request) {
	sid, _ := goAccount.SessionIDFromContext(r.Context())
	uid, _ := goAccount.UserIDFromContext(r.Context())
	fmt.Fprintf(w, "%s|%s", sid, uid)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %s cookie set", name)
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) middleware.Envelope {
	t.Helper()
	var env middleware.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestSessionsIssuesCookieOnce(t *testing.T) {
	env := testkit.New(t, testkit.Options{})
	opts := middleware.CookieOptionsFor(env.Engine)
	h := middleware.Sessions(env.Engine, opts)(http.HandlerFunc(echoSession))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	c := sessionCookie(t, rec, "account_session")
	if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode || c.Secure {
		t.Fatalf("unexpected development cookie attributes: %+v", c)
	}
	if c.MaxAge != 86400 {
		t.Fatalf("MaxAge = %d, want 86400", c.MaxAge)
	}
	first := rec.Body.String()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Body.String() != first {
		t.Fatalf("session changed: %q then %q", first, rec.Body.String())
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("cookie reissued for a live session")
	}
}

func TestSessionsReplacesTamperedCookie(t *testing.T) {
	env := testkit.New(t, testkit.Options{})
	h := middleware.Sessions(env.Engine, middleware.CookieOptionsFor(env.Engine))(http.HandlerFunc(echoSession))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "account_session", Value: "not-a-signed-value"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	sessionCookie(t, rec, "account_session")
}

func TestProductionCookieAttributes(t *testing.T) {
	env := testkit.New(t, testkit.Options{Mutate: func(c *goAccount.Config) {
		c.Environment = goAccount.EnvProduction
	}})
	opts := middleware.CookieOptionsFor(env.Engine)
	if !opts.Secure || opts.SameSite != http.SameSiteNoneMode {
		t.Fatalf("unexpected production options: %+v", opts)
	}

	rec := httptest.NewRecorder()
	opts.Clear(rec)
	c := sessionCookie(t, rec, "account_session")
	if c.MaxAge >= 0 {
		t.Fatalf("cleared cookie MaxAge = %d", c.MaxAge)
	}
}

func TestRequireAuth(t *testing.T) {
	env := testkit.New(t, testkit.Options{})
	env.RegisterVerified(t, testkit.Alice())
	ctx := context.Background()

	guarded := middleware.RequireAuth(env.Engine)(http.HandlerFunc(echoSession))

	sess, err := env.Engine.BeginSession(ctx)
	if err != nil {
		t.Fatalf("begin session: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(goAccount.WithSessionID(ctx, sess.ID))

	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", rec.Code)
	}
	if got := decode(t, rec); got.Message != "Not authorized, no session" || got.Success {
		t.Fatalf("unexpected envelope %+v", got)
	}

	userID, err := env.Engine.SubmitPassword(ctx, sess.ID, "alice@x.io", "pw1")
	if err != nil {
		t.Fatalf("submit password: %v", err)
	}
	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("otp-pending status = %d", rec.Code)
	}

	if _, err := env.Engine.SubmitOTP(ctx, sess.ID, env.Mailer.OTP(t, "alice@x.io")); err != nil {
		t.Fatalf("submit otp: %v", err)
	}
	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d", rec.Code)
	}
	if want := sess.ID + "|" + userID; rec.Body.String() != want {
		t.Fatalf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestRequireAuthRejectsDeletedUser(t *testing.T) {
	env := testkit.New(t, testkit.Options{})
	env.RegisterVerified(t, testkit.Alice())
	ctx := context.Background()

	sess, err := env.Engine.BeginSession(ctx)
	if err != nil {
		t.Fatalf("begin session: %v", err)
	}
	userID, err := env.Engine.SubmitPassword(ctx, sess.ID, "alice@x.io", "pw1")
	if err != nil {
		t.Fatalf("submit password: %v", err)
	}
	if _, err := env.Engine.SubmitOTP(ctx, sess.ID, env.Mailer.OTP(t, "alice@x.io")); err != nil {
		t.Fatalf("submit otp: %v", err)
	}
	if err := env.Users.Delete(ctx, userID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	reached := false
	guarded := middleware.RequireAuth(env.Engine)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		reached = true
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(goAccount.WithSessionID(ctx, sess.ID))
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)

	if reached {
		t.Fatal("handler ran for a deleted user")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := decode(t, rec); got.Message != "Not authorized, user not found" || got.Error != "unauthorized" {
		t.Fatalf("unexpected envelope %+v", got)
	}
}

func TestRequireAuthWithoutSessionContext(t *testing.T) {
	env := testkit.New(t, testkit.Options{})
	rec := httptest.NewRecorder()
	middleware.RequireAuth(env.Engine)(http.HandlerFunc(echoSession)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequireCSRF(t *testing.T) {
	env := testkit.New(t, testkit.Options{})
	ctx := context.Background()
	sess, err := env.Engine.BeginSession(ctx)
	if err != nil {
		t.Fatalf("begin session: %v", err)
	}
	token, err := env.Engine.CSRFToken(ctx, sess.ID)
	if err != nil {
		t.Fatalf("csrf token: %v", err)
	}

	h := middleware.RequireCSRF(env.Engine)(http.HandlerFunc(echoSession))
	cases := []struct {
		name   string
		method string
		header string
		want   int
	}{
		{"safe method", http.MethodGet, "", http.StatusOK},
		{"missing header", http.MethodPut, "", http.StatusForbidden},
		{"wrong header", http.MethodPut, "nope", http.StatusForbidden},
		{"matching header", http.MethodPut, token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/", nil)
			if tc.header != "" {
				req.Header.Set("X-CSRF-Token", tc.header)
			}
			req = req.WithContext(goAccount.WithSessionID(ctx, sess.ID))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusForbidden {
				if got := decode(t, rec); got.Error != "csrf_validation_failed" {
					t.Fatalf("error code = %q", got.Error)
				}
			}
		})
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&goAccount.ValidationError{Message: "Please provide all required fields."}, http.StatusBadRequest, "validation_error"},
		{goAccount.ErrDuplicateIdentity, http.StatusBadRequest, "duplicate_identity"},
		{goAccount.ErrInvalidToken, http.StatusBadRequest, "invalid_token"},
		{goAccount.ErrOTPNotFound, http.StatusBadRequest, "not_found"},
		{goAccount.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{goAccount.ErrEmailNotVerified, http.StatusUnauthorized, "email_not_verified"},
		{goAccount.ErrInvalidOrExpiredOTP, http.StatusUnauthorized, "invalid_or_expired_otp"},
		{goAccount.ErrLoginSequence, http.StatusUnauthorized, "sequence_error"},
		{goAccount.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{goAccount.ErrUserNotFound, http.StatusNotFound, "not_found"},
		{csrf.ErrValidationFailed, http.StatusForbidden, "csrf_validation_failed"},
		{fmt.Errorf("%w: boom", goAccount.ErrDataCorruption), http.StatusInternalServerError, "internal_error"},
		{errors.New("anything"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		p := middleware.Classify(tc.err)
		if p.Status != tc.status || p.Code != tc.code {
			t.Fatalf("Classify(%v) = %d %s, want %d %s", tc.err, p.Status, p.Code, tc.status, tc.code)
		}
	}
}

func TestFailHidesDetailOutsideDevelopment(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	cause := fmt.Errorf("%w: dial tcp refused", goAccount.ErrStoreUnavailable)

	rec := httptest.NewRecorder()
	middleware.Responder{}.Fail(rec, req, cause)
	if got := decode(t, rec); got.Detail != "" || got.Message != "Something went wrong on the server." {
		t.Fatalf("production envelope leaked detail: %+v", got)
	}

	rec = httptest.NewRecorder()
	middleware.Responder{Development: true}.Fail(rec, req, cause)
	if got := decode(t, rec); got.Detail == "" {
		t.Fatal("development envelope missing detail")
	}
}

func TestCORS(t *testing.T) {
	h := middleware.CORS("http://localhost:3000/", "X-CSRF-Token")(http.HandlerFunc(echoSession))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-CSRF-Token" {
		t.Fatalf("allow headers = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("foreign origin was allowed")
	}
}

func TestSecureHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.SecureHeaders(http.HandlerFunc(echoSession)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("nosniff header missing")
	}
	if rec.Header().Get("X-Frame-Options") != "SAMEORIGIN" {
		t.Fatal("frame options header missing")
	}
}
