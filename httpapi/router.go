package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/middleware"
)

// Options configure [NewRouter].
type Options struct {
	// BasePath prefixes every route, e.g. "/api". Empty mounts at the root.
	BasePath string
	// FrontendOrigin is the only origin allowed to make credentialed
	// cross-origin calls. Empty disables CORS headers.
	FrontendOrigin string
	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
}

// NewRouter returns the full handler chain for engine.
func NewRouter(engine *goAccount.Engine, opts Options) http.Handler {
	h := &handlers{
		engine: engine,
		rs:     middleware.NewResponder(engine),
		cookie: middleware.CookieOptionsFor(engine),
	}

	r := mux.NewRouter()
	base := r
	if p := strings.TrimRight(opts.BasePath, "/"); p != "" {
		base = r.PathPrefix(p).Subrouter()
	}
	r.NotFoundHandler = http.HandlerFunc(h.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)

	base.HandleFunc("/health", h.health).Methods(http.MethodGet)
	if opts.Metrics != nil {
		base.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}

	sessions := base.NewRoute().Subrouter()
	sessions.Use(middleware.Sessions(engine, h.cookie))

	sessions.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	sessions.HandleFunc("/auth/verify-email", h.verifyEmail).Methods(http.MethodGet)
	sessions.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	sessions.HandleFunc("/auth/verify-otp", h.verifyOTP).Methods(http.MethodPost)
	sessions.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
	sessions.HandleFunc("/csrf-token", h.csrfToken).Methods(http.MethodGet)

	users := sessions.PathPrefix("/users").Subrouter()
	users.Use(middleware.RequireAuth(engine), middleware.RequireCSRF(engine))
	users.HandleFunc("/profile", h.getProfile).Methods(http.MethodGet)
	users.HandleFunc("/profile", h.updateProfile).Methods(http.MethodPut)

	var out http.Handler = r
	if opts.FrontendOrigin != "" {
		out = middleware.CORS(opts.FrontendOrigin, engine.CSRFHeader())(out)
	}
	return middleware.SecureHeaders(out)
}
