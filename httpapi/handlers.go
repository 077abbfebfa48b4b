package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/middleware"
)

const maxBodyBytes = 1 << 20

type handlers struct {
	engine *goAccount.Engine
	rs     middleware.Responder
	cookie middleware.CookieOptions
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	DOB      string `json:"dob"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpRequest struct {
	OTP string `json:"otp"`
}

type profileUpdateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	DOB   string `json:"dob"`
}

type profileResponse struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	DOB           string `json:"dob"`
	EmailVerified bool   `json:"emailVerified"`
}

type loginResponse struct {
	UserID string `json:"userId"`
}

type csrfResponse struct {
	CSRFToken string `json:"csrfToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toProfileResponse(p *goAccount.Profile) profileResponse {
	return profileResponse{
		Name:          p.Name,
		Email:         p.Email,
		Phone:         p.Phone,
		DOB:           p.DOB,
		EmailVerified: p.EmailVerified,
	}
}

// decodeJSON reads a single JSON object. An empty body decodes to the zero
// value so the engine can report the missing fields.
func decodeJSON(r *http.Request, w http.ResponseWriter, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return &goAccount.ValidationError{Message: "Request body must be valid JSON."}
	}
	return nil
}

func sessionID(r *http.Request) string {
	sid, _ := goAccount.SessionIDFromContext(r.Context())
	return sid
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	h.rs.OK(w, http.StatusOK, "server is running...", nil)
}

func (h *handlers) notFound(w http.ResponseWriter, _ *http.Request) {
	h.rs.FailWith(w, http.StatusNotFound, "not_found", "Route not found.")
}

func (h *handlers) methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	h.rs.FailWith(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed.")
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, w, &req); err != nil {
		h.rs.Fail(w, r, err)
		return
	}

	res, err := h.engine.Register(r.Context(), goAccount.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		DOB:      req.DOB,
	})
	if err != nil {
		h.rs.Fail(w, r, err)
		return
	}
	h.rs.OK(w, http.StatusCreated, res.Message, nil)
}

func (h *handlers) verifyEmail(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.rs.Fail(w, r, err)
		return
	}
	h.rs.OK(w, http.StatusOK, res.Message, nil)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, w, &req); err != nil {
		h.rs.Fail(w, r, err)
		return
	}

	userID, err := h.engine.SubmitPassword(r.Context(), sessionID(r), req.Email, req.Password)
	if err != nil {
		h.rs.Fail(w, r, err)
		return
	}
	h.rs.OK(w, http.StatusOK, "OTP sent", loginResponse{UserID: userID})
}

func (h *handlers) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decodeJSON(r, w, &req); err != nil {
		h.rs.Fail(w, r, err)
		return
	}

	ctx := r.Context()
	if _, err := h.engine.SubmitOTP(ctx, sessionID(r), req.OTP); err != nil {
		h.rs.Fail(w, r, err)
		return
	}

	sid, err := h.engine.RotateSession(ctx, sessionID(r))
	if err != nil {
		h.rs.Fail(w, r, err)
		return
	}
	value, err := h.engine.SessionCookie(sid)
	if err != nil {
		h.rs.Fail(w, r, err)
		return
	}
	h.cookie.Set(w, value)
	h.rs.OK(w, http.StatusOK, "Logged in", messageResponse{Message: "Login successful"})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Logout(r.Context(), sessionID(r)); err != nil {
		h.rs.Fail(w, r, err)
		return
	}
	h.cookie.Clear(w)
	h.rs.OK(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *handlers) csrfToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.engine.CSRFToken(r.Context(), sessionID(r))
	if err != nil {
		h.rs.Fail(w, r, err)
		return
	}
	h.rs.OK(w, http.StatusOK, "Success", csrfResponse{CSRFToken: token})
}

func (h *handlers) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := goAccount.UserIDFromContext(r.Context())
	p, err := h.engine.GetProfile(r.Context(), userID)
	if err != nil {
		h.rs.Fail(w, r, err)
		return
	}
	h.rs.OK(w, http.StatusOK, "Profile fetched successfully", toProfileResponse(p))
}

func (h *handlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileUpdateRequest
	if err := decodeJSON(r, w, &req); err != nil {
		h.rs.Fail(w, r, err)
		return
	}

	userID, _ := goAccount.UserIDFromContext(r.Context())
	p, err := h.engine.UpdateProfile(r.Context(), userID, goAccount.ProfileUpdate{
		Name:  req.Name,
		Phone: req.Phone,
		DOB:   req.DOB,
	})
	if err != nil {
		h.rs.Fail(w, r, err)
		return
	}
	h.rs.OK(w, http.StatusOK, "Profile updated successfully", toProfileResponse(p))
}
