package httpx

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/target/clinic-session/internal/domain/auth"
	apperrors "github.com/target/clinic-session/internal/errors"
	"github.com/target/clinic-session/internal/ports"
	"github.com/target/clinic-session/internal/routes"
	"github.com/target/clinic-session/internal/service"
	"github.com/target/clinic-session/internal/session"
)

const maxBodyBytes = 64 << 10

// SessionHandlers serves login, logout, session lookup and navigation.
type SessionHandlers struct {
	Gateway   *service.Gateway
	Store     *session.Store
	Navigator *routes.Navigator
	// Verifier enables Google sign-in when set.
	Verifier ports.ExternalVerifier
	Logger   *slog.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type externalLoginRequest struct {
	IDToken string `json:"idToken"`
}

type loginResponse struct {
	Redirect string               `json:"redirect"`
	Identity *domainauth.Identity `json:"identity"`
}

type sessionResponse struct {
	Identity  *domainauth.Identity `json:"identity"`
	ExpiresAt time.Time            `json:"expiresAt"`
}

type navigationResponse struct {
	Route    string               `json:"route"`
	Identity *domainauth.Identity `json:"identity,omitempty"`
}

func (h *SessionHandlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// Login handles POST /api/session/login.
func (h *SessionHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		WriteAppError(w, apperrors.Validation("email and password are required"))
		return
	}

	env, err := h.Gateway.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	h.complete(w, r, env.Payload)
}

// LoginGoogle handles POST /api/session/login/google.
func (h *SessionHandlers) LoginGoogle(w http.ResponseWriter, r *http.Request) {
	if h.Verifier == nil {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: string(apperrors.ErrCodeNotFound), Message: "google sign-in is not configured"})
		return
	}
	var req externalLoginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	claims, err := h.Verifier.Verify(r.Context(), req.IDToken)
	if err != nil {
		h.logger().InfoContext(r.Context(), "google id token rejected", "error", err)
		WriteAppError(w, err)
		return
	}

	env, err := h.Gateway.LoginExternal(r.Context(), claims)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	h.complete(w, r, env.Payload)
}

func (h *SessionHandlers) complete(w http.ResponseWriter, r *http.Request, payload *domainauth.AuthPayload) {
	landing, err := h.Gateway.CompleteLogin(r.Context(), payload)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, loginResponse{Redirect: landing, Identity: h.Store.Current()})
}

// Logout handles POST /api/session/logout.
func (h *SessionHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	route, err := h.Gateway.Logout(r.Context())
	if err != nil {
		h.logger().WarnContext(r.Context(), "logout left persisted state behind", "error", err)
	}
	WriteJSON(w, http.StatusOK, map[string]string{"redirect": route})
}

// Current handles GET /api/session.
func (h *SessionHandlers) Current(w http.ResponseWriter, _ *http.Request) {
	id := h.Store.Current()
	if id == nil {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: string(apperrors.ErrCodeAuthentication), Message: "no session"})
		return
	}
	WriteJSON(w, http.StatusOK, sessionResponse{Identity: id, ExpiresAt: h.Store.Credential().ExpiresAt})
}

// Navigate resolves any other GET against the route table.
func (h *SessionHandlers) Navigate(w http.ResponseWriter, r *http.Request) {
	res := h.Navigator.Navigate(r.URL.Path)
	if res.Redirected() {
		http.Redirect(w, r, res.Target, http.StatusFound)
		return
	}
	WriteJSON(w, http.StatusOK, navigationResponse{Route: res.Target, Identity: h.Store.Current()})
}
