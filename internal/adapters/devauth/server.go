package devauth

// Package devauth provides an in-process authentication server for local development.
// It speaks the same login, external-login and token-validation contract as the real
// auth server, with a fixed set of demo accounts.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	domainauth "github.com/target/clinic-session/internal/domain/auth"
)

const (
	issuer          = "clinic-devauth"
	defaultTokenTTL = time.Hour
	// DemoPassword is the password shared by every demo account.
	DemoPassword = "demo123"
)

// Account is a user known to the dev server.
type Account struct {
	UserID   string
	Email    string
	FullName string
	Role     domainauth.Role
	Password string
}

// DemoAccounts returns one account per role plus the generic demo patient.
func DemoAccounts() []Account {
	return []Account{
		{UserID: "admin-1", Email: "admin@site.test", FullName: "Demo Admin", Role: domainauth.RoleAdmin, Password: DemoPassword},
		{UserID: "patient-1", Email: "patient@site.test", FullName: "Demo Patient", Role: domainauth.RolePatient, Password: DemoPassword},
		{UserID: "professional-1", Email: "professional@site.test", FullName: "Demo Professional", Role: domainauth.RoleProfessional, Password: DemoPassword},
		{UserID: "manager-1", Email: "manager@site.test", FullName: "Demo Manager", Role: domainauth.RoleScheduleManager, Password: DemoPassword},
		{UserID: "u1", Email: "demo@site.test", FullName: "Demo User", Role: domainauth.RolePatient, Password: DemoPassword},
	}
}

// Config controls the dev server behavior.
type Config struct {
	// SigningKey is the HS256 secret. Required.
	SigningKey []byte
	TokenTTL   time.Duration // default 1h when zero
	// LoginRate limits login attempts per second across the server; zero disables limiting.
	LoginRate  float64
	LoginBurst int
	Accounts   []Account // defaults to DemoAccounts when nil
	BasePath   string    // e.g. "/api"
	Logger     *slog.Logger
	Now        func() time.Time
}

// Server implements the auth server contract in memory.
type Server struct {
	key      []byte
	ttl      time.Duration
	basePath string
	logger   *slog.Logger
	now      func() time.Time
	limiter  *rate.Limiter

	mu       sync.Mutex
	accounts map[string]Account // by lowercased email
	external map[string]Account // by provider|externalId
	revoked  map[string]struct{}
}

// NewServer constructs a dev server from Config.
func NewServer(cfg Config) (*Server, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("dev auth: signing key is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.Accounts == nil {
		cfg.Accounts = DemoAccounts()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		key:      append([]byte(nil), cfg.SigningKey...),
		ttl:      cfg.TokenTTL,
		basePath: strings.TrimSuffix(cfg.BasePath, "/"),
		logger:   cfg.Logger,
		now:      cfg.Now,
		accounts: make(map[string]Account, len(cfg.Accounts)),
		external: make(map[string]Account),
		revoked:  make(map[string]struct{}),
	}
	if cfg.LoginRate > 0 {
		burst := cfg.LoginBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.LoginRate), burst)
	}
	for _, a := range cfg.Accounts {
		s.accounts[strings.ToLower(a.Email)] = a
	}
	return s, nil
}

// Handler returns the HTTP routes of the dev server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	routes := func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/external-auth/login", s.handleExternalLogin)
		r.Get("/auth/validate-token", s.handleValidate)
	}
	if s.basePath == "" {
		routes(r)
	} else {
		r.Route(s.basePath, routes)
	}
	return r
}

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for acct and returns it with its expiry.
func (s *Server) IssueToken(acct Account) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	c := claims{
		Email: acct.Email,
		Role:  string(acct.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   acct.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, exp, nil
}

func (s *Server) parse(token string) (*claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Revoke marks token as no longer accepted by validate-token.
func (s *Server) Revoke(token string) error {
	c, err := s.parse(token)
	if err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[c.ID] = struct{}{}
	return nil
}

func (s *Server) respondWithToken(w http.ResponseWriter, acct Account) {
	token, exp, err := s.IssueToken(acct)
	if err != nil {
		s.logger.Error("dev auth token issue failed", "error", err)
		writeEnvelope(w, http.StatusInternalServerError, envelope{Message: "could not issue token"})
		return
	}
	writeEnvelope(w, http.StatusOK, envelope{
		Succeeded: true,
		Message:   "Login successful",
		Data: &domainauth.AuthPayload{
			UserID:    acct.UserID,
			Email:     acct.Email,
			FullName:  acct.FullName,
			Role:      string(acct.Role),
			Token:     token,
			ExpiresAt: domainauth.FormatExpiry(exp),
		},
	})
}

func (s *Server) allowLogin(w http.ResponseWriter) bool {
	if s.limiter != nil && !s.limiter.Allow() {
		writeEnvelope(w, http.StatusTooManyRequests, envelope{Message: "Too many login attempts", ErrorCode: "RATE_LIMITED"})
		return false
	}
	return true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowLogin(w) {
		return
	}
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Message: "Malformed request body", ErrorCode: "INVALID_REQUEST"})
		return
	}
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		writeEnvelope(w, http.StatusBadRequest, envelope{Message: "Email and password are required", ErrorCode: "VALIDATION"})
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(in.Email))]
	s.mu.Unlock()
	if !ok || acct.Password != in.Password {
		s.logger.Info("dev auth login rejected", "email", in.Email)
		writeEnvelope(w, http.StatusUnauthorized, envelope{Message: "Invalid credentials", ErrorCode: "INVALID_CREDENTIALS"})
		return
	}

	s.logger.Info("dev auth login", "user_id", acct.UserID, "role", acct.Role)
	s.respondWithToken(w, acct)
}

func (s *Server) handleExternalLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowLogin(w) {
		return
	}
	var in domainauth.ExternalLogin
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Message: "Malformed request body", ErrorCode: "INVALID_REQUEST"})
		return
	}
	if in.Provider == "" || in.ExternalID == "" || in.Email == "" {
		writeEnvelope(w, http.StatusBadRequest, envelope{Message: "Provider, external id and email are required", ErrorCode: "VALIDATION"})
		return
	}

	key := in.Provider + "|" + in.ExternalID
	s.mu.Lock()
	acct, ok := s.external[key]
	if !ok {
		if existing, found := s.accounts[strings.ToLower(in.Email)]; found {
			acct = existing
		} else {
			acct = Account{UserID: uuid.NewString(), Email: in.Email, FullName: in.FullName, Role: domainauth.RolePatient}
			s.accounts[strings.ToLower(in.Email)] = acct
		}
		s.external[key] = acct
	}
	s.mu.Unlock()

	s.logger.Info("dev auth external login", "provider", in.Provider, "user_id", acct.UserID, "provisioned", !ok)
	s.respondWithToken(w, acct)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		writeEnvelope(w, http.StatusUnauthorized, envelope{Message: "Missing bearer token"})
		return
	}

	c, err := s.parse(raw)
	if err != nil {
		writeEnvelope(w, http.StatusOK, envelope{Message: "Token is not valid"})
		return
	}
	s.mu.Lock()
	_, revoked := s.revoked[c.ID]
	s.mu.Unlock()
	if revoked {
		writeEnvelope(w, http.StatusOK, envelope{Message: "Token has been revoked"})
		return
	}
	writeEnvelope(w, http.StatusOK, envelope{Succeeded: true, Message: "Token is valid"})
}

type envelope struct {
	Succeeded bool                    `json:"isSuccess"`
	Message   string                  `json:"message"`
	Data      *domainauth.AuthPayload `json:"data"`
	ErrorCode string                  `json:"errorCode,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, code int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(env)
}
