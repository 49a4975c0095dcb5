package ports

// Package ports defines interfaces (hexagonal ports) for session-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/target/clinic-session/internal/domain/auth"
)

// AuthAPI is the remote authentication server boundary.
type AuthAPI interface {
	// Login exchanges email and password for a response envelope.
	Login(ctx context.Context, email, password string) (*domainauth.Envelope, error)

	// ExternalLogin exchanges already-verified federated claims for a response envelope.
	ExternalLogin(ctx context.Context, in domainauth.ExternalLogin) (*domainauth.Envelope, error)

	// ValidateToken asks the server whether the bearer token is still accepted.
	ValidateToken(ctx context.Context, token string) (bool, error)
}

// Record is the persisted session layout: three entries written and erased together.
type Record struct {
	Token           string `json:"token"`
	TokenExpiration string `json:"tokenExpiration"`
	CurrentUser     string `json:"currentUser"`
}

// IsZero reports whether nothing is persisted.
func (r Record) IsZero() bool {
	return r.Token == "" && r.TokenExpiration == "" && r.CurrentUser == ""
}

// CredentialStorage is the durable key-value medium behind the session store.
// Save and Clear must apply all three entries or none of them.
type CredentialStorage interface {
	// Load returns the persisted record; an empty medium yields a zero Record.
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

// ExternalVerifier verifies a federated identity token and extracts its claims.
type ExternalVerifier interface {
	Verify(ctx context.Context, rawToken string) (domainauth.ExternalLogin, error)
}
