package auth

// Package auth contains domain-level types for identities, credentials and roles.
// It is pure and free of framework/adapter concerns.

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Values match the exact spellings issued by the auth server.
type Role string

const (
	RoleAdmin           Role = "Admin"
	RolePatient         Role = "Patient"
	RoleProfessional    Role = "Professional"
	RoleScheduleManager Role = "ScheduleManager"
)

// ErrUnknownRole is returned by ParseRole for values outside the closed role set.
var ErrUnknownRole = errors.New("unknown role")

// Roles returns the closed role set in declaration order.
func Roles() []Role {
	return []Role{RoleAdmin, RolePatient, RoleProfessional, RoleScheduleManager}
}

// ParseRole validates a role string received from the server.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePatient, RoleProfessional, RoleScheduleManager:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// RoleSet is the ordered set of roles allowed to enter a route subtree.
type RoleSet []Role

// NewRoleSet builds a RoleSet, dropping duplicates while keeping first-seen order.
func NewRoleSet(roles ...Role) RoleSet {
	out := make(RoleSet, 0, len(roles))
	for _, r := range roles {
		if !out.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}

// Contains reports whether r is a valid role present in the set.
func (s RoleSet) Contains(r Role) bool {
	if !r.Valid() {
		return false
	}
	for _, allowed := range s {
		if allowed == r {
			return true
		}
	}
	return false
}

func (s RoleSet) String() string {
	parts := make([]string, len(s))
	for i, r := range s {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

// Identity is the authenticated actor as issued by the auth server.
// Role is kept exactly as received; callers check Role.Valid before trusting it.
type Identity struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     Role   `json:"role"`
}

// Credential is the bearer token backing a session.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// LiveAt reports whether the credential is present and expires strictly after now.
func (c Credential) LiveAt(now time.Time) bool {
	return c.Token != "" && c.ExpiresAt.After(now)
}

// IsZero reports whether no credential is held.
func (c Credential) IsZero() bool {
	return c.Token == "" && c.ExpiresAt.IsZero()
}

// zoneless layouts accepted for servers that omit the offset; read as UTC.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseExpiry parses an ISO-8601 expiry timestamp.
func ParseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("expiry is empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid expiry timestamp %q", s)
}

// FormatExpiry renders an expiry in the persisted ISO-8601 form.
func FormatExpiry(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ExternalLogin carries already-verified claims from a federated identity provider.
type ExternalLogin struct {
	Provider   string `json:"provider"`
	ExternalID string `json:"externalId"`
	Email      string `json:"email"`
	FullName   string `json:"fullName"`
}

// AuthPayload is the success body of a login response.
type AuthPayload struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	Role      string `json:"role"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// Identity derives the actor snapshot from the payload.
func (p AuthPayload) Identity() Identity {
	return Identity{
		UserID:   p.UserID,
		Email:    p.Email,
		FullName: p.FullName,
		Role:     Role(p.Role),
	}
}

// Credential parses the token and expiry of the payload.
func (p AuthPayload) Credential() (Credential, error) {
	exp, err := ParseExpiry(p.ExpiresAt)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Token: p.Token, ExpiresAt: exp}, nil
}

// Envelope is the response wrapper returned by every auth server endpoint.
type Envelope struct {
	Succeeded bool         `json:"isSuccess"`
	Message   string       `json:"message"`
	Payload   *AuthPayload `json:"data,omitempty"`
	ErrorCode string       `json:"errorCode,omitempty"`
}
