// Package guard evaluates access decisions before a navigation enters a protected route.
package guard

import (
	domainauth "github.com/target/clinic-session/internal/domain/auth"
	"github.com/target/clinic-session/internal/redirect"
)

// Outcome is the terminal state of a guard evaluation.
type Outcome int

const (
	// Allow lets the navigation proceed.
	Allow Outcome = iota
	// DenyAuth blocks an actor without a live session.
	DenyAuth
	// DenyRole blocks a live actor whose role is not permitted.
	DenyRole
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case DenyAuth:
		return "deny_auth"
	case DenyRole:
		return "deny_role"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating guards. Redirect is empty when allowed.
type Decision struct {
	Outcome  Outcome
	Redirect string
}

// Allowed reports whether the navigation may proceed.
func (d Decision) Allowed() bool { return d.Outcome == Allow }

// SessionReader is the read side of the session store consulted by guards.
type SessionReader interface {
	IsLive() bool
	Current() *domainauth.Identity
}

// Guard decides whether a navigation may proceed.
type Guard interface {
	Check(r SessionReader) Decision
}

// Func adapts a function to Guard.
type Func func(r SessionReader) Decision

// Check calls f(r).
func (f Func) Check(r SessionReader) Decision { return f(r) }

var (
	allow        = Decision{Outcome: Allow}
	denyAuth     = Decision{Outcome: DenyAuth, Redirect: redirect.AnonymousEntry}
	denyRole     = Decision{Outcome: DenyRole, Redirect: redirect.Unauthorized}
	sessionGuard = Func(func(r SessionReader) Decision {
		if r.IsLive() {
			return allow
		}
		return denyAuth
	})
)

// RequireSession allows only when a live session exists.
func RequireSession() Guard { return sessionGuard }

// RequireRole allows only a live identity whose role is in roles.
func RequireRole(roles ...domainauth.Role) Guard {
	allowed := domainauth.NewRoleSet(roles...)
	return Func(func(r SessionReader) Decision {
		if id := r.Current(); id != nil && allowed.Contains(id.Role) {
			return allow
		}
		return denyRole
	})
}

// Protect returns the ordered guard pair for a role-restricted subtree:
// the session check first, then the role check.
func Protect(roles ...domainauth.Role) []Guard {
	return []Guard{RequireSession(), RequireRole(roles...)}
}

// Evaluate runs guards in order and returns the first denial, or Allow.
func Evaluate(r SessionReader, guards ...Guard) Decision {
	for _, g := range guards {
		if d := g.Check(r); !d.Allowed() {
			return d
		}
	}
	return allow
}
