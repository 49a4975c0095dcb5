// Package routes declares the application route surface and resolves navigations against it.
package routes

import (
	"path"
	"strings"

	domainauth "github.com/target/clinic-session/internal/domain/auth"
	"github.com/target/clinic-session/internal/guard"
	"github.com/target/clinic-session/internal/redirect"
)

const defaultChild = "dashboard"

// Subtree is a role-partitioned route prefix such as /admin.
type Subtree struct {
	Segment  string
	Roles    domainauth.RoleSet
	Children []string
}

// Guards returns the ordered guards protecting the subtree.
func (s Subtree) Guards() []guard.Guard {
	return guard.Protect(s.Roles...)
}

func (s Subtree) hasChild(name string) bool {
	for _, c := range s.Children {
		if c == name {
			return true
		}
	}
	return false
}

// Table is the static route surface.
type Table struct {
	subtrees map[string]Subtree
	order    []string
}

// NewTable builds a table from subtrees. Later duplicates replace earlier ones.
func NewTable(subtrees ...Subtree) *Table {
	t := &Table{subtrees: make(map[string]Subtree, len(subtrees))}
	for _, s := range subtrees {
		if _, dup := t.subtrees[s.Segment]; !dup {
			t.order = append(t.order, s.Segment)
		}
		t.subtrees[s.Segment] = s
	}
	return t
}

// DefaultTable returns the scheduling application's route surface.
func DefaultTable() *Table {
	return NewTable(
		Subtree{
			Segment:  "admin",
			Roles:    domainauth.NewRoleSet(domainauth.RoleAdmin),
			Children: []string{"dashboard", "settings", "system", "users"},
		},
		Subtree{
			Segment:  "patient",
			Roles:    domainauth.NewRoleSet(domainauth.RolePatient),
			Children: []string{"dashboard", "appointments", "request-appointment", "history", "profile"},
		},
		Subtree{
			Segment:  "professional",
			Roles:    domainauth.NewRoleSet(domainauth.RoleProfessional),
			Children: []string{"dashboard", "schedule", "patients", "availability", "profile"},
		},
		Subtree{
			Segment:  "manager",
			Roles:    domainauth.NewRoleSet(domainauth.RoleScheduleManager),
			Children: []string{"dashboard", "appointments", "professionals", "patients", "schedules", "reports"},
		},
	)
}

// Subtrees returns the protected subtrees in declaration order.
func (t *Table) Subtrees() []Subtree {
	out := make([]Subtree, 0, len(t.order))
	for _, seg := range t.order {
		out = append(out, t.subtrees[seg])
	}
	return out
}

type matchKind int

const (
	matchRedirect matchKind = iota
	matchPublic
	matchProtected
)

type match struct {
	kind    matchKind
	target  string
	subtree Subtree
}

// Normalize strips query and fragment and cleans the path.
func Normalize(p string) string {
	p, _, _ = strings.Cut(p, "#")
	p, _, _ = strings.Cut(p, "?")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func (t *Table) match(p string) match {
	switch p {
	case "/", "/auth":
		return match{kind: matchRedirect, target: redirect.AnonymousEntry}
	case redirect.AnonymousEntry, redirect.Unauthorized:
		return match{kind: matchPublic, target: p}
	}

	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	sub, ok := t.subtrees[segments[0]]
	if !ok {
		return match{kind: matchRedirect, target: redirect.AnonymousEntry}
	}
	switch {
	case len(segments) == 1:
		return match{kind: matchRedirect, target: "/" + sub.Segment + "/" + defaultChild}
	case len(segments) == 2 && sub.hasChild(segments[1]):
		return match{kind: matchProtected, target: p, subtree: sub}
	default:
		return match{kind: matchRedirect, target: redirect.AnonymousEntry}
	}
}
