package routes

import (
	"log/slog"

	"github.com/target/clinic-session/internal/guard"
)

const maxHops = 8

// DecisionRecorder receives one call per guard evaluation. Optional.
type DecisionRecorder interface {
	RecordGuardDecision(outcome string)
}

// Resolution describes where a navigation ends up.
type Resolution struct {
	Requested string
	Target    string
	// Decision is the guard outcome of the protected route the navigation hit,
	// or Allow when no guard denied it.
	Decision guard.Decision
}

// Redirected reports whether the actor lands somewhere other than the request.
func (r Resolution) Redirected() bool { return r.Requested != r.Target }

// NavigatorOptions groups dependencies for Navigator.
type NavigatorOptions struct {
	Table   *Table
	Session guard.SessionReader
	Metrics DecisionRecorder
	Logger  *slog.Logger
}

// Navigator resolves navigation attempts against the route table and the live session.
type Navigator struct {
	table   *Table
	session guard.SessionReader
	metrics DecisionRecorder
	logger  *slog.Logger
}

// NewNavigator constructs a Navigator. Table defaults to DefaultTable.
func NewNavigator(opts NavigatorOptions) *Navigator {
	if opts.Table == nil {
		opts.Table = DefaultTable()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Navigator{
		table:   opts.Table,
		session: opts.Session,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
}

// Navigate follows redirects and guard vetoes from requested until a route is entered.
func (n *Navigator) Navigate(requested string) Resolution {
	res := Resolution{Requested: Normalize(requested), Decision: guard.Decision{Outcome: guard.Allow}}
	p := res.Requested
	denied := false

	for range maxHops {
		m := n.table.match(p)
		switch m.kind {
		case matchRedirect:
			p = m.target
			continue
		case matchPublic:
			res.Target = p
			return res
		case matchProtected:
			d := guard.Evaluate(n.session, m.subtree.Guards()...)
			n.record(d)
			if d.Allowed() {
				res.Target = p
				return res
			}
			if !denied {
				res.Decision = d
				denied = true
			}
			n.logger.Debug("navigation denied", "path", p, "outcome", d.Outcome.String(), "redirect", d.Redirect)
			p = d.Redirect
		}
	}

	// Redirect chains are bounded by the static table; landing here means a misconfigured table.
	n.logger.Warn("navigation exceeded redirect limit", "requested", res.Requested)
	res.Target = p
	return res
}

func (n *Navigator) record(d guard.Decision) {
	if n.metrics != nil {
		n.metrics.RecordGuardDecision(d.Outcome.String())
	}
}
