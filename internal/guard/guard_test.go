package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/target/clinic-session/internal/domain/auth"
	"github.com/target/clinic-session/internal/redirect"
)

type fakeSession struct {
	live     bool
	identity *domainauth.Identity
}

func (f fakeSession) IsLive() bool                   { return f.live }
func (f fakeSession) Current() *domainauth.Identity { return f.identity }

func liveAs(role domainauth.Role) fakeSession {
	return fakeSession{live: true, identity: &domainauth.Identity{UserID: "u1", Role: role}}
}

func TestRequireSession(t *testing.T) {
	tests := []struct {
		name    string
		session fakeSession
		want    Decision
	}{
		{"no session", fakeSession{}, Decision{Outcome: DenyAuth, Redirect: redirect.AnonymousEntry}},
		{"expired session", fakeSession{live: false, identity: nil}, Decision{Outcome: DenyAuth, Redirect: redirect.AnonymousEntry}},
		{"live session", liveAs(domainauth.RolePatient), Decision{Outcome: Allow}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequireSession().Check(tt.session))
		})
	}
}

func TestRequireRole(t *testing.T) {
	adminOnly := RequireRole(domainauth.RoleAdmin)

	assert.Equal(t, Decision{Outcome: DenyRole, Redirect: redirect.Unauthorized}, adminOnly.Check(liveAs(domainauth.RolePatient)))
	assert.True(t, adminOnly.Check(liveAs(domainauth.RoleAdmin)).Allowed())
	assert.Equal(t, DenyRole, adminOnly.Check(fakeSession{}).Outcome)
	assert.Equal(t, DenyRole, adminOnly.Check(liveAs("admin")).Outcome, "role matching is exact")

	staff := RequireRole(domainauth.RoleProfessional, domainauth.RoleScheduleManager)
	assert.True(t, staff.Check(liveAs(domainauth.RoleScheduleManager)).Allowed())
	assert.False(t, staff.Check(liveAs(domainauth.RoleAdmin)).Allowed())
}

func TestEvaluate_SessionCheckRunsFirst(t *testing.T) {
	roleChecks := 0
	countingRole := Func(func(r SessionReader) Decision {
		roleChecks++
		return RequireRole(domainauth.RoleAdmin).Check(r)
	})

	d := Evaluate(fakeSession{}, RequireSession(), countingRole)
	assert.Equal(t, DenyAuth, d.Outcome)
	assert.Equal(t, redirect.AnonymousEntry, d.Redirect)
	assert.Zero(t, roleChecks, "role check must not run without a session")

	d = Evaluate(liveAs(domainauth.RoleAdmin), RequireSession(), countingRole)
	assert.True(t, d.Allowed())
	assert.Equal(t, 1, roleChecks)
}

func TestProtect_AdminSubtreeWithScheduleManager(t *testing.T) {
	d := Evaluate(liveAs(domainauth.RoleScheduleManager), Protect(domainauth.RoleAdmin)...)
	assert.Equal(t, DenyRole, d.Outcome)
	assert.Equal(t, redirect.Unauthorized, d.Redirect)
}

func TestEvaluate_NoGuardsAllows(t *testing.T) {
	assert.True(t, Evaluate(fakeSession{}).Allowed())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny_auth", DenyAuth.String())
	assert.Equal(t, "deny_role", DenyRole.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
