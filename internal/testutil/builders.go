package testutil

import (
	"time"

	domainauth "github.com/target/clinic-session/internal/domain/auth"
)

// PayloadBuilder provides a fluent interface for building login payloads for testing.
type PayloadBuilder struct {
	p   domainauth.AuthPayload
	now func() time.Time
	ttl time.Duration
}

// NewPayload creates a PayloadBuilder for a Patient whose token lives for an hour.
func NewPayload() *PayloadBuilder {
	return &PayloadBuilder{
		p: domainauth.AuthPayload{
			UserID:   "u1",
			Email:    "demo@site.test",
			FullName: "Demo User",
			Role:     string(domainauth.RolePatient),
			Token:    "tok-1",
		},
		now: time.Now,
		ttl: time.Hour,
	}
}

// WithUser sets the user id and email.
func (b *PayloadBuilder) WithUser(id, email string) *PayloadBuilder {
	b.p.UserID = id
	b.p.Email = email
	return b
}

// WithRole sets the role.
func (b *PayloadBuilder) WithRole(role domainauth.Role) *PayloadBuilder {
	b.p.Role = string(role)
	return b
}

// WithRawRole sets a role string that need not be recognized.
func (b *PayloadBuilder) WithRawRole(role string) *PayloadBuilder {
	b.p.Role = role
	return b
}

// WithToken sets the token.
func (b *PayloadBuilder) WithToken(token string) *PayloadBuilder {
	b.p.Token = token
	return b
}

// ExpiresIn sets the token lifetime relative to the builder clock.
func (b *PayloadBuilder) ExpiresIn(d time.Duration) *PayloadBuilder {
	b.ttl = d
	return b
}

// WithClock sets the clock ExpiresIn is measured against.
func (b *PayloadBuilder) WithClock(now func() time.Time) *PayloadBuilder {
	b.now = now
	return b
}

// WithRawExpiry sets the expiry text verbatim.
func (b *PayloadBuilder) WithRawExpiry(s string) *PayloadBuilder {
	b.ttl = 0
	b.p.ExpiresAt = s
	return b
}

// Build returns the payload.
func (b *PayloadBuilder) Build() *domainauth.AuthPayload {
	p := b.p
	if b.ttl != 0 {
		p.ExpiresAt = domainauth.FormatExpiry(b.now().Add(b.ttl))
	}
	return &p
}

// Envelope wraps the payload in a success envelope.
func (b *PayloadBuilder) Envelope() *domainauth.Envelope {
	return SuccessEnvelope(b.Build())
}

// SuccessEnvelope returns a success envelope carrying p.
func SuccessEnvelope(p *domainauth.AuthPayload) *domainauth.Envelope {
	return &domainauth.Envelope{Succeeded: true, Message: "Login successful", Payload: p}
}

// RejectedEnvelope returns a failed envelope with msg.
func RejectedEnvelope(msg string) *domainauth.Envelope {
	return &domainauth.Envelope{Message: msg, ErrorCode: "REJECTED"}
}
