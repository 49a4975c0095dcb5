// Package redirect maps identities to their landing routes and denied navigations to fallbacks.
package redirect

import (
	domainauth "github.com/target/clinic-session/internal/domain/auth"
)

const (
	// AnonymousEntry is the public login route every unauthenticated actor lands on.
	AnonymousEntry = "/auth/login"
	// Unauthorized is the public terminal page for authenticated actors without access.
	Unauthorized = "/unauthorized"
)

var landingRoutes = map[domainauth.Role]string{
	domainauth.RoleAdmin:           "/admin/dashboard",
	domainauth.RolePatient:         "/patient/dashboard",
	domainauth.RoleProfessional:    "/professional/dashboard",
	domainauth.RoleScheduleManager: "/manager/dashboard",
}

// LandingRouteForRole returns the canonical landing route for role.
// Roles outside the closed set map to the unauthorized page.
func LandingRouteForRole(role domainauth.Role) string {
	if route, ok := landingRoutes[role]; ok {
		return route
	}
	return Unauthorized
}

// LandingRouteFor returns where identity goes after login.
// A nil identity goes to the anonymous entry point.
func LandingRouteFor(identity *domainauth.Identity) string {
	if identity == nil {
		return AnonymousEntry
	}
	return LandingRouteForRole(identity.Role)
}
