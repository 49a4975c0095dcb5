// Package mocks provides mock implementations for testing the clinic session packages.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// Hand-written doubles live in the auth subpackage next to the generated ones.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	api := auth.NewMockAuthAPI(ctrl)
//	api.EXPECT().ValidateToken(gomock.Any(), "tok").Return(false, nil)
package mocks

// Generate mock for AuthAPI interface from internal/ports package.
// This creates MockAuthAPI with methods for all AuthAPI interface methods:
// Login, ExternalLogin, ValidateToken
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=auth -destination=auth/auth_api_mock.go github.com/target/clinic-session/internal/ports AuthAPI
