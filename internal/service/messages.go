package service

import (
	"strings"

	apperrors "github.com/target/clinic-session/internal/errors"
)

// LoginMessage returns the text a login screen shows for err, or "" for nil.
func LoginMessage(err error) string {
	if err == nil {
		return ""
	}
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeUnauthorized:
		return "Invalid credentials"
	case apperrors.ErrCodeUnreachable:
		return "Connection error. Check your network."
	case apperrors.ErrCodeServerRejected:
		if msg := strings.TrimSpace(apperrors.GetMessage(err)); msg != "" {
			return msg
		}
		return "Login failed"
	case apperrors.ErrCodeConflict:
		return "A login is already in progress"
	default:
		return "Server error"
	}
}
