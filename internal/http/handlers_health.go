package httpx

import (
	"net/http"
)

type healthBody struct {
	Status  string `json:"status"`
	Session bool   `json:"session"`
}

// healthHandler reports readiness. The host is not ready until the persisted
// session has been restored.
func (h *SessionHandlers) healthHandler(w http.ResponseWriter, r *http.Request) {
	code, body := http.StatusOK, healthBody{Status: "ok"}
	switch {
	case h.Store == nil:
	case !h.Store.Restored():
		code, body.Status = http.StatusServiceUnavailable, "restoring"
	default:
		body.Session = h.Store.Current() != nil
	}

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		return
	}
	WriteJSON(w, code, body)
}
