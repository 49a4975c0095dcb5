package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/target/clinic-session/internal/errors"
	"github.com/target/clinic-session/internal/guard"
	"github.com/target/clinic-session/internal/routes"
)

// Logging returns a middleware that logs one line per request. Probe and
// scrape endpoints log at debug.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				level = slog.LevelDebug
			}
			logger.LogAttrs(r.Context(), level, "http",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// Recover returns a middleware that turns a handler panic into a 500 JSON error.
// http.ErrAbortHandler is re-raised so the server aborts the connection.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "panic",
					slog.Any("error", rec),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())))
				WriteError(w, ErrorParams{
					Code:    http.StatusInternalServerError,
					ErrCode: string(apperrors.ErrCodeInternal),
					Message: "internal server error",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAccess returns a middleware that evaluates guards against the session
// before an API handler runs. A denial is answered with 401 or 403 JSON.
func RequireAccess(
	reader guard.SessionReader,
	metrics routes.DecisionRecorder,
	guards ...guard.Guard,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := guard.Evaluate(reader, guards...)
			if metrics != nil {
				metrics.RecordGuardDecision(d.Outcome.String())
			}
			switch d.Outcome {
			case guard.Allow:
				next.ServeHTTP(w, r)
			case guard.DenyRole:
				WriteJSON(w, http.StatusForbidden, deniedBody{Error: "authorization", Redirect: d.Redirect})
			default:
				WriteJSON(w, http.StatusUnauthorized, deniedBody{Error: "authentication", Redirect: d.Redirect})
			}
		})
	}
}

type deniedBody struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}
