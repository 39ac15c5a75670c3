package router

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bugtrackerpro/service-core/internal/apperror"
	"github.com/bugtrackerpro/service-core/internal/bug"
	"github.com/bugtrackerpro/service-core/internal/dashboard"
	"github.com/bugtrackerpro/service-core/internal/user"
	"github.com/bugtrackerpro/service-core/internal/web"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware resolves the Bearer token into the acting user and
// stores it on the request context. Requests without a valid token are
// rejected before the handler runs.
func AuthMiddleware(users *user.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				web.WriteError(w, apperror.Auth("missing bearer token"))
				return
			}
			token := strings.TrimSpace(authz[len("bearer "):])
			actor, err := users.CurrentUser(r.Context(), token)
			if err != nil {
				web.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(web.WithActor(r.Context(), *actor)))
		})
	}
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
// This keeps the project stdlib-only while keeping wiring simple and testable.
func RegisterRoutes(logger *zap.SugaredLogger, users *user.Service, bugs *bug.Service, dash *dashboard.Service) http.Handler {
	mux := http.NewServeMux()

	userHandler := user.NewHandler(users, logger)
	bugHandler := bug.NewHandler(bugs, logger)
	dashHandler := dashboard.NewHandler(dash, logger)

	requireAuth := AuthMiddleware(users)
	protected := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }

	// health
	mux.HandleFunc("GET /bugtracker-api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// auth
	mux.HandleFunc("POST /bugtracker-api/register", userHandler.Register)
	mux.HandleFunc("POST /bugtracker-api/login", userHandler.Login)
	mux.Handle("POST /bugtracker-api/logout", protected(userHandler.Logout))
	mux.Handle("GET /bugtracker-api/me", protected(userHandler.Me))

	// users
	mux.Handle("GET /bugtracker-api/users", protected(userHandler.List))
	mux.Handle("GET /bugtracker-api/developers", protected(userHandler.ListDevelopers))
	mux.Handle("DELETE /bugtracker-api/users/{id}", protected(userHandler.Delete))

	// bugs
	mux.Handle("GET /bugtracker-api/bugs", protected(bugHandler.List))
	mux.Handle("POST /bugtracker-api/bugs", protected(bugHandler.Create))
	mux.Handle("GET /bugtracker-api/bugs/{id}", protected(bugHandler.Get))
	mux.Handle("PUT /bugtracker-api/bugs/{id}", protected(bugHandler.Update))
	mux.Handle("PATCH /bugtracker-api/bugs/{id}/status", protected(bugHandler.SetStatus))
	mux.Handle("PATCH /bugtracker-api/bugs/{id}/assign", protected(bugHandler.Assign))
	mux.Handle("DELETE /bugtracker-api/bugs/{id}", protected(bugHandler.Delete))

	// dashboard
	mux.Handle("GET /bugtracker-api/dashboard/stats", protected(dashHandler.Stats))
	mux.Handle("GET /bugtracker-api/dashboard/workload", protected(dashHandler.Workload))
	mux.Handle("GET /bugtracker-api/dashboard/activity", protected(dashHandler.Activity))
	mux.Handle("GET /bugtracker-api/dashboard/config", protected(dashHandler.Config))

	// wrap with security headers middleware then logging middleware
	handler := LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux))
	return handler
}
