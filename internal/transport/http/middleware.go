package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/polieventos/ticketing/internal/auth"
	"github.com/polieventos/ticketing/internal/domain"
)

const requestIDHeader = "X-Request-ID"

type loggerKey struct{}

// LoggerFrom returns the request-scoped logger installed by RequestLogger.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// RequestLogger assigns a request id, exposes a request-scoped logger to
// handlers and logs method, path, status and latency once the request ends.
func RequestLogger(next http.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		reqLogger := logger.With("request_id", reqID)
		ctx := context.WithValue(r.Context(), loggerKey{}, reqLogger)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		reqLogger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// TokenVerifier turns a bearer token into a verified principal.
type TokenVerifier interface {
	Verify(token string) (domain.Principal, error)
}

// Authenticate rejects requests without a valid bearer token and attaches
// the caller's principal to the request context.
func Authenticate(verifier TokenVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization token missing")
			return
		}
		p, err := verifier.Verify(token)
		if err != nil {
			LoggerFrom(r.Context()).Warn("rejected bearer token", "err", err)
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

// RequireOrganizer admits admins and organizers with an active
// subscription. It must run after Authenticate.
func RequireOrganizer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFrom(r.Context())
		if !ok || !p.CanPublish() {
			writeError(w, http.StatusForbidden, codeForbidden, domain.ErrForbidden.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// principal returns the authenticated caller, or the zero principal on
// public routes.
func principal(r *http.Request) domain.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

// methods dispatches on the request method and answers 405 otherwise.
type methods map[string]http.Handler

func (m methods) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h, ok := m[r.Method]
	if !ok {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	h.ServeHTTP(w, r)
}
