package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"coursequiz/models"
	"coursequiz/services"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const claimsKey contextKey = "claims"

type TokenParser interface {
	ParseToken(token string) (*services.Claims, error)
}

// Authenticator guards routes with bearer tokens.
type Authenticator struct {
	tokens TokenParser
}

func NewAuthenticator(tokens TokenParser) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// RequireUser rejects requests without a valid bearer token and stores the
// token claims in the request context.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeErrorResponse(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		claims, err := a.tokens.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return a.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims := claimsFrom(r.Context()); claims == nil || claims.Role != models.RoleAdmin {
			writeErrorResponse(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func claimsFrom(ctx context.Context) *services.Claims {
	claims, _ := ctx.Value(claimsKey).(*services.Claims)
	return claims
}

func userIDFrom(r *http.Request) string {
	if claims := claimsFrom(r.Context()); claims != nil {
		return claims.Subject
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs one line per request with its status and latency.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("Handled request")
	})
}
