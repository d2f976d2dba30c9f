// Package middleware provides HTTP middleware for the fleet dashboard.
package middleware

import (
	"context"
	"net/http"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/httpserver/handlers"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// SubjectContextKey is the context key for the request's subject id.
const SubjectContextKey contextKey = "subject"

// Auth extracts the calling subject from X-Chimera-Subject (falling back
// to "anonymous"), authorizes it against the active policy's VIEW
// permission, and stores the subject id on the request context. Every
// dashboard endpoint is read-only, so VIEW is the only permission the
// HTTP surface itself enforces; write actions run through the CLI or
// MCP surface, which check their own operation-specific permission.
func Auth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := r.Header.Get("X-Chimera-Subject")
			if subject == "" {
				subject = r.URL.Query().Get("subject")
			}
			if subject == "" {
				subject = "anonymous"
			}

			ctx := handlers.GetContext()
			if ctx != nil && ctx.Policy.Authorize(subject, domain.PermView) != domain.Allow {
				http.Error(w, "Forbidden: subject lacks VIEW permission", http.StatusForbidden)
				return
			}

			reqCtx := context.WithValue(r.Context(), SubjectContextKey, subject)
			next.ServeHTTP(w, r.WithContext(reqCtx))
		})
	}
}

// Subject retrieves the authenticated subject id from the request context.
func Subject(r *http.Request) string {
	subject, ok := r.Context().Value(SubjectContextKey).(string)
	if !ok {
		return "anonymous"
	}
	return subject
}
