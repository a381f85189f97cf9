package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-sql-shop/internal/auth"
	"github.com/safar/go-sql-shop/internal/database"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (a *api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		a.log.InfoContext(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", sw.status),
			slog.Duration("duration", time.Since(start)))
	})
}

// requireAuth rejects requests without a valid bearer token and stores the
// verified claims in the request context.
func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			respondError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			respondError(w, http.StatusUnauthorized, "token is missing")
			return
		}

		claims, err := a.issuer.Verify(strings.TrimSpace(token))
		if err != nil {
			a.respondErr(w, r, err)
			return
		}

		next(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	}
}

// requireSelf allows the request only when the bearer token belongs to id.
func requireSelf(r *http.Request, id uuid.UUID) error {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		return fmt.Errorf("%w: no token claims", database.ErrUnauthorized)
	}

	caller, err := claims.UserID()
	if err != nil {
		return fmt.Errorf("%w: invalid subject", database.ErrUnauthorized)
	}
	if caller != id {
		return fmt.Errorf("%w: users may only access their own account", database.ErrForbidden)
	}
	return nil
}
