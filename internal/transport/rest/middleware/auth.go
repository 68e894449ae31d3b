package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/skyminlab/running-game/internal/auth"
)

type contextKey string

const (
	coordinatorIDKey contextKey = "coordinatorID"
	sessionCodeKey   contextKey = "sessionCode"
	participantIDKey contextKey = "participantID"
)

// AuthMiddleware validates identity tokens on protected routes.
type AuthMiddleware struct {
	authSvc *auth.Service
}

// NewAuthMiddleware creates auth middleware.
func NewAuthMiddleware(authSvc *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireCoordinator rejects requests without a valid coordinator token.
func (m *AuthMiddleware) RequireCoordinator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.authSvc.ValidateCoordinatorToken(bearerToken(r))
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), coordinatorIDKey, claims.CoordinatorID)
		ctx = context.WithValue(ctx, sessionCodeKey, claims.SessionCode)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireParticipant rejects requests without a valid participant token.
func (m *AuthMiddleware) RequireParticipant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.authSvc.ValidateParticipantToken(bearerToken(r))
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), participantIDKey, claims.ParticipantID)
		ctx = context.WithValue(ctx, sessionCodeKey, claims.SessionCode)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAny accepts either token kind; used for read-only endpoints both
// roles consume.
func (m *AuthMiddleware) RequireAny(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if claims, err := m.authSvc.ValidateCoordinatorToken(token); err == nil {
			ctx := context.WithValue(r.Context(), coordinatorIDKey, claims.CoordinatorID)
			ctx = context.WithValue(ctx, sessionCodeKey, claims.SessionCode)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		if claims, err := m.authSvc.ValidateParticipantToken(token); err == nil {
			ctx := context.WithValue(r.Context(), participantIDKey, claims.ParticipantID)
			ctx = context.WithValue(ctx, sessionCodeKey, claims.SessionCode)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// GetCoordinatorID returns the authenticated coordinator id, "" if absent.
func GetCoordinatorID(ctx context.Context) string {
	v, _ := ctx.Value(coordinatorIDKey).(string)
	return v
}

// GetParticipantID returns the authenticated participant id, "" if absent.
func GetParticipantID(ctx context.Context) string {
	v, _ := ctx.Value(participantIDKey).(string)
	return v
}

// GetSessionCode returns the session code the token is scoped to.
func GetSessionCode(ctx context.Context) string {
	v, _ := ctx.Value(sessionCodeKey).(string)
	return v
}
