package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	authService "github.com/zhouzirui/z-messenger/internal/service/auth"
	"github.com/zhouzirui/z-messenger/pkg/utils"
)

type contextKey struct{}

// TokenParser resolves a bearer token to a user id.
type TokenParser interface {
	ParseToken(token string) (int64, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's user id in the request context. Websocket upgrades may pass the
// token as a `token` query parameter since browsers cannot set headers there.
func Authenticate(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" && strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				utils.RespondError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			userID, err := parser.ParseToken(token)
			if err != nil {
				detail := "invalid token"
				if errors.Is(err, authService.ErrTokenExpired) {
					detail = "token expired"
				}
				w.Header().Set("WWW-Authenticate", "Bearer")
				utils.RespondError(w, http.StatusUnauthorized, detail)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// BearerToken extracts the token from an `Authorization: Bearer` header.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the authenticated user id stored by Authenticate.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(contextKey{}).(int64)
	return id, ok
}
