package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mojcaostir/calda-challenge/internal/identity"
	"github.com/mojcaostir/calda-challenge/internal/orders"
)

// TokenResolver turns a bearer credential into a user id.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

type ctxKey int

const userIDKey ctxKey = iota

// UserID returns the authenticated user id set by BearerAuth.
func UserID(ctx context.Context) string {
	uid, _ := ctx.Value(userIDKey).(string)
	return uid
}

func BearerAuth(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeError(w, statusFor(orders.ErrUnauthorized), orders.Reason(orders.ErrUnauthorized), "missing bearer token")
				return
			}
			uid, err := resolver.Resolve(r.Context(), token)
			if errors.Is(err, identity.ErrInvalidToken) {
				writeError(w, statusFor(orders.ErrUnauthorized), orders.Reason(orders.ErrUnauthorized), "invalid or expired token")
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal", "token lookup failed")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, uid)))
		})
	}
}
