package order

import (
	"context"
	"net/http"
	"strings"

	"ProductCatalog/pkg/kit"
)

type ctxKey string

const userKey ctxKey = "user"

type User struct {
	ID   string
	Role string
}

func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey).(User)
	return u, ok
}

// RequireUserHeaders trusts the identity headers set by the gateway after it
// has verified the caller's token.
func RequireUserHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-User-Id"))
		if id == "" {
			kit.WriteError(w, r, http.StatusUnauthorized, "missing user", nil)
			return
		}

		u := User{ID: id, Role: strings.TrimSpace(r.Header.Get("X-User-Role"))}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}
