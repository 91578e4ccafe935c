package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/artifactlink/artifactlink/pkg/buildserver"
)

type contextKey string

const userContextKey contextKey = "user"

// token pulls the caller's auth token from the Authorization header, the
// X-Auth-Token header, or a token query param, in that order.
func (a *API) token(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if t := r.Header.Get("X-Auth-Token"); t != "" {
		return t
	}
	return r.URL.Query().Get("token")
}

// AuthMiddleware rejects requests whose token the build server does not
// recognize. Anonymous link generation is never allowed, so there is no
// pass-through for missing tokens.
func (a *API) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := a.buildServer.UserForToken(a.token(r))
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Unauthorized"))
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) AuthGetUser(ctx context.Context) (buildserver.User, bool) {
	user, ok := ctx.Value(userContextKey).(buildserver.User)
	return user, ok
}
