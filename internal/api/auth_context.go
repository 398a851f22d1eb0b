package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/listenupapp/bulkmeta/internal/domain"
	domainerrors "github.com/listenupapp/bulkmeta/internal/errors"
	"github.com/listenupapp/bulkmeta/internal/service"
)

type userKey struct{}

// authMiddleware resolves a Bearer token to a user and stores it in the
// context. Requests without a valid token continue anonymously; handlers
// decide whether that is allowed.
func authMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := auth.VerifyAccessToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// userFromContext returns the authenticated user, or nil.
func userFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userKey{}).(*domain.User)
	return u
}

// RequireUser returns the authenticated user or a 401.
func RequireUser(ctx context.Context) (*domain.User, error) {
	user := userFromContext(ctx)
	if user == nil {
		return nil, domainerrors.Unauthorized("Authentication required")
	}
	return user, nil
}

// RequireAdmin returns the authenticated admin, a 401 or a 403.
func RequireAdmin(ctx context.Context) (*domain.User, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, domainerrors.PermissionDenied("Admin access required")
	}
	return user, nil
}
