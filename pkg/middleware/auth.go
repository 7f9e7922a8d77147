package middleware

import (
	"context"
	"errors"
	"net/http"

	"coursehub/pkg/access"
	"coursehub/pkg/apperr"
	"coursehub/pkg/logging"
	"coursehub/pkg/models"
	"coursehub/pkg/respond"
	"coursehub/pkg/sessions"
)

type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Session, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id uint, withPurchases bool) (*models.User, error)
}

type userKey struct{}

type Auth struct {
	sessions SessionResolver
	users    UserFinder
}

func NewAuth(sessions SessionResolver, users UserFinder) *Auth {
	return &Auth{sessions: sessions, users: users}
}

// Middleware loads the caller from the session cookie and rejects the
// request when there is none.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessions.CookieName)
		if err != nil {
			respond.Error(w, r, apperr.Unauthorized("not authenticated"))
			return
		}
		sess, err := a.sessions.Resolve(r.Context(), cookie.Value)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		user, err := a.users.FindByID(r.Context(), sess.UserID, false)
		if errors.Is(err, apperr.ErrNotFound) {
			respond.Error(w, r, apperr.Unauthorized("user not found"))
			return
		}
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, user)
		logger := logging.FromContext(ctx).With("user_id", user.ID)
		ctx = logging.WithLogger(ctx, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole lets the request through only for the listed roles. It must
// run after Middleware.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUserFromContext(r)
			if !ok {
				respond.Error(w, r, apperr.Unauthorized("not authenticated"))
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respond.Error(w, r, apperr.Forbidden("access denied"))
		})
	}
}

func GetUserFromContext(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(userKey{}).(*models.User)
	return user, ok && user != nil
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// Principal returns the access principal of the authenticated caller.
func Principal(r *http.Request) (access.Principal, bool) {
	user, ok := GetUserFromContext(r)
	if !ok {
		return access.Principal{}, false
	}
	return access.Principal{UserID: user.ID, Role: user.Role}, true
}
