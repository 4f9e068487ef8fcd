package middleware

import (
	"net/http"
	"strings"

	"github.com/imagedrop/imagedrop/internal/ctxkeys"
	"github.com/imagedrop/imagedrop/internal/handler"
	"github.com/imagedrop/imagedrop/internal/model"
	"github.com/imagedrop/imagedrop/internal/service"
)

// AuthMiddleware resolves the caller's identity and adds the user to the
// request context. Two credentials are accepted: the auth_token session
// cookie (browser) and an Authorization bearer value (CLI and scripts),
// which may be either a session JWT or a personal access token.
// Requests without valid credentials continue unauthenticated; RequireAuth
// decides whether that is fatal.
func AuthMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := bearerUser(r, authService); user != nil {
				ctx := ctxkeys.WithUser(r.Context(), user)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			cookie, err := r.Cookie("auth_token")
			if err != nil {
				// No cookie, continue without auth
				next.ServeHTTP(w, r)
				return
			}

			user := jwtUser(cookie.Value, authService)
			if user == nil {
				// Invalid token, clear cookie and continue
				authService.ClearJWTCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			ctx := ctxkeys.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerUser(r *http.Request, authService *service.AuthService) *model.User {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil
	}
	token = strings.TrimSpace(token)

	// Personal access tokens carry a recognizable prefix; anything else is
	// treated as a session JWT
	if strings.HasPrefix(token, "idp_") {
		user, err := authService.VerifyAccessToken(token)
		if err != nil {
			return nil
		}
		return user
	}

	return jwtUser(token, authService)
}

func jwtUser(token string, authService *service.AuthService) *model.User {
	claims, err := authService.VerifyJWT(token)
	if err != nil {
		return nil
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil
	}

	user, err := authService.UserByID(userID)
	if err != nil {
		return nil
	}

	return user
}

// RequireAuth rejects unauthenticated requests with a JSON 401
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := ctxkeys.User(r.Context())
		if user == nil {
			handler.RespondError(w, http.StatusUnauthorized, handler.KindUnauthorized, "authentication required")
			return
		}

		next.ServeHTTP(w, r)
	}
}
