package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/taskify/taskify/internal/auth"
)

type contextKey string

const claimsKey contextKey = "session-claims"

// UserClaims returns the authenticated session claims stored on the
// request context by authMiddleware.
func UserClaims(ctx context.Context) (*auth.SessionClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.SessionClaims)
	return claims, ok
}

func WithUserClaims(ctx context.Context, claims *auth.SessionClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func (s *TaskifyApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Printf("panic: %v", panicError)
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the session token from the Authorization header,
// falling back to the token query parameter for websocket handshakes
// (browsers cannot set headers on websocket connections).
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	return r.URL.Query().Get("token")
}

func (s *TaskifyApp) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			errResp := NewApiError(http.StatusUnauthorized, "access denied, no token provided")
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		claims, err := s.issuer.Validate(token)
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, auth.ErrTokenExpired) {
				errResp = NewApiError(http.StatusUnauthorized, "token expired, please login again")
			} else {
				errResp = NewApiError(http.StatusUnauthorized, "invalid token")
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		ctx := WithUserClaims(r.Context(), claims)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}
