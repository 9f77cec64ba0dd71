package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"menueditor-backend/pkg/auth"
	apperrors "menueditor-backend/pkg/errors"
)

// TokenCookie is read when no Authorization header is sent, so the editor page
// works from a browser session.
const TokenCookie = "menueditor_token"

// DevelopmentPrincipal is attached to every request when authentication is
// disabled.
var DevelopmentPrincipal = &auth.Principal{UserID: "development", Name: "Development", Permissions: []string{auth.Wildcard}}

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Authenticate attaches the caller's principal to the request context. With a
// nil validator every request runs as DevelopmentPrincipal.
func Authenticate(validator TokenValidator, logger *zap.Logger, errs *apperrors.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), DevelopmentPrincipal)))
				return
			}

			token := r.Header.Get("Authorization")
			if token == "" {
				if c, err := r.Cookie(TokenCookie); err == nil {
					token = c.Value
				}
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Debug("Rejected token", zap.Error(err), zap.String("request_id", GetRequestID(r.Context())))
				errs.Handle(w, r, apperrors.NewUnauthorizedError(unauthorizedMessage(err)))
				return
			}

			ctx := auth.WithPrincipal(r.Context(), auth.PrincipalFromClaims(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "Missing authorization token"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "Invalid token signature"
	default:
		return "Invalid token"
	}
}

// RequirePermission rejects callers whose principal lacks permission.
func RequirePermission(permission string, errs *apperrors.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.PrincipalFromContext(r.Context()).IsAllowed(permission) {
				errs.Handle(w, r, apperrors.NewPermissionDenied(permission))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
