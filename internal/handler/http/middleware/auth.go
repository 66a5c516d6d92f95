package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/employee-directory/internal/domain/auth"
	"github.com/cmlabs-hris/employee-directory/internal/handler/http/response"
	"github.com/cmlabs-hris/employee-directory/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// AuthRequired admits requests carrying a verified, unrevoked access token.
// It runs after jwtauth.Verifier, which places the token on the context.
func AuthRequired(jwtService jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			tokenType, ok := claims["type"].(string)
			if !ok || tokenType != jwt.TypeAccess {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			if jwtService.IsTokenRevoked(token.JwtID()) {
				response.HandleError(w, auth.ErrTokenRevoked)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}
