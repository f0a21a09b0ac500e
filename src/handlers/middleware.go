package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/opencaptable/captable/backend/src/logger"
	"github.com/opencaptable/captable/backend/src/security"
	"github.com/opencaptable/captable/backend/src/utils"
)

type contextKey string

const issuerIDContextKey contextKey = "issuerID"

// AuthMiddleware validates the bearer token and stores the authenticated
// issuer id in the request context.
func AuthMiddleware(authService *security.AuthService, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			logger.L.Debug("AuthMiddleware: Authorization header missing", "path", r.URL.Path)
			utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		tokenString := ""
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		} else {
			tokenString = authHeader
		}

		if tokenString == "" {
			logger.L.Debug("AuthMiddleware: Token string empty", "path", r.URL.Path)
			utils.SendJSONError(w, "Malformed token", http.StatusUnauthorized)
			return
		}

		issuerID, err := authService.ValidateToken(tokenString)
		if err != nil {
			logger.L.Warn("AuthMiddleware: Token validation failed", "path", r.URL.Path, "error", err)
			utils.SendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), issuerIDContextKey, issuerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetIssuerIDFromContext returns the issuer id placed by AuthMiddleware.
func GetIssuerIDFromContext(ctx context.Context) (string, bool) {
	issuerID, ok := ctx.Value(issuerIDContextKey).(string)
	return issuerID, ok && issuerID != ""
}
