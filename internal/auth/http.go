// ABOUTME: HTTP middleware for JWT authentication on API endpoints
// ABOUTME: Extracts JWT from Authorization header and adds the operator to context

package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

// QueryTokenParam is the query parameter accepted in place of the Authorization header.
const QueryTokenParam = "access_token"

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

func writeAuthError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="copilot-console"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// HTTPAuthMiddleware rejects requests without a valid bearer token and adds
// the token's operator to the request context. A nil verifier disables
// auth: every request passes through as Anonymous.
func HTTPAuthMiddleware(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			// EventSource cannot set headers, so streams may pass the token in the query.
			if errMsg != "" && r.URL.Query().Get(QueryTokenParam) != "" {
				token, errMsg = r.URL.Query().Get(QueryTokenParam), ""
			}
			if errMsg != "" {
				writeAuthError(w, errMsg)
				return
			}

			operator, err := verifier.Verify(token)
			if err != nil {
				logger.Debug("rejected api token", "path", r.URL.Path, "error", err)
				writeAuthError(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), operator)))
		})
	}
}
