package gate

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fdg312/stay-hub/internal/session"
	"github.com/fdg312/stay-hub/internal/userctx"
)

// TokenVerifier validates a session token and returns its subject and role.
type TokenVerifier interface {
	VerifyJWT(token string) (string, session.Role, error)
}

// Middleware protects route groups with the same verdicts the gate produces
// for screens: missing/invalid token routes to login, wrong role to the
// forbidden page.
type Middleware struct {
	verifier      TokenVerifier
	loginPath     string
	forbiddenPath string
}

func NewMiddleware(verifier TokenVerifier, loginPath, forbiddenPath string) *Middleware {
	return &Middleware{
		verifier:      verifier,
		loginPath:     loginPath,
		forbiddenPath: forbiddenPath,
	}
}

// RequireRoles guards next with a bearer-token check. An empty allowRoles
// means any authenticated role passes.
func (m *Middleware) RequireRoles(allowRoles ...session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, role, err := m.authenticateHeader(r.Header.Get("Authorization"))
			if err != nil {
				writeGateError(w, http.StatusUnauthorized, "unauthorized", MsgRedirectingLogin, m.loginPath)
				return
			}

			if len(allowRoles) > 0 && !roleAllowed(role, allowRoles) {
				writeGateError(w, http.StatusForbidden, "forbidden", MsgRedirecting, m.forbiddenPath)
				return
			}

			next.ServeHTTP(w, r.WithContext(userctx.WithUser(r.Context(), sub, string(role))))
		})
	}
}

func (m *Middleware) authenticateHeader(authHeader string) (string, session.Role, error) {
	if authHeader == "" {
		return "", session.RoleUnknown, session.ErrInvalidToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", session.RoleUnknown, session.ErrInvalidToken
	}

	return m.verifier.VerifyJWT(parts[1])
}

func writeGateError(w http.ResponseWriter, status int, code, message, redirectTo string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"redirect_to": redirectTo,
	})
}
