package middlewares

import (
	"net/http"
	"strings"

	"github.com/go-chi/oauth"
	"github.com/google/uuid"

	"github.com/mbolis/field-survey/httpx"
	"github.com/mbolis/field-survey/log"
	"github.com/mbolis/field-survey/model"
)

// Authorize rejects requests without a valid bearer token signed with secret.
func Authorize(secret string) func(http.Handler) http.Handler {
	return oauth.Authorize(secret, nil)
}

// Admin lets through callers holding the OWNER or MANAGER role. It must run after Authorize.
func Admin(next http.Handler) http.Handler {
	return RequireRole(model.RoleOwner, model.RoleManager)(next)
}

// RequireRole lets through callers holding any of roles. It must run after Authorize.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasAnyRole(Claims(r), roles) {
				httpx.LogStatus(w, r, http.StatusForbidden, log.DebugLevel, "auth.role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasAnyRole(claims map[string]string, roles []string) bool {
	rolesClaim, ok := claims[httpx.ClaimRoles]
	if !ok {
		return false
	}
	for _, held := range strings.Split(rolesClaim, ",") {
		for _, role := range roles {
			if strings.TrimSpace(held) == role {
				return true
			}
		}
	}
	return false
}

// Claims returns the token claims of an authorized request, or nil.
func Claims(r *http.Request) map[string]string {
	claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)
	return claims
}

// UserID returns the id of the authenticated user, or uuid.Nil.
func UserID(r *http.Request) uuid.UUID {
	id, err := uuid.Parse(Claims(r)[httpx.ClaimUserID])
	if err != nil {
		return uuid.Nil
	}
	return id
}
