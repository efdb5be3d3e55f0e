package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// RequireTeamLeader requires a role that may read team members' dashboards
func RequireTeamLeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Forbidden(w, "Team leader access required")
			return
		}

		roleStr, ok := claims["role"].(string)
		if !ok {
			response.Forbidden(w, "Team leader access required")
			return
		}

		if !jwt.Role(roleStr).CanViewTeam() {
			response.Forbidden(w, "Team leader access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
