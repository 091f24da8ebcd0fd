package middleware

import (
	"log/slog"
	"net/http"

	"github.com/harborops/fleetledger/internal/auth"
)

// RequireCapability gates a route group on one capability. Services still run
// their own checks; this just rejects obviously unauthorized calls early.
func RequireCapability(checker auth.PermissionChecker, cap auth.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := auth.ActorFromContext(r.Context())
			if !ok {
				unauthorized(w)
				return
			}

			if !checker.Has(actor, cap) {
				slog.Warn("access denied: missing capability",
					"user_id", actor.UserID,
					"role", actor.Role,
					"capability", cap)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":"insufficient permissions"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
