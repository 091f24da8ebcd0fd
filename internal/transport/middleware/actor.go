package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/harborops/fleetledger/internal/auth"
)

// Identity headers set by the gateway after it has authenticated the caller.
// This service trusts them; it never sees credentials.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
	HeaderVesselID = "X-Vessel-Id"
	HeaderGrants   = "X-Grants"
)

// Actor resolves the calling identity from gateway headers and stores it on
// the request context. Requests without a usable identity get 401.
func Actor(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64)
			if err != nil || userID <= 0 {
				unauthorized(w)
				return
			}

			vesselID, err := strconv.ParseInt(r.Header.Get(HeaderVesselID), 10, 64)
			if err != nil || vesselID <= 0 {
				unauthorized(w)
				return
			}

			actor := auth.Actor{
				UserID:   userID,
				Role:     auth.ParseRole(r.Header.Get(HeaderUserRole)),
				VesselID: vesselID,
			}

			if grants := r.Header.Get(HeaderGrants); grants != "" {
				for _, raw := range strings.Split(grants, ",") {
					cap, ok := auth.ParseCapability(strings.TrimSpace(raw))
					if !ok {
						logger.Warn("ignoring unknown capability grant",
							"grant", raw,
							"user_id", userID)
						continue
					}
					actor.Grants = append(actor.Grants, cap)
				}
			}

			ctx := auth.ContextWithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized"}`))
}
