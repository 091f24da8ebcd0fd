package user

import (
	"net/http"

	"github.com/harborops/fleetledger/internal/auth"
	"github.com/harborops/fleetledger/internal/transport"
)

type ServiceAPI interface {
	GetCurrentUser(actor auth.Actor) (*User, error)
	ListCrew(actor auth.Actor) ([]*User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// GetCurrentUser returns the caller's directory entry plus the resolved
// capability set so clients can hide actions the user cannot take.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.Service.GetCurrentUser(actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	capabilities := make([]auth.Capability, 0)
	for _, c := range auth.AllCapabilities {
		if auth.NewPermissionChecker().Has(actor, c) {
			capabilities = append(capabilities, c)
		}
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":         u,
		"capabilities": capabilities,
	})
}

func (h *Handler) ListCrew(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	users, err := h.Service.ListCrew(actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"crew": users,
	})
}
