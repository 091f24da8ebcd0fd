package cashledger

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/harborops/fleetledger/internal/auth"
	"github.com/harborops/fleetledger/internal/transport"
	"github.com/harborops/fleetledger/pkg/logger"
)

type ServiceAPI interface {
	Balance(actor auth.Actor) (*BalanceResponse, error)
	ListTransactions(actor auth.Actor, limit, offset int) ([]*Transaction, error)
	RecordDeposit(actor auth.Actor, dto CreateDepositDTO) (*Transaction, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	balance, err := h.Service.Balance(actor)
	if err != nil {
		h.Logger.Error("GetBalance: service error", "error", err, "vessel_id", actor.VesselID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, balance)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 20
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	txs, err := h.Service.ListTransactions(actor, limit, offset)
	if err != nil {
		h.Logger.Error("ListTransactions: service error", "error", err, "vessel_id", actor.VesselID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"limit":        limit,
		"offset":       offset,
	})
}

func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateDepositDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateDeposit: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := h.Service.RecordDeposit(actor, dto)
	if err != nil {
		h.Logger.Error("CreateDeposit: service error", "error", err, "user_id", actor.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, tx)
}
