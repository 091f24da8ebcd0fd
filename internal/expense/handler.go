package expense

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/harborops/fleetledger/internal/auth"
	"github.com/harborops/fleetledger/internal/transport"
	"github.com/harborops/fleetledger/pkg/logger"
)

type ServiceAPI interface {
	GetExpense(actor auth.Actor, id int64) (*Expense, error)
	ListExpenses(actor auth.Actor, limit, offset int) ([]*Expense, error)
	CreateExpense(actor auth.Actor, dto CreateExpenseDTO) (*Expense, error)
	SubmitExpense(actor auth.Actor, id int64) (*Expense, error)
	UpdateExpense(actor auth.Actor, id int64, dto UpdateExpenseDTO) (*Expense, error)
	DeleteExpense(actor auth.Actor, id int64) (*DeleteResult, error)
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

// GetExpense godoc
// @Summary Get an expense
// @Tags expenses
// @Produce json
// @Param id path int true "Expense ID"
// @Success 200 {object} Expense
// @Failure 404 {object} internal.Response
// @Router /api/v1/expenses/{id} [get]
func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.expenseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	e, err := h.Service.GetExpense(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
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

	expenses, err := h.Service.ListExpenses(actor, limit, offset)
	if err != nil {
		h.Logger.Error("ListExpenses: service error", "error", err, "vessel_id", actor.VesselID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"expenses": expenses,
		"limit":    limit,
		"offset":   offset,
	})
}

// CreateExpense godoc
// @Summary Create an expense
// @Tags expenses
// @Accept json
// @Produce json
// @Param request body CreateExpenseDTO true "Expense payload"
// @Success 201 {object} Expense
// @Failure 400 {object} internal.Response
// @Router /api/v1/expenses [post]
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateExpense: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.Service.CreateExpense(actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, e)
}

// SubmitExpense moves a draft into the approval queue.
func (h *Handler) SubmitExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.expenseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	e, err := h.Service.SubmitExpense(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e)
}

// UpdateExpense godoc
// @Summary Update an expense
// @Description Partial update. Setting status to APPROVED or REJECTED runs the
// @Description corresponding lifecycle transition, including cash ledger effects.
// @Tags expenses
// @Accept json
// @Produce json
// @Param id path int true "Expense ID"
// @Param request body UpdateExpenseDTO true "Fields to change"
// @Success 200 {object} Expense
// @Failure 403 {object} internal.Response
// @Failure 409 {object} internal.Response
// @Router /api/v1/expenses/{id} [patch]
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.expenseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	var dto UpdateExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateExpense: invalid request body", "error", err, "expense_id", id)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.Service.UpdateExpense(actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e)
}

// DeleteExpense soft-deletes an expense and reports whether a cash refund was
// issued.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.expenseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	result, err := h.Service.DeleteExpense(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) expenseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
