package expense

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/harborops/fleetledger/internal"
	"github.com/harborops/fleetledger/internal/audit"
	"github.com/harborops/fleetledger/internal/auth"
	"github.com/harborops/fleetledger/internal/cashledger"
)

// Repository defines the data access methods the ledger service needs. All
// reads are vessel-scoped and exclude soft-deleted rows. InTransaction yields
// a Repository bound to one database transaction; GetByIDForUpdate must lock
// the row for the remainder of that transaction so concurrent approvals
// serialize.
type Repository interface {
	GetByID(vesselID, id int64) (*Expense, error)
	GetByIDForUpdate(vesselID, id int64) (*Expense, error)
	List(vesselID int64, limit, offset int) ([]*Expense, error)
	ListByCreator(vesselID, userID int64, limit, offset int) ([]*Expense, error)
	Create(e *Expense) error
	Update(id int64, updates map[string]interface{}) error
	SoftDelete(id, deletedBy int64, at time.Time) error

	ActiveCashTransaction(vesselID, expenseID int64) (*cashledger.Transaction, error)
	CreateCashTransaction(tx *cashledger.Transaction) error
	CashBalance(vesselID int64) (decimal.Decimal, error)

	InTransaction(fn func(Repository) error) error
}

// Invalidator notifies listing views that expense data changed. Best effort;
// never fails the operation.
type Invalidator interface {
	ExpenseChanged(vesselID, expenseID int64, change string)
}

// Service owns the expense status state machine and the cash transactions it
// produces or reverses.
type Service struct {
	repo        Repository
	permissions auth.PermissionChecker
	recorder    audit.Recorder
	invalidator Invalidator
	logger      *slog.Logger
}

func NewService(repo Repository, permissions auth.PermissionChecker, recorder audit.Recorder, invalidator Invalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		permissions: permissions,
		recorder:    recorder,
		invalidator: invalidator,
		logger:      logger,
	}
}

// GetExpense returns the expense with its denormalized references. Missing,
// soft-deleted and out-of-vessel rows are indistinguishable: all NotFound.
func (s *Service) GetExpense(actor auth.Actor, id int64) (*Expense, error) {
	e, err := s.repo.GetByID(actor.VesselID, id)
	if err != nil {
		return nil, err
	}

	if e.CreatedByID != actor.UserID && !s.permissions.Has(actor, auth.CapViewExpenses) {
		s.logger.Warn("expense read denied", "expense_id", id, "user_id", actor.UserID)
		return nil, errors.ErrPermissionDenied
	}

	return e, nil
}

func (s *Service) ListExpenses(actor auth.Actor, limit, offset int) ([]*Expense, error) {
	if s.permissions.Has(actor, auth.CapViewExpenses) {
		return s.repo.List(actor.VesselID, limit, offset)
	}
	return s.repo.ListByCreator(actor.VesselID, actor.UserID, limit, offset)
}

// CreateExpense creates a new expense as DRAFT, or SUBMITTED when the caller
// asks to submit immediately.
func (s *Service) CreateExpense(actor auth.Actor, dto CreateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("expense validation failed", "error", err, "user_id", actor.UserID)
		return nil, err
	}

	status := StatusDraft
	if dto.Submit {
		status = StatusSubmitted
	}

	now := time.Now()
	e := &Expense{
		VesselID:      actor.VesselID,
		VoyageID:      dto.VoyageID,
		CategoryID:    dto.CategoryID,
		CreditCardID:  dto.CreditCardID,
		Description:   dto.Description,
		Amount:        dto.Amount,
		Currency:      dto.Currency,
		PaymentMethod: dto.PaymentMethod,
		PaidBy:        dto.PaidBy,
		VendorName:    dto.VendorName,
		InvoiceNumber: dto.InvoiceNumber,
		Reimbursable:  dto.Reimbursable,
		Notes:         dto.Notes,
		Status:        status,
		ExpenseDate:   dto.ExpenseDate,
		CreatedByID:   actor.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(e); err != nil {
		s.logger.Error("failed to create expense", "error", err, "user_id", actor.UserID)
		return nil, errors.NewInternalError("failed to create expense", err)
	}

	s.record(actor, audit.ActionCreate, e.ID, nil,
		fmt.Sprintf("Expense created: %s (%s %s)", e.Description, e.Amount.String(), e.Currency))
	s.invalidate(actor.VesselID, e.ID, "created")

	s.logger.Info("expense created",
		"expense_id", e.ID,
		"user_id", actor.UserID,
		"amount", e.Amount.String(),
		"status", e.Status)

	return e, nil
}

// SubmitExpense moves a DRAFT into the approval queue.
func (s *Service) SubmitExpense(actor auth.Actor, id int64) (*Expense, error) {
	e, err := s.repo.GetByID(actor.VesselID, id)
	if err != nil {
		return nil, err
	}

	if e.CreatedByID != actor.UserID && !s.permissions.Has(actor, auth.CapEditExpenses) {
		return nil, errors.ErrPermissionDenied
	}

	if e.Status != StatusDraft {
		return nil, errors.NewConflictError("only draft expenses can be submitted", errors.ErrCodeInvalidStatus)
	}

	if err := s.repo.Update(e.ID, map[string]interface{}{
		"status":     StatusSubmitted,
		"updated_at": time.Now(),
	}); err != nil {
		return nil, errors.NewInternalError("failed to submit expense", err)
	}

	s.record(actor, audit.ActionUpdate, e.ID, map[string]any{"status": StatusSubmitted},
		"Expense submitted for approval: "+e.Description)
	s.invalidate(actor.VesselID, e.ID, "submitted")

	return s.repo.GetByID(actor.VesselID, id)
}

// UpdateExpense applies a partial update. Status transitions and the
// reimbursed flag run inside one database transaction with the expense row
// locked, so concurrent approvals cannot double-charge the ledger.
func (s *Service) UpdateExpense(actor auth.Actor, id int64, dto UpdateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	e, err := s.repo.GetByID(actor.VesselID, id)
	if err != nil {
		return nil, err
	}

	isCreator := e.CreatedByID == actor.UserID
	canEdit := s.permissions.Has(actor, auth.CapEditExpenses)
	canApprove := s.permissions.Has(actor, auth.CapApproveExpenses)

	// The status-only carve-out: approvers without edit rights may still
	// approve or reject, but the moment the same call touches any other
	// field they need edit rights like everyone else.
	if (dto.HasFieldChanges() || dto.HasReimbursedChange()) && !isCreator && !canEdit {
		s.logger.Warn("expense update denied",
			"expense_id", id,
			"user_id", actor.UserID,
			"status_change", dto.HasStatusChange())
		return nil, errors.ErrPermissionDenied
	}
	if dto.HasStatusChange() && !canApprove {
		s.logger.Warn("status change denied: missing approve capability",
			"expense_id", id,
			"user_id", actor.UserID)
		return nil, errors.ErrPermissionDenied
	}

	var approved, rejected, reimbursedChanged bool
	auditDesc := e.Description

	err = s.repo.InTransaction(func(tx Repository) error {
		cur, err := tx.GetByIDForUpdate(actor.VesselID, id)
		if err != nil {
			return err
		}

		// audit entries must describe the expense as committed, not as it
		// looked before the lock (or before a same-call description change)
		auditDesc = cur.Description
		if dto.Description != nil {
			auditDesc = *dto.Description
		}

		if dto.HasStatusChange() {
			switch *dto.Status {
			case StatusApproved:
				if err := s.approve(tx, cur, actor); err != nil {
					return err
				}
				approved = true
			case StatusRejected:
				if err := s.reject(tx, cur, actor, dto.RejectionReason); err != nil {
					return err
				}
				rejected = true
			}
		}

		if dto.HasReimbursedChange() {
			changed, err := s.applyReimbursed(tx, cur, actor, dto)
			if err != nil {
				return err
			}
			reimbursedChanged = changed
		}

		if updates := dto.fieldUpdates(); len(updates) > 0 {
			updates["updated_at"] = time.Now()
			if err := tx.Update(cur.ID, updates); err != nil {
				return errors.NewInternalError("failed to update expense", err)
			}
		}

		return nil
	})
	if err != nil {
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("expense update transaction failed", "error", err, "expense_id", id)
		return nil, errors.NewInternalError("failed to update expense", err)
	}

	switch {
	case approved:
		s.record(actor, audit.ActionApprove, id, map[string]any{"status": StatusApproved},
			"Expense approved: "+auditDesc)
	case rejected:
		s.record(actor, audit.ActionReject, id, map[string]any{"status": StatusRejected},
			"Expense rejected: "+auditDesc)
	}
	if reimbursedChanged {
		s.record(actor, audit.ActionReimburse, id, map[string]any{"is_reimbursed": *dto.Reimbursed},
			"Expense reimbursement flag changed: "+auditDesc)
	}
	if dto.HasFieldChanges() {
		s.record(actor, audit.ActionUpdate, id, map[string]any{"fields": dto.fieldUpdates()},
			"Expense updated: "+auditDesc)
	}
	s.invalidate(actor.VesselID, id, "updated")

	return s.repo.GetByID(actor.VesselID, id)
}

// approve runs the SUBMITTED -> APPROVED transition inside the caller's
// transaction. For vessel-paid expenses it idempotently ensures exactly one
// withdrawal exists, gated on the derived cash balance.
func (s *Service) approve(tx Repository, cur *Expense, actor auth.Actor) error {
	if !cur.CanBeApproved() {
		return errors.ErrNotSubmitted
	}

	if cur.IsVesselPaid() {
		existing, err := tx.ActiveCashTransaction(cur.VesselID, cur.ID)
		if err != nil {
			return errors.NewInternalError("failed to check cash transactions", err)
		}
		if existing == nil {
			balance, err := tx.CashBalance(cur.VesselID)
			if err != nil {
				return errors.NewInternalError("failed to compute cash balance", err)
			}
			if balance.LessThan(cur.Amount) {
				s.logger.Warn("approval blocked: insufficient cash",
					"expense_id", cur.ID,
					"balance", balance.String(),
					"required", cur.Amount.String())
				return errors.NewInsufficientFundsError(balance, cur.Amount, cur.Currency)
			}
			if err := tx.CreateCashTransaction(&cashledger.Transaction{
				VesselID:    cur.VesselID,
				Type:        cashledger.TypeWithdrawal,
				Amount:      cur.Amount,
				Currency:    cur.Currency,
				Description: "Expense: " + cur.Description,
				ExpenseID:   &cur.ID,
				CreatedByID: actor.UserID,
				CreatedAt:   time.Now(),
			}); err != nil {
				return errors.NewInternalError("failed to create withdrawal", err)
			}
		}
	}

	if err := tx.Update(cur.ID, map[string]interface{}{
		"status":         StatusApproved,
		"approved_by_id": actor.UserID,
		"updated_at":     time.Now(),
	}); err != nil {
		return errors.NewInternalError("failed to approve expense", err)
	}

	s.logger.Info("expense approved", "expense_id", cur.ID, "approver_id", actor.UserID)
	return nil
}

// reject runs the SUBMITTED -> REJECTED transition. The reason is mandatory
// and is appended to the free-text notes.
func (s *Service) reject(tx Repository, cur *Expense, actor auth.Actor, reason *string) error {
	if !cur.CanBeRejected() {
		return errors.ErrNotSubmitted
	}
	var trimmed string
	if reason != nil {
		trimmed = strings.TrimSpace(*reason)
	}
	if trimmed == "" {
		return errors.ErrReasonRequired
	}

	if err := tx.Update(cur.ID, map[string]interface{}{
		"status":         StatusRejected,
		"approved_by_id": nil,
		"notes":          rejectionNote(cur.Notes, trimmed),
		"updated_at":     time.Now(),
	}); err != nil {
		return errors.NewInternalError("failed to reject expense", err)
	}

	s.logger.Info("expense rejected", "expense_id", cur.ID, "approver_id", actor.UserID)
	return nil
}

// applyReimbursed toggles the reimbursed flag. Marking reimbursed pays the
// crew member out with a withdrawal if no cash transaction is linked yet;
// this path deliberately skips the balance check so field reality is always
// recorded, even into a negative balance. Unmarking never reverses the
// payout: money already handed over stays on the ledger.
func (s *Service) applyReimbursed(tx Repository, cur *Expense, actor auth.Actor, dto UpdateExpenseDTO) (bool, error) {
	want := *dto.Reimbursed

	if want && !cur.Reimbursed {
		at := time.Now()
		if dto.ReimbursedAt != nil {
			at = *dto.ReimbursedAt
		}

		existing, err := tx.ActiveCashTransaction(cur.VesselID, cur.ID)
		if err != nil {
			return false, errors.NewInternalError("failed to check cash transactions", err)
		}
		if existing == nil {
			if err := tx.CreateCashTransaction(&cashledger.Transaction{
				VesselID:    cur.VesselID,
				Type:        cashledger.TypeWithdrawal,
				Amount:      cur.Amount,
				Currency:    cur.Currency,
				Description: "Reimbursement: " + cur.Description,
				ExpenseID:   &cur.ID,
				CreatedByID: actor.UserID,
				CreatedAt:   time.Now(),
			}); err != nil {
				return false, errors.NewInternalError("failed to create reimbursement withdrawal", err)
			}
		}

		if err := tx.Update(cur.ID, map[string]interface{}{
			"is_reimbursed": true,
			"reimbursed_at": at,
			"updated_at":    time.Now(),
		}); err != nil {
			return false, errors.NewInternalError("failed to mark expense reimbursed", err)
		}
		return true, nil
	}

	if !want && cur.Reimbursed {
		if err := tx.Update(cur.ID, map[string]interface{}{
			"is_reimbursed": false,
			"reimbursed_at": nil,
			"updated_at":    time.Now(),
		}); err != nil {
			return false, errors.NewInternalError("failed to unmark expense reimbursed", err)
		}
		return true, nil
	}

	return false, nil
}

// DeleteExpense soft-deletes the expense. When an approved vessel-funded
// expense still has an active withdrawal, a compensating deposit of the same
// amount is created next to it. The withdrawal itself stays on the ledger, so
// the transactions linked to the deleted expense net to zero and the balance
// returns to its pre-approval value. The whole unit is one database
// transaction.
func (s *Service) DeleteExpense(actor auth.Actor, id int64) (*DeleteResult, error) {
	if !s.permissions.Has(actor, auth.CapDeleteExpenses) {
		s.logger.Warn("expense delete denied", "expense_id", id, "user_id", actor.UserID)
		return nil, errors.ErrPermissionDenied
	}

	var refunded bool
	var description string

	err := s.repo.InTransaction(func(tx Repository) error {
		cur, err := tx.GetByIDForUpdate(actor.VesselID, id)
		if err != nil {
			return err
		}
		description = cur.Description

		now := time.Now()

		if cur.Status == StatusApproved {
			wtx, err := tx.ActiveCashTransaction(cur.VesselID, cur.ID)
			if err != nil {
				return errors.NewInternalError("failed to check cash transactions", err)
			}
			if wtx != nil && wtx.Type == cashledger.TypeWithdrawal {
				if err := tx.CreateCashTransaction(&cashledger.Transaction{
					VesselID:    cur.VesselID,
					Type:        cashledger.TypeDeposit,
					Amount:      wtx.Amount,
					Currency:    wtx.Currency,
					Description: "Refund: Expense removed - " + cur.Description,
					ExpenseID:   &cur.ID,
					CreatedByID: actor.UserID,
					CreatedAt:   now,
				}); err != nil {
					return errors.NewInternalError("failed to create refund deposit", err)
				}
				refunded = true
			}
		}

		if err := tx.SoftDelete(cur.ID, actor.UserID, now); err != nil {
			return errors.NewInternalError("failed to delete expense", err)
		}

		return nil
	})
	if err != nil {
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("expense delete transaction failed", "error", err, "expense_id", id)
		return nil, errors.NewInternalError("failed to delete expense", err)
	}

	auditDesc := "Expense deleted: " + description
	message := "expense deleted"
	if refunded {
		auditDesc += " (cash refund issued)"
		message = "expense deleted and cash refund issued"
	}
	s.record(actor, audit.ActionDelete, id, map[string]any{"refunded": refunded}, auditDesc)
	s.invalidate(actor.VesselID, id, "deleted")

	s.logger.Info("expense deleted", "expense_id", id, "user_id", actor.UserID, "refunded", refunded)

	return &DeleteResult{Success: true, Refunded: refunded, Message: message}, nil
}

func (s *Service) record(actor auth.Actor, action audit.Action, expenseID int64, changes map[string]any, description string) {
	err := s.recorder.Record(context.Background(), audit.Entry{
		VesselID:    actor.VesselID,
		UserID:      actor.UserID,
		Action:      action,
		EntityType:  "expense",
		EntityID:    expenseID,
		Changes:     changes,
		Description: description,
	})
	if err != nil {
		s.logger.Warn("audit entry not recorded", "error", err, "action", action, "expense_id", expenseID)
	}
}

func (s *Service) invalidate(vesselID, expenseID int64, change string) {
	if s.invalidator != nil {
		s.invalidator.ExpenseChanged(vesselID, expenseID, change)
	}
}
