package cashledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/harborops/fleetledger/internal"
	"github.com/harborops/fleetledger/internal/audit"
	"github.com/harborops/fleetledger/internal/auth"
)

// Repository defines the data access methods for cash transactions.
type Repository interface {
	Create(tx *Transaction) error
	GetByID(vesselID, id int64) (*Transaction, error)
	List(vesselID int64, limit, offset int) ([]*Transaction, error)
	ActiveByExpenseID(vesselID, expenseID int64) (*Transaction, error)
	SoftDelete(id int64, at time.Time) error
	Balance(vesselID int64) (decimal.Decimal, error)
}

// Invalidator notifies listing views that ledger data changed. Best effort.
type Invalidator interface {
	CashChanged(vesselID, txID int64)
}

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

// Balance derives the running total: sum of non-deleted deposits minus
// withdrawals for the vessel.
func (s *Service) Balance(actor auth.Actor) (*BalanceResponse, error) {
	balance, err := s.repo.Balance(actor.VesselID)
	if err != nil {
		s.logger.Error("failed to compute cash balance", "error", err, "vessel_id", actor.VesselID)
		return nil, errors.NewInternalError("failed to compute cash balance", err)
	}

	return &BalanceResponse{VesselID: actor.VesselID, Balance: balance}, nil
}

func (s *Service) ListTransactions(actor auth.Actor, limit, offset int) ([]*Transaction, error) {
	txs, err := s.repo.List(actor.VesselID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list cash transactions", "error", err, "vessel_id", actor.VesselID)
		return nil, errors.NewInternalError("failed to list cash transactions", err)
	}
	return txs, nil
}

// RecordDeposit adds cash to the vessel float. Withdrawals have no direct
// endpoint; they only ever arise from expense approval or reimbursement.
func (s *Service) RecordDeposit(actor auth.Actor, dto CreateDepositDTO) (*Transaction, error) {
	if !s.permissions.Has(actor, auth.CapManageCash) {
		s.logger.Warn("deposit denied: missing cash capability", "user_id", actor.UserID)
		return nil, errors.ErrPermissionDenied
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	tx := &Transaction{
		VesselID:    actor.VesselID,
		Type:        TypeDeposit,
		Amount:      dto.Amount,
		Currency:    dto.Currency,
		Description: dto.Description,
		CreatedByID: actor.UserID,
		CreatedAt:   time.Now(),
	}

	if err := s.repo.Create(tx); err != nil {
		s.logger.Error("failed to create deposit", "error", err, "vessel_id", actor.VesselID)
		return nil, errors.NewInternalError("failed to record deposit", err)
	}

	if err := s.recorder.Record(context.Background(), audit.Entry{
		VesselID:    actor.VesselID,
		UserID:      actor.UserID,
		Action:      audit.ActionDeposit,
		EntityType:  "cash_transaction",
		EntityID:    tx.ID,
		Description: "Cash deposit of " + tx.Amount.String() + " " + tx.Currency,
	}); err != nil {
		s.logger.Warn("audit entry not recorded for deposit", "error", err, "transaction_id", tx.ID)
	}

	if s.invalidator != nil {
		s.invalidator.CashChanged(actor.VesselID, tx.ID)
	}

	s.logger.Info("cash deposit recorded",
		"transaction_id", tx.ID,
		"vessel_id", actor.VesselID,
		"amount", tx.Amount.String(),
		"currency", tx.Currency)

	return tx, nil
}
