package postgres

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	errors "github.com/harborops/fleetledger/internal"
	"github.com/harborops/fleetledger/internal/cashledger"
	"github.com/harborops/fleetledger/internal/expense"
)

// ExpenseRepository implements expense.Repository using GORM. All lookups are
// vessel-scoped and treat soft-deleted rows as absent, so a deleted expense is
// indistinguishable from one that never existed.
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.Repository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) GetByID(vesselID, id int64) (*expense.Expense, error) {
	var e expense.Expense
	err := r.scoped(vesselID).
		Preload("Category").
		Preload("Voyage").
		Preload("CreditCard").
		Preload("Receipts", "deleted_at IS NULL").
		Where("id = ?", id).
		First(&e).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrExpenseNotFound
		}
		return nil, err
	}
	return &e, nil
}

// GetByIDForUpdate locks the expense row for the duration of the enclosing
// transaction. Callers must be inside InTransaction.
func (r *ExpenseRepository) GetByIDForUpdate(vesselID, id int64) (*expense.Expense, error) {
	var e expense.Expense
	err := r.scoped(vesselID).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&e).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrExpenseNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *ExpenseRepository) List(vesselID int64, limit, offset int) ([]*expense.Expense, error) {
	var expenses []*expense.Expense
	err := r.scoped(vesselID).
		Preload("Category").
		Order("expense_date DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&expenses).Error
	return expenses, err
}

func (r *ExpenseRepository) ListByCreator(vesselID, userID int64, limit, offset int) ([]*expense.Expense, error) {
	var expenses []*expense.Expense
	err := r.scoped(vesselID).
		Preload("Category").
		Where("created_by_id = ?", userID).
		Order("expense_date DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&expenses).Error
	return expenses, err
}

func (r *ExpenseRepository) Create(e *expense.Expense) error {
	return r.db.Create(e).Error
}

func (r *ExpenseRepository) Update(id int64, updates map[string]interface{}) error {
	return r.db.Model(&expense.Expense{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(updates).Error
}

func (r *ExpenseRepository) SoftDelete(id, deletedBy int64, at time.Time) error {
	return r.db.Model(&expense.Expense{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"deleted_at":    at,
			"deleted_by_id": deletedBy,
		}).Error
}

func (r *ExpenseRepository) ActiveCashTransaction(vesselID, expenseID int64) (*cashledger.Transaction, error) {
	var tx cashledger.Transaction
	err := r.db.Where("vessel_id = ? AND expense_id = ? AND deleted_at IS NULL", vesselID, expenseID).
		First(&tx).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *ExpenseRepository) CreateCashTransaction(tx *cashledger.Transaction) error {
	return r.db.Create(tx).Error
}

func (r *ExpenseRepository) CashBalance(vesselID int64) (decimal.Decimal, error) {
	var result struct {
		Balance decimal.Decimal
	}
	err := r.db.Model(&cashledger.Transaction{}).
		Select("COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE -amount END), 0) AS balance", cashledger.TypeDeposit).
		Where("vessel_id = ? AND deleted_at IS NULL", vesselID).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Balance, nil
}

// InTransaction runs fn against a repository bound to a single database
// transaction. Row locks taken via GetByIDForUpdate hold until fn returns.
func (r *ExpenseRepository) InTransaction(fn func(expense.Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&ExpenseRepository{db: tx})
	})
}

func (r *ExpenseRepository) scoped(vesselID int64) *gorm.DB {
	return r.db.Where("vessel_id = ? AND deleted_at IS NULL", vesselID)
}
