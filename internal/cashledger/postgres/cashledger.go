package postgres

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harborops/fleetledger/internal/cashledger"
)

// CashRepository implements cashledger.Repository using GORM. Soft-deleted
// rows are excluded everywhere except direct id lookup.
type CashRepository struct {
	db *gorm.DB
}

func NewCashRepository(db *gorm.DB) cashledger.Repository {
	return &CashRepository{db: db}
}

func (r *CashRepository) Create(tx *cashledger.Transaction) error {
	return r.db.Create(tx).Error
}

func (r *CashRepository) GetByID(vesselID, id int64) (*cashledger.Transaction, error) {
	var tx cashledger.Transaction
	err := r.db.Where("vessel_id = ? AND id = ?", vesselID, id).First(&tx).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *CashRepository) List(vesselID int64, limit, offset int) ([]*cashledger.Transaction, error) {
	var txs []*cashledger.Transaction
	err := r.db.Where("vessel_id = ? AND deleted_at IS NULL", vesselID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	return txs, err
}

// ActiveByExpenseID returns the non-deleted transaction linked to an expense,
// or nil when none exists. A partial unique index guarantees at most one.
func (r *CashRepository) ActiveByExpenseID(vesselID, expenseID int64) (*cashledger.Transaction, error) {
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

func (r *CashRepository) SoftDelete(id int64, at time.Time) error {
	return r.db.Model(&cashledger.Transaction{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", at).Error
}

func (r *CashRepository) Balance(vesselID int64) (decimal.Decimal, error) {
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
