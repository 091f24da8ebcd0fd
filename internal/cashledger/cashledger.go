package cashledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type distinguishes money entering or leaving the vessel's cash float.
type Type string

const (
	TypeDeposit    Type = "DEPOSIT"
	TypeWithdrawal Type = "WITHDRAWAL"
)

// Transaction is one immutable cash ledger entry. Entries are never edited by
// users: withdrawals are created as side effects of expense approval or
// reimbursement, deposits by manual float top-ups or expense-deletion refunds.
// Soft deletion only happens as a side effect of deleting the originating
// expense.
type Transaction struct {
	ID          int64           `json:"id" gorm:"primaryKey"`
	VesselID    int64           `json:"vessel_id" gorm:"column:vessel_id;not null;index"`
	Type        Type            `json:"type" gorm:"type:varchar(10);not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(18,4);not null"`
	Currency    string          `json:"currency" gorm:"type:varchar(3);not null"`
	Description string          `json:"description" gorm:"type:text"`
	ExpenseID   *int64          `json:"expense_id,omitempty" gorm:"column:expense_id;index"`
	CreatedByID int64           `json:"created_by_id" gorm:"column:created_by_id;not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"column:created_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty" gorm:"column:deleted_at;index"`
}

func (Transaction) TableName() string {
	return "cash_transactions"
}

func (t *Transaction) IsDeleted() bool {
	return t.DeletedAt != nil
}

// Signed returns the transaction's contribution to the running balance.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Type == TypeWithdrawal {
		return t.Amount.Neg()
	}
	return t.Amount
}
