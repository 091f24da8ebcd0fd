package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the expense lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
)

// PaymentMethod records how the expense was paid.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodCard         PaymentMethod = "CARD"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodOwnerAccount PaymentMethod = "OWNER_ACCOUNT"
	MethodOther        PaymentMethod = "OTHER"
)

// PaidBy records whose money covered the expense. VESSEL draws from the
// vessel's own cash float and is the only value that triggers the balance
// gate on approval.
type PaidBy string

const (
	PaidByVessel       PaidBy = "VESSEL"
	PaidByCrewPersonal PaidBy = "CREW_PERSONAL"
	PaidByOwner        PaidBy = "OWNER"
	PaidByCharterGuest PaidBy = "CHARTER_GUEST"
)

// Expense is the main ledger entity. Soft deletion keeps the row for audit;
// deleted rows are excluded from every normal read.
type Expense struct {
	ID            int64           `json:"id" gorm:"primaryKey"`
	VesselID      int64           `json:"vessel_id" gorm:"column:vessel_id;not null;index"`
	VoyageID      *int64          `json:"voyage_id,omitempty" gorm:"column:voyage_id;index"`
	CategoryID    *int64          `json:"category_id,omitempty" gorm:"column:category_id;index"`
	CreditCardID  *int64          `json:"credit_card_id,omitempty" gorm:"column:credit_card_id"`
	Description   string          `json:"description" gorm:"not null"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(18,4);not null"`
	Currency      string          `json:"currency" gorm:"type:varchar(3);not null"`
	PaymentMethod PaymentMethod   `json:"payment_method" gorm:"type:varchar(20);not null"`
	PaidBy        PaidBy          `json:"paid_by" gorm:"column:paid_by;type:varchar(20);not null"`
	VendorName    string          `json:"vendor_name" gorm:"column:vendor_name"`
	InvoiceNumber string          `json:"invoice_number" gorm:"column:invoice_number"`
	Reimbursable  bool            `json:"is_reimbursable" gorm:"column:is_reimbursable;default:false"`
	Reimbursed    bool            `json:"is_reimbursed" gorm:"column:is_reimbursed;default:false"`
	ReimbursedAt  *time.Time      `json:"reimbursed_at,omitempty" gorm:"column:reimbursed_at"`
	Notes         string          `json:"notes" gorm:"type:text"`
	Status        Status          `json:"status" gorm:"type:varchar(10);default:'DRAFT'"`
	ExpenseDate   time.Time       `json:"expense_date" gorm:"column:expense_date;type:date"`

	CreatedByID  int64      `json:"created_by_id" gorm:"column:created_by_id;not null"`
	ApprovedByID *int64     `json:"approved_by_id,omitempty" gorm:"column:approved_by_id"`
	CreatedAt    time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"column:updated_at"`
	DeletedAt    *time.Time `json:"-" gorm:"column:deleted_at;index"`
	DeletedByID  *int64     `json:"-" gorm:"column:deleted_by_id"`

	// denormalized read-side references
	Category   *Category   `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Voyage     *Voyage     `json:"voyage,omitempty" gorm:"foreignKey:VoyageID"`
	CreditCard *CreditCard `json:"credit_card,omitempty" gorm:"foreignKey:CreditCardID"`
	Receipts   []Receipt   `json:"receipts,omitempty" gorm:"foreignKey:ExpenseID"`
}

func (Expense) TableName() string {
	return "expenses"
}

func (e *Expense) CanBeApproved() bool {
	return e.Status == StatusSubmitted
}

func (e *Expense) CanBeRejected() bool {
	return e.Status == StatusSubmitted
}

func (e *Expense) IsVesselPaid() bool {
	return e.PaidBy == PaidByVessel
}

func (e *Expense) IsDeleted() bool {
	return e.DeletedAt != nil
}

// Category is the read-side projection of an expense category reference.
type Category struct {
	ID   int64  `json:"id" gorm:"primaryKey"`
	Name string `json:"name"`
}

func (Category) TableName() string {
	return "categories"
}

// Voyage is a trip the expense can be booked against.
type Voyage struct {
	ID       int64      `json:"id" gorm:"primaryKey"`
	VesselID int64      `json:"vessel_id" gorm:"column:vessel_id"`
	Name     string     `json:"name"`
	StartsAt time.Time  `json:"starts_at" gorm:"column:starts_at"`
	EndsAt   *time.Time `json:"ends_at,omitempty" gorm:"column:ends_at"`
}

func (Voyage) TableName() string {
	return "voyages"
}

// CreditCard is a vessel card an expense can reference.
type CreditCard struct {
	ID        int64  `json:"id" gorm:"primaryKey"`
	VesselID  int64  `json:"vessel_id" gorm:"column:vessel_id"`
	Label     string `json:"label"`
	LastFour  string `json:"last_four" gorm:"column:last_four"`
	IsActive  bool   `json:"is_active" gorm:"column:is_active"`
}

func (CreditCard) TableName() string {
	return "credit_cards"
}

// Receipt is attachment metadata only; the payload lives in external storage.
type Receipt struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	ExpenseID   int64      `json:"expense_id" gorm:"column:expense_id;index"`
	FileName    string     `json:"file_name" gorm:"column:file_name"`
	ContentType string     `json:"content_type" gorm:"column:content_type"`
	SizeBytes   int64      `json:"size_bytes" gorm:"column:size_bytes"`
	StorageKey  string     `json:"-" gorm:"column:storage_key"`
	UploadedAt  time.Time  `json:"uploaded_at" gorm:"column:uploaded_at"`
	DeletedAt   *time.Time `json:"-" gorm:"column:deleted_at"`
}

func (Receipt) TableName() string {
	return "receipts"
}
