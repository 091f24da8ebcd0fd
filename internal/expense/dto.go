package expense

import (
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/harborops/fleetledger/internal"
	"github.com/harborops/fleetledger/internal/validation"
)

// CreateExpenseDTO is the request payload for creating an expense. Submit
// controls whether it lands as DRAFT or goes straight to SUBMITTED.
type CreateExpenseDTO struct {
	VoyageID      *int64          `json:"voyage_id,omitempty"`
	CategoryID    *int64          `json:"category_id,omitempty"`
	CreditCardID  *int64          `json:"credit_card_id,omitempty"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	PaidBy        PaidBy          `json:"paid_by"`
	VendorName    string          `json:"vendor_name,omitempty"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	Reimbursable  bool            `json:"is_reimbursable,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	ExpenseDate   time.Time       `json:"expense_date"`
	Submit        bool            `json:"submit,omitempty"`
}

func (dto CreateExpenseDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("description", dto.Description).Required().MinLength(1).MaxLength(500)
	v.Field("amount", dto.Amount).Required().PositiveAmount()
	v.Field("currency", dto.Currency).Required().CurrencyCode()
	v.Field("payment_method", string(dto.PaymentMethod)).Required().
		OneOf(string(MethodCash), string(MethodCard), string(MethodBankTransfer), string(MethodOwnerAccount), string(MethodOther))
	v.Field("paid_by", string(dto.PaidBy)).Required().
		OneOf(string(PaidByVessel), string(PaidByCrewPersonal), string(PaidByOwner), string(PaidByCharterGuest))
	v.Field("expense_date", dto.ExpenseDate).NotFuture()
	return v.Validate()
}

// UpdateExpenseDTO is a partial PATCH body. Nil pointers mean "leave as is".
// Status, RejectionReason and Reimbursed drive the lifecycle transitions; the
// rest are plain field updates.
type UpdateExpenseDTO struct {
	VoyageID      *int64           `json:"voyage_id,omitempty"`
	ExpenseDate   *time.Time       `json:"expense_date,omitempty"`
	CategoryID    *int64           `json:"category_id,omitempty"`
	CreditCardID  *int64           `json:"credit_card_id,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	PaymentMethod *PaymentMethod   `json:"payment_method,omitempty"`
	PaidBy        *PaidBy          `json:"paid_by,omitempty"`
	VendorName    *string          `json:"vendor_name,omitempty"`
	InvoiceNumber *string          `json:"invoice_number,omitempty"`
	Reimbursable  *bool            `json:"is_reimbursable,omitempty"`
	Notes         *string          `json:"notes,omitempty"`

	Status          *Status `json:"status,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`

	Reimbursed   *bool      `json:"is_reimbursed,omitempty"`
	ReimbursedAt *time.Time `json:"reimbursed_at,omitempty"`
}

// HasStatusChange reports whether the PATCH asks for an approve/reject
// transition.
func (dto UpdateExpenseDTO) HasStatusChange() bool {
	return dto.Status != nil
}

// HasReimbursedChange reports whether the PATCH toggles the reimbursed flag.
func (dto UpdateExpenseDTO) HasReimbursedChange() bool {
	return dto.Reimbursed != nil
}

// HasFieldChanges reports whether any status-preserving field is supplied.
func (dto UpdateExpenseDTO) HasFieldChanges() bool {
	return dto.VoyageID != nil ||
		dto.ExpenseDate != nil ||
		dto.CategoryID != nil ||
		dto.CreditCardID != nil ||
		dto.Description != nil ||
		dto.Amount != nil ||
		dto.Currency != nil ||
		dto.PaymentMethod != nil ||
		dto.PaidBy != nil ||
		dto.VendorName != nil ||
		dto.InvoiceNumber != nil ||
		dto.Reimbursable != nil ||
		dto.Notes != nil
}

func (dto UpdateExpenseDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if dto.Description != nil {
		v.Field("description", *dto.Description).Required().MaxLength(500)
	}
	if dto.Amount != nil {
		v.Field("amount", *dto.Amount).PositiveAmount()
	}
	if dto.Currency != nil {
		v.Field("currency", *dto.Currency).CurrencyCode()
	}
	if dto.PaymentMethod != nil {
		v.Field("payment_method", string(*dto.PaymentMethod)).
			OneOf(string(MethodCash), string(MethodCard), string(MethodBankTransfer), string(MethodOwnerAccount), string(MethodOther))
	}
	if dto.PaidBy != nil {
		v.Field("paid_by", string(*dto.PaidBy)).
			OneOf(string(PaidByVessel), string(PaidByCrewPersonal), string(PaidByOwner), string(PaidByCharterGuest))
	}
	if dto.ExpenseDate != nil {
		v.Field("expense_date", *dto.ExpenseDate).NotFuture()
	}
	if dto.Status != nil {
		v.Field("status", string(*dto.Status)).
			OneOf(string(StatusApproved), string(StatusRejected))
	}
	return v.Validate()
}

// fieldUpdates builds the column map for status-preserving field changes.
func (dto UpdateExpenseDTO) fieldUpdates() map[string]interface{} {
	updates := make(map[string]interface{})
	if dto.VoyageID != nil {
		updates["voyage_id"] = *dto.VoyageID
	}
	if dto.ExpenseDate != nil {
		updates["expense_date"] = *dto.ExpenseDate
	}
	if dto.CategoryID != nil {
		updates["category_id"] = *dto.CategoryID
	}
	if dto.CreditCardID != nil {
		updates["credit_card_id"] = *dto.CreditCardID
	}
	if dto.Description != nil {
		updates["description"] = *dto.Description
	}
	if dto.Amount != nil {
		updates["amount"] = *dto.Amount
	}
	if dto.Currency != nil {
		updates["currency"] = *dto.Currency
	}
	if dto.PaymentMethod != nil {
		updates["payment_method"] = *dto.PaymentMethod
	}
	if dto.PaidBy != nil {
		updates["paid_by"] = *dto.PaidBy
	}
	if dto.VendorName != nil {
		updates["vendor_name"] = *dto.VendorName
	}
	if dto.InvoiceNumber != nil {
		updates["invoice_number"] = *dto.InvoiceNumber
	}
	if dto.Reimbursable != nil {
		updates["is_reimbursable"] = *dto.Reimbursable
	}
	if dto.Notes != nil {
		updates["notes"] = *dto.Notes
	}
	return updates
}

// DeleteResult reports the outcome of a soft delete, including whether a
// compensating cash refund was issued.
type DeleteResult struct {
	Success  bool   `json:"success"`
	Refunded bool   `json:"refunded"`
	Message  string `json:"message"`
}
