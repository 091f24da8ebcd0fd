package cashledger

import (
	"github.com/shopspring/decimal"

	errors "github.com/harborops/fleetledger/internal"
	"github.com/harborops/fleetledger/internal/validation"
)

// CreateDepositDTO is the request payload for a manual cash float top-up.
type CreateDepositDTO struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

func (dto CreateDepositDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("amount", dto.Amount).Required().PositiveAmount()
	v.Field("currency", dto.Currency).Required().CurrencyCode()
	v.Field("description", dto.Description).MaxLength(500)
	return v.Validate()
}

// BalanceResponse is the derived running balance for a vessel.
type BalanceResponse struct {
	VesselID int64           `json:"vessel_id"`
	Balance  decimal.Decimal `json:"balance"`
}
