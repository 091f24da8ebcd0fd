package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	TypeExpenseChanged = "expense.changed"
	TypeCashChanged    = "cash.changed"
)

// NewExpenseChangedEvent announces that an expense mutated, so listing views
// and caches scoped to the vessel can refresh.
func NewExpenseChangedEvent(vesselID, expenseID int64, change string) Event {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      TypeExpenseChanged,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"vessel_id":  vesselID,
			"expense_id": expenseID,
			"change":     change,
		},
	}
}

// NewCashChangedEvent announces a cash transaction was added to the ledger.
func NewCashChangedEvent(vesselID int64, txID int64) Event {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      TypeCashChanged,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"vessel_id":      vesselID,
			"transaction_id": txID,
		},
	}
}

// BusInvalidator publishes change events onto the bus. It satisfies the
// expense service's cache invalidation hook; delivery is best effort.
type BusInvalidator struct {
	bus    *Bus
	logger *slog.Logger
}

func NewBusInvalidator(bus *Bus, logger *slog.Logger) *BusInvalidator {
	return &BusInvalidator{bus: bus, logger: logger}
}

func (i *BusInvalidator) ExpenseChanged(vesselID, expenseID int64, change string) {
	if err := i.bus.Publish(context.Background(), NewExpenseChangedEvent(vesselID, expenseID, change)); err != nil {
		i.logger.Warn("expense change event not published", "error", err, "expense_id", expenseID)
	}
}

func (i *BusInvalidator) CashChanged(vesselID, txID int64) {
	if err := i.bus.Publish(context.Background(), NewCashChangedEvent(vesselID, txID)); err != nil {
		i.logger.Warn("cash change event not published", "error", err, "transaction_id", txID)
	}
}
