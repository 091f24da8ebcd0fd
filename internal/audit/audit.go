package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Action identifies the state change an audit entry records.
type Action string

const (
	ActionCreate    Action = "CREATE"
	ActionUpdate    Action = "UPDATE"
	ActionApprove   Action = "APPROVE"
	ActionReject    Action = "REJECT"
	ActionReimburse Action = "REIMBURSE"
	ActionDelete    Action = "DELETE"
	ActionDeposit   Action = "DEPOSIT"
)

// Entry is one append-only audit record. Changes is serialized to JSON at
// write time; entries are never updated or deleted.
type Entry struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	VesselID    int64          `json:"vessel_id" gorm:"column:vessel_id;not null;index"`
	UserID      int64          `json:"user_id" gorm:"column:user_id;not null"`
	Action      Action         `json:"action" gorm:"type:varchar(20);not null;index"`
	EntityType  string         `json:"entity_type" gorm:"type:varchar(50);not null"`
	EntityID    int64          `json:"entity_id" gorm:"column:entity_id;index"`
	Changes     map[string]any `json:"changes,omitempty" gorm:"-"`
	ChangesJSON string         `json:"-" gorm:"column:changes"`
	Description string         `json:"description" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at" gorm:"column:created_at;index"`
}

func (Entry) TableName() string {
	return "audit_logs"
}

// Recorder is the sink every state-changing ledger operation writes to before
// it is considered complete. Implementations must not fail the business
// operation; errors are logged by the caller.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

type Repository interface {
	Create(entry *Entry) error
	List(vesselID int64, limit, offset int) ([]*Entry, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record persists the entry, filling in id, timestamp and the serialized
// changes payload.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()

	if entry.Changes != nil {
		raw, err := json.Marshal(entry.Changes)
		if err != nil {
			s.logger.Error("failed to serialize audit changes", "error", err, "entity_id", entry.EntityID)
		} else {
			entry.ChangesJSON = string(raw)
		}
	}

	if err := s.repo.Create(&entry); err != nil {
		s.logger.Error("failed to record audit entry",
			"error", err,
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID)
		return err
	}

	return nil
}

func (s *Service) ListEntries(vesselID int64, limit, offset int) ([]*Entry, error) {
	entries, err := s.repo.List(vesselID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list audit entries", "error", err, "vessel_id", vesselID)
		return nil, err
	}

	for _, e := range entries {
		if e.ChangesJSON != "" {
			var changes map[string]any
			if err := json.Unmarshal([]byte(e.ChangesJSON), &changes); err == nil {
				e.Changes = changes
			}
		}
	}

	return entries, nil
}
