package postgres

import (
	"github.com/harborops/fleetledger/internal/audit"
	"gorm.io/gorm"
)

// AuditRepository persists audit entries through GORM. Entries are insert-only.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(entry *audit.Entry) error {
	return r.db.Create(entry).Error
}

func (r *AuditRepository) List(vesselID int64, limit, offset int) ([]*audit.Entry, error) {
	var entries []*audit.Entry
	err := r.db.Where("vessel_id = ?", vesselID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}
