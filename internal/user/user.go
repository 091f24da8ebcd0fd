package user

import (
	"time"

	"github.com/harborops/fleetledger/internal/auth"
)

// User is a crew member in the vessel directory. Credentials live at the
// gateway; the hash here only backs local seeding and tooling.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	VesselID     int64     `json:"vessel_id" gorm:"column:vessel_id;not null;index"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	Name         string    `json:"name" gorm:"not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	Role         auth.Role `json:"role" gorm:"type:varchar(20);not null"`
	GrantsCSV    string    `json:"-" gorm:"column:grants"`
	IsActive     bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Capabilities resolves the stored comma-separated grants, dropping anything
// unrecognized.
func (u *User) Capabilities() []auth.Capability {
	return auth.ParseGrants(u.GrantsCSV)
}
