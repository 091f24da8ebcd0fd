package category

import "time"

// Category is a vessel-scoped expense category. Deactivated categories stay
// referenced by historical expenses but are hidden from pickers.
type Category struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	VesselID    int64     `json:"vessel_id" gorm:"column:vessel_id;not null;index"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

func (c *Category) Activate() {
	c.IsActive = true
	c.UpdatedAt = time.Now()
}

func (c *Category) Deactivate() {
	c.IsActive = false
	c.UpdatedAt = time.Now()
}

func NewCategory(vesselID int64, name, description string) *Category {
	now := time.Now()
	return &Category{
		VesselID:    vesselID,
		Name:        name,
		Description: description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
