package postgres

import (
	"gorm.io/gorm"

	"github.com/harborops/fleetledger/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(id int64) (*user.User, error) {
	var u user.User
	err := r.db.Where("id = ? AND is_active = ?", id, true).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(email string) (*user.User, error) {
	var u user.User
	err := r.db.Where("email = ?", email).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) ListByVessel(vesselID int64) ([]*user.User, error) {
	var users []*user.User
	err := r.db.Where("vessel_id = ? AND is_active = ?", vesselID, true).
		Order("name ASC").
		Find(&users).Error
	return users, err
}
