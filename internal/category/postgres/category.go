package postgres

import (
	"gorm.io/gorm"

	"github.com/harborops/fleetledger/internal/category"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) category.RepositoryAPI {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) GetAll(vesselID int64) ([]*category.Category, error) {
	var categories []*category.Category
	err := r.db.Where("vessel_id = ?", vesselID).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *CategoryRepository) GetByID(vesselID, id int64) (*category.Category, error) {
	var cat category.Category
	err := r.db.Where("vessel_id = ? AND id = ?", vesselID, id).First(&cat).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &cat, nil
}

func (r *CategoryRepository) GetByName(vesselID int64, name string) (*category.Category, error) {
	var cat category.Category
	err := r.db.Where("vessel_id = ? AND name = ?", vesselID, name).First(&cat).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &cat, nil
}

func (r *CategoryRepository) Create(cat *category.Category) error {
	return r.db.Create(cat).Error
}

func (r *CategoryRepository) Update(cat *category.Category) error {
	return r.db.Save(cat).Error
}
