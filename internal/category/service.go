package category

import (
	"log/slog"
	"strings"

	errors "github.com/harborops/fleetledger/internal"
	"github.com/harborops/fleetledger/internal/auth"
)

type RepositoryAPI interface {
	GetAll(vesselID int64) ([]*Category, error)
	GetByID(vesselID, id int64) (*Category, error)
	GetByName(vesselID int64, name string) (*Category, error)
	Create(category *Category) error
	Update(category *Category) error
}

type Service struct {
	repo        RepositoryAPI
	permissions auth.PermissionChecker
	logger      *slog.Logger
}

func NewService(repo RepositoryAPI, permissions auth.PermissionChecker, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		permissions: permissions,
		logger:      logger,
	}
}

// GetActiveCategories returns the categories offered in expense pickers.
func (s *Service) GetActiveCategories(actor auth.Actor) ([]*Category, error) {
	all, err := s.repo.GetAll(actor.VesselID)
	if err != nil {
		s.logger.Error("failed to get categories", "error", err, "vessel_id", actor.VesselID)
		return nil, errors.NewInternalError("failed to get categories", err)
	}

	active := make([]*Category, 0, len(all))
	for _, c := range all {
		if c.IsActive {
			active = append(active, c)
		}
	}
	return active, nil
}

func (s *Service) CreateCategory(actor auth.Actor, name, description string) (*Category, error) {
	if !s.permissions.Has(actor, auth.CapManageCatalog) {
		return nil, errors.ErrPermissionDenied
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewValidationError("category name is required", errors.ErrCodeValidationFailed)
	}

	existing, err := s.repo.GetByName(actor.VesselID, name)
	if err != nil {
		return nil, errors.NewInternalError("failed to check category name", err)
	}
	if existing != nil {
		return nil, errors.NewConflictError("a category with this name already exists", errors.ErrCodeValidationFailed)
	}

	c := NewCategory(actor.VesselID, name, description)
	if err := s.repo.Create(c); err != nil {
		s.logger.Error("failed to create category", "error", err, "name", name)
		return nil, errors.NewInternalError("failed to create category", err)
	}

	s.logger.Info("category created", "category_id", c.ID, "vessel_id", actor.VesselID, "name", name)
	return c, nil
}

func (s *Service) DeactivateCategory(actor auth.Actor, id int64) (*Category, error) {
	return s.setActive(actor, id, false)
}

func (s *Service) ActivateCategory(actor auth.Actor, id int64) (*Category, error) {
	return s.setActive(actor, id, true)
}

func (s *Service) setActive(actor auth.Actor, id int64, active bool) (*Category, error) {
	if !s.permissions.Has(actor, auth.CapManageCatalog) {
		return nil, errors.ErrPermissionDenied
	}

	c, err := s.repo.GetByID(actor.VesselID, id)
	if err != nil {
		return nil, errors.NewInternalError("failed to get category", err)
	}
	if c == nil {
		return nil, errors.ErrCategoryNotFound
	}

	if active {
		c.Activate()
	} else {
		c.Deactivate()
	}

	if err := s.repo.Update(c); err != nil {
		return nil, errors.NewInternalError("failed to update category", err)
	}
	return c, nil
}
