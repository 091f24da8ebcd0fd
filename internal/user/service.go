package user

import (
	"fmt"

	errors "github.com/harborops/fleetledger/internal"
	"github.com/harborops/fleetledger/internal/auth"
)

type Repository interface {
	GetByID(id int64) (*User, error)
	GetByEmail(email string) (*User, error)
	ListByVessel(vesselID int64) ([]*User, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetCurrentUser returns the directory entry for the calling actor.
func (s *Service) GetCurrentUser(actor auth.Actor) (*User, error) {
	u, err := s.repo.GetByID(actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	if u == nil || u.VesselID != actor.VesselID {
		return nil, errors.ErrUserNotFound
	}
	return u, nil
}

// ListCrew returns the vessel directory.
func (s *Service) ListCrew(actor auth.Actor) ([]*User, error) {
	users, err := s.repo.ListByVessel(actor.VesselID)
	if err != nil {
		return nil, fmt.Errorf("failed to list crew: %w", err)
	}
	return users, nil
}
