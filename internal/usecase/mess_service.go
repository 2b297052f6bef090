package usecase

import (
	"strings"
	"time"

	"mess-backend/internal/domain"
)

type MessRepo interface {
	PutMess(*domain.Mess) error
	GetMess(id string) (*domain.Mess, bool)
	ListMesses() ([]domain.Mess, error)
}

type MessService struct {
	Repo MessRepo
}

// Register creates the owner's mess. A mess is keyed by its owner's
// user id, so each owner has exactly one.
func (s *MessService) Register(ownerID, name, description, location string) (*domain.Mess, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrBadRequest("mess name required")
	}
	if _, ok := s.Repo.GetMess(ownerID); ok {
		return nil, ErrConflict("mess already registered")
	}
	now := time.Now().UTC()
	m := &domain.Mess{
		ID:          ownerID,
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Location:    strings.TrimSpace(location),
		Menu:        []domain.MenuItem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.PutMess(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MessService) List() ([]domain.Mess, error) {
	return s.Repo.ListMesses()
}

func (s *MessService) Get(id string) (*domain.Mess, error) {
	m, ok := s.Repo.GetMess(id)
	if !ok {
		return nil, ErrNotFound("mess")
	}
	return m, nil
}

// UpdateMenu replaces the mess menu wholesale, the way the owner
// dashboard saves it.
func (s *MessService) UpdateMenu(ownerID string, menu []domain.MenuItem) (*domain.Mess, error) {
	m, ok := s.Repo.GetMess(ownerID)
	if !ok {
		return nil, ErrNotFound("mess")
	}
	for _, it := range menu {
		if strings.TrimSpace(it.Name) == "" || it.Price < 0 {
			return nil, ErrBadRequest("invalid menu item")
		}
	}
	m.Menu = menu
	m.UpdatedAt = time.Now().UTC()
	if err := s.Repo.PutMess(m); err != nil {
		return nil, err
	}
	return m, nil
}
