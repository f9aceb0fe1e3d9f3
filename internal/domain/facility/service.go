package facility

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/authz"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, actor authz.Actor, name, city string) (*Facility, error) {
	if !actor.CanManageFacilities() {
		return nil, apperr.New(apperr.KindForbidden, "facility management requires platform admin")
	}
	name = strings.TrimSpace(name)
	city = strings.TrimSpace(city)
	if name == "" || city == "" {
		return nil, apperr.New(apperr.KindValidation, "name and city are required")
	}

	f := &Facility{Name: name, City: city}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*Facility, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "admin access required")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, name, city string) (*Facility, error) {
	if !actor.CanManageFacilities() {
		return nil, apperr.New(apperr.KindForbidden, "facility management requires platform admin")
	}
	name = strings.TrimSpace(name)
	city = strings.TrimSpace(city)
	if name == "" || city == "" {
		return nil, apperr.New(apperr.KindValidation, "name and city are required")
	}

	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f.Name = name
	f.City = city
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if !actor.CanManageFacilities() {
		return apperr.New(apperr.KindForbidden, "facility management requires platform admin")
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, actor authz.Actor) ([]*Facility, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "admin access required")
	}
	return s.repo.List(ctx)
}
