// Package stats serves the dashboard counters. Counts are global for
// super-admins and facility-scoped for everyone else.
package stats

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medrec/medrec/internal/platform/authz"
)

// Summary holds the dashboard counters. Archived patients are excluded;
// their consultation rows are not.
type Summary struct {
	Patients      int64 `json:"patients"`
	Consultations int64 `json:"consultations"`
	Users         int64 `json:"users"`
}

type Repository interface {
	GlobalCounts(ctx context.Context) (*Summary, error)
	FacilityCounts(ctx context.Context, facilityID uuid.UUID) (*Summary, error)
}

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) GlobalCounts(ctx context.Context) (*Summary, error) {
	s := &Summary{}
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patients WHERE NOT deleted),
			(SELECT COUNT(*) FROM patient_consultations),
			(SELECT COUNT(*) FROM users)`,
	).Scan(&s.Patients, &s.Consultations, &s.Users)
	if err != nil {
		return nil, fmt.Errorf("global counts: %w", err)
	}
	return s, nil
}

func (r *repoPG) FacilityCounts(ctx context.Context, facilityID uuid.UUID) (*Summary, error) {
	s := &Summary{}
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patients WHERE facility_id = $1 AND NOT deleted),
			(SELECT COUNT(*) FROM patient_consultations pc
				JOIN patients p ON p.id = pc.patient_id
				WHERE p.facility_id = $1),
			(SELECT COUNT(*) FROM users WHERE facility_id = $1)`,
		facilityID,
	).Scan(&s.Patients, &s.Consultations, &s.Users)
	if err != nil {
		return nil, fmt.Errorf("facility counts: %w", err)
	}
	return s, nil
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Dashboard returns the counters visible to the actor. Accounts without a
// facility that are not super-admins see zeros rather than an error; they
// have nothing in scope yet.
func (s *Service) Dashboard(ctx context.Context, actor authz.Actor) (*Summary, error) {
	if actor.IsSuperAdmin() {
		return s.repo.GlobalCounts(ctx)
	}
	if actor.FacilityID == nil {
		return &Summary{}, nil
	}
	return s.repo.FacilityCounts(ctx, *actor.FacilityID)
}
