package stats

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/authz"
)

type mockRepo struct {
	global     Summary
	facilities map[uuid.UUID]Summary
}

func (m *mockRepo) GlobalCounts(_ context.Context) (*Summary, error) {
	s := m.global
	return &s, nil
}

func (m *mockRepo) FacilityCounts(_ context.Context, facilityID uuid.UUID) (*Summary, error) {
	s := m.facilities[facilityID]
	return &s, nil
}

func TestDashboard(t *testing.T) {
	facilityA := uuid.New()
	repo := &mockRepo{
		global: Summary{Patients: 10, Consultations: 25, Users: 7},
		facilities: map[uuid.UUID]Summary{
			facilityA: {Patients: 4, Consultations: 9, Users: 3},
		},
	}
	svc := NewService(repo)

	t.Run("super-admin sees global counts", func(t *testing.T) {
		actor := authz.Actor{ID: uuid.New(), Role: authz.RoleAdmin}
		s, err := svc.Dashboard(context.Background(), actor)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Patients != 10 || s.Consultations != 25 || s.Users != 7 {
			t.Errorf("got %+v, want global counts", s)
		}
	})

	t.Run("facility accounts see scoped counts", func(t *testing.T) {
		for _, role := range []authz.Role{authz.RoleAdmin, authz.RoleClinician} {
			actor := authz.Actor{ID: uuid.New(), Role: role, FacilityID: &facilityA}
			s, err := svc.Dashboard(context.Background(), actor)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", role, err)
			}
			if s.Patients != 4 || s.Consultations != 9 || s.Users != 3 {
				t.Errorf("%s: got %+v, want facility counts", role, s)
			}
		}
	})

	t.Run("unattached clinician sees zeros", func(t *testing.T) {
		actor := authz.Actor{ID: uuid.New(), Role: authz.RoleClinician}
		s, err := svc.Dashboard(context.Background(), actor)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Patients != 0 || s.Consultations != 0 || s.Users != 0 {
			t.Errorf("got %+v, want zeros", s)
		}
	})
}
