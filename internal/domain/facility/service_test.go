package facility

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/authz"
)

type mockRepo struct {
	facilities map[uuid.UUID]*Facility
}

func newMockRepo() *mockRepo {
	return &mockRepo{facilities: make(map[uuid.UUID]*Facility)}
}

func (m *mockRepo) Create(_ context.Context, f *Facility) error {
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	m.facilities[f.ID] = f
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Facility, error) {
	f, ok := m.facilities[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "facility not found")
	}
	return f, nil
}

func (m *mockRepo) Update(_ context.Context, f *Facility) error {
	if _, ok := m.facilities[f.ID]; !ok {
		return apperr.New(apperr.KindNotFound, "facility not found")
	}
	m.facilities[f.ID] = f
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.facilities[id]; !ok {
		return apperr.New(apperr.KindNotFound, "facility not found")
	}
	delete(m.facilities, id)
	return nil
}

func (m *mockRepo) List(_ context.Context) ([]*Facility, error) {
	var out []*Facility
	for _, f := range m.facilities {
		out = append(out, f)
	}
	return out, nil
}

var superAdmin = authz.Actor{ID: uuid.New(), Role: authz.RoleAdmin}

func facilityAdmin() authz.Actor {
	facility := uuid.New()
	return authz.Actor{ID: uuid.New(), Role: authz.RoleAdmin, FacilityID: &facility}
}

func TestCreateFacility(t *testing.T) {
	t.Run("super admin creates", func(t *testing.T) {
		svc := NewService(newMockRepo())
		f, err := svc.Create(context.Background(), superAdmin, "CHU de Nantes", "Nantes")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.ID == uuid.Nil {
			t.Error("expected assigned id")
		}
		if f.Name != "CHU de Nantes" || f.City != "Nantes" {
			t.Errorf("unexpected facility %+v", f)
		}
	})

	t.Run("facility admin is rejected", func(t *testing.T) {
		svc := NewService(newMockRepo())
		_, err := svc.Create(context.Background(), facilityAdmin(), "CHU de Nantes", "Nantes")
		if !apperr.Is(err, apperr.KindForbidden) {
			t.Errorf("expected forbidden, got %v", err)
		}
	})

	t.Run("blank fields are rejected", func(t *testing.T) {
		svc := NewService(newMockRepo())
		_, err := svc.Create(context.Background(), superAdmin, "  ", "Nantes")
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestUpdateFacility(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), superAdmin, "CHU de Nantes", "Nantes")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("updates fields", func(t *testing.T) {
		f, err := svc.Update(context.Background(), superAdmin, created.ID, "CHU de Rennes", "Rennes")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Name != "CHU de Rennes" || f.City != "Rennes" {
			t.Errorf("unexpected facility %+v", f)
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := svc.Update(context.Background(), superAdmin, uuid.New(), "X", "Y")
		if !apperr.Is(err, apperr.KindNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("facility admin is rejected", func(t *testing.T) {
		_, err := svc.Update(context.Background(), facilityAdmin(), created.ID, "X", "Y")
		if !apperr.Is(err, apperr.KindForbidden) {
			t.Errorf("expected forbidden, got %v", err)
		}
	})
}

func TestDeleteFacility(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), superAdmin, "CHU de Nantes", "Nantes")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(context.Background(), facilityAdmin(), created.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("expected forbidden for facility admin, got %v", err)
	}

	if err := svc.Delete(context.Background(), superAdmin, created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(context.Background(), superAdmin, created.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestListFacilities(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	for _, name := range []string{"CHU de Nantes", "CHU de Rennes"} {
		if _, err := svc.Create(context.Background(), superAdmin, name, "Ville"); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	t.Run("admins may list", func(t *testing.T) {
		out, err := svc.List(context.Background(), facilityAdmin())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out) != 2 {
			t.Errorf("got %d facilities, want 2", len(out))
		}
	})

	t.Run("clinicians may not list", func(t *testing.T) {
		clinician := authz.Actor{ID: uuid.New(), Role: authz.RoleClinician}
		if _, err := svc.List(context.Background(), clinician); !apperr.Is(err, apperr.KindForbidden) {
			t.Errorf("expected forbidden, got %v", err)
		}
	})
}
