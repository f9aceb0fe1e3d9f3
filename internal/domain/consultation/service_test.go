package consultation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/audit"
	"github.com/medrec/medrec/internal/platform/authz"
	"github.com/medrec/medrec/internal/platform/forms"
)

type sectionKey struct {
	patient uuid.UUID
	typeID  uuid.UUID
}

type mockRepo struct {
	types     map[uuid.UUID]*Type
	templates []*Template
	sections  map[sectionKey]*Section
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		types:    make(map[uuid.UUID]*Type),
		sections: make(map[sectionKey]*Section),
	}
}

func (m *mockRepo) CreateType(_ context.Context, t *Type) error {
	for _, existing := range m.types {
		if !existing.Deleted && existing.Slug == t.Slug {
			return apperr.Newf(apperr.KindConflict, "slug %q already exists", t.Slug)
		}
	}
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.types[t.ID] = t
	return nil
}

func (m *mockRepo) UpdateType(_ context.Context, t *Type) error {
	existing, ok := m.types[t.ID]
	if !ok || existing.Deleted {
		return apperr.New(apperr.KindNotFound, "consultation type not found")
	}
	m.types[t.ID] = t
	return nil
}

func (m *mockRepo) DeleteType(_ context.Context, id uuid.UUID) error {
	t, ok := m.types[id]
	if !ok || t.Deleted {
		return apperr.New(apperr.KindNotFound, "consultation type not found")
	}
	t.Deleted = true
	return nil
}

func (m *mockRepo) ListTypes(_ context.Context) ([]*Type, error) {
	var out []*Type
	for _, t := range m.types {
		if !t.Deleted {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockRepo) GetTypeByID(_ context.Context, id uuid.UUID) (*Type, error) {
	t, ok := m.types[id]
	if !ok || t.Deleted {
		return nil, apperr.New(apperr.KindNotFound, "consultation type not found")
	}
	return t, nil
}

func (m *mockRepo) GetTypeBySlug(_ context.Context, slug string) (*Type, error) {
	for _, t := range m.types {
		if !t.Deleted && t.Slug == slug {
			return t, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "consultation type not found")
}

func (m *mockRepo) CreateTemplate(_ context.Context, t *Template, activate bool) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	t.IsActive = activate
	if activate {
		for _, existing := range m.templates {
			if existing.ConsultationTypeID == t.ConsultationTypeID {
				existing.IsActive = false
			}
		}
	}
	// prepend: newest first
	m.templates = append([]*Template{t}, m.templates...)
	return nil
}

func (m *mockRepo) ListTemplates(_ context.Context, typeID uuid.UUID) ([]*Template, error) {
	var out []*Template
	for _, t := range m.templates {
		if t.ConsultationTypeID == typeID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockRepo) GetActiveTemplate(_ context.Context, typeID uuid.UUID) (*Template, error) {
	for _, t := range m.templates {
		if t.ConsultationTypeID == typeID && t.IsActive {
			return t, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "template not found")
}

func (m *mockRepo) ActivateTemplate(_ context.Context, id uuid.UUID) error {
	var target *Template
	for _, t := range m.templates {
		if t.ID == id {
			target = t
		}
	}
	if target == nil {
		return apperr.New(apperr.KindNotFound, "template not found")
	}
	for _, t := range m.templates {
		if t.ConsultationTypeID == target.ConsultationTypeID {
			t.IsActive = false
		}
	}
	target.IsActive = true
	return nil
}

func (m *mockRepo) DeleteTemplate(_ context.Context, id uuid.UUID) error {
	for i, t := range m.templates {
		if t.ID == id {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			return nil
		}
	}
	return apperr.New(apperr.KindNotFound, "template not found")
}

func (m *mockRepo) UpsertSection(_ context.Context, s *Section) error {
	key := sectionKey{patient: s.PatientID, typeID: s.ConsultationTypeID}
	if existing, ok := m.sections[key]; ok {
		existing.Data = s.Data
		existing.UpdatedBy = s.UpdatedBy
		existing.UpdatedAt = time.Now()
		*s = *existing
		return nil
	}
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	m.sections[key] = s
	return nil
}

func (m *mockRepo) SectionsByPatient(_ context.Context, patientID uuid.UUID) (map[string]map[string]any, error) {
	out := make(map[string]map[string]any)
	for key, s := range m.sections {
		if key.patient != patientID {
			continue
		}
		if t, ok := m.types[key.typeID]; ok && !t.Deleted {
			out[t.Slug] = s.Data
		}
	}
	return out, nil
}

type mockGate struct {
	denied map[uuid.UUID]error
}

func (m *mockGate) CanAccess(_ context.Context, _ authz.Actor, patientID uuid.UUID) error {
	if err, ok := m.denied[patientID]; ok {
		return err
	}
	return nil
}

var admin = authz.Actor{ID: uuid.New(), Role: authz.RoleAdmin}

func clinician() authz.Actor {
	facility := uuid.New()
	return authz.Actor{ID: uuid.New(), Role: authz.RoleClinician, FacilityID: &facility}
}

func newTestService(repo Repository, gate PatientGate) *Service {
	if gate == nil {
		gate = &mockGate{}
	}
	return NewService(repo, gate, audit.NopRecorder{})
}

func simpleStructure() forms.Structure {
	return forms.Structure{Sections: []forms.Section{{Fields: []forms.Field{
		{Type: "Input", Name: "notes"},
		{Type: "Radio", Name: "asa", Required: true, Options: []forms.Option{{Value: "1"}, {Value: "2"}}},
	}}}}
}

func TestTypes(t *testing.T) {
	t.Run("create normalizes the slug", func(t *testing.T) {
		svc := newTestService(newMockRepo(), nil)
		typ, err := svc.CreateType(context.Background(), admin, " Anesthesia ", "Anesthésie", 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if typ.Slug != "anesthesia" {
			t.Errorf("slug = %q, want anesthesia", typ.Slug)
		}
	})

	t.Run("duplicate slug conflicts", func(t *testing.T) {
		svc := newTestService(newMockRepo(), nil)
		if _, err := svc.CreateType(context.Background(), admin, "anesthesia", "A", 0); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := svc.CreateType(context.Background(), admin, "anesthesia", "B", 1); !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("expected conflict, got %v", err)
		}
	})

	t.Run("clinician may not mutate", func(t *testing.T) {
		svc := newTestService(newMockRepo(), nil)
		if _, err := svc.CreateType(context.Background(), clinician(), "x", "X", 0); !apperr.Is(err, apperr.KindForbidden) {
			t.Errorf("expected forbidden, got %v", err)
		}
	})

	t.Run("soft delete hides the type", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo, nil)
		typ, err := svc.CreateType(context.Background(), admin, "anesthesia", "A", 0)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := svc.DeleteType(context.Background(), admin, typ.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		types, err := svc.ListTypes(context.Background())
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(types) != 0 {
			t.Errorf("got %d types, want 0", len(types))
		}
	})
}

func TestTemplates(t *testing.T) {
	setup := func(t *testing.T) (*Service, *mockRepo, *Type) {
		repo := newMockRepo()
		svc := newTestService(repo, nil)
		typ, err := svc.CreateType(context.Background(), admin, "anesthesia", "Anesthésie", 0)
		if err != nil {
			t.Fatalf("create type: %v", err)
		}
		return svc, repo, typ
	}

	t.Run("activation replaces the active version atomically", func(t *testing.T) {
		svc, repo, typ := setup(t)

		v1, err := svc.CreateTemplate(context.Background(), admin, typ.ID, "v1", simpleStructure(), "## v1", true)
		if err != nil {
			t.Fatalf("create v1: %v", err)
		}
		v2, err := svc.CreateTemplate(context.Background(), admin, typ.ID, "v2", simpleStructure(), "## v2", true)
		if err != nil {
			t.Fatalf("create v2: %v", err)
		}

		active, err := svc.GetActiveBySlug(context.Background(), "anesthesia")
		if err != nil {
			t.Fatalf("get active: %v", err)
		}
		if active.ID != v2.ID {
			t.Error("v2 must be the active version")
		}

		count := 0
		for _, tmpl := range repo.templates {
			if tmpl.ConsultationTypeID == typ.ID && tmpl.IsActive {
				count++
			}
		}
		if count != 1 {
			t.Errorf("got %d active versions, want exactly 1", count)
		}

		if err := svc.ActivateTemplate(context.Background(), admin, v1.ID); err != nil {
			t.Fatalf("activate v1: %v", err)
		}
		active, err = svc.GetActiveBySlug(context.Background(), "anesthesia")
		if err != nil {
			t.Fatalf("get active: %v", err)
		}
		if active.ID != v1.ID {
			t.Error("v1 must be active after re-activation")
		}
	})

	t.Run("inactive creation leaves the active version alone", func(t *testing.T) {
		svc, _, typ := setup(t)
		v1, err := svc.CreateTemplate(context.Background(), admin, typ.ID, "v1", simpleStructure(), "", true)
		if err != nil {
			t.Fatalf("create v1: %v", err)
		}
		if _, err := svc.CreateTemplate(context.Background(), admin, typ.ID, "v2", simpleStructure(), "", false); err != nil {
			t.Fatalf("create v2: %v", err)
		}
		active, err := svc.GetActiveBySlug(context.Background(), "anesthesia")
		if err != nil {
			t.Fatalf("get active: %v", err)
		}
		if active.ID != v1.ID {
			t.Error("v1 must stay active")
		}
	})

	t.Run("versions list newest first", func(t *testing.T) {
		svc, _, typ := setup(t)
		for _, v := range []string{"v1", "v2", "v3"} {
			if _, err := svc.CreateTemplate(context.Background(), admin, typ.ID, v, simpleStructure(), "", false); err != nil {
				t.Fatalf("create %s: %v", v, err)
			}
		}
		templates, err := svc.ListTemplates(context.Background(), admin, typ.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(templates) != 3 || templates[0].Version != "v3" {
			t.Errorf("expected newest first, got %d templates", len(templates))
		}
	})

	t.Run("unnamed field is rejected", func(t *testing.T) {
		svc, _, typ := setup(t)
		bad := forms.Structure{Sections: []forms.Section{{Fields: []forms.Field{{Type: "Input"}}}}}
		if _, err := svc.CreateTemplate(context.Background(), admin, typ.ID, "v1", bad, "", false); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("unknown type is not found", func(t *testing.T) {
		svc, _, _ := setup(t)
		if _, err := svc.CreateTemplate(context.Background(), admin, uuid.New(), "v1", simpleStructure(), "", false); !apperr.Is(err, apperr.KindNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestValidateSubmission(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, nil)
	typ, err := svc.CreateType(context.Background(), admin, "anesthesia", "A", 0)
	if err != nil {
		t.Fatalf("create type: %v", err)
	}
	if _, err := svc.CreateTemplate(context.Background(), admin, typ.ID, "v1", simpleStructure(), "", true); err != nil {
		t.Fatalf("create template: %v", err)
	}

	if err := svc.ValidateSubmission(context.Background(), "anesthesia", map[string]any{"asa": "2", "notes": "RAS"}); err != nil {
		t.Errorf("valid submission rejected: %v", err)
	}
	if err := svc.ValidateSubmission(context.Background(), "anesthesia", map[string]any{"asa": "9"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := svc.ValidateSubmission(context.Background(), "anesthesia", nil); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for nil data, got %v", err)
	}
}

func TestSaveSection(t *testing.T) {
	setup := func(t *testing.T, gate PatientGate) (*Service, *Type) {
		repo := newMockRepo()
		svc := newTestService(repo, gate)
		typ, err := svc.CreateType(context.Background(), admin, "anesthesia", "A", 0)
		if err != nil {
			t.Fatalf("create type: %v", err)
		}
		return svc, typ
	}

	t.Run("upsert keeps one row per patient and type", func(t *testing.T) {
		svc, typ := setup(t, nil)
		actor := clinician()
		patientID := uuid.New()

		first, err := svc.SaveSection(context.Background(), actor, patientID, typ.ID, map[string]any{"asa": "1"})
		if err != nil {
			t.Fatalf("first save: %v", err)
		}
		second, err := svc.SaveSection(context.Background(), actor, patientID, typ.ID, map[string]any{"asa": "2"})
		if err != nil {
			t.Fatalf("second save: %v", err)
		}
		if second.ID != first.ID {
			t.Error("second save must update the existing row")
		}
		if second.Data["asa"] != "2" {
			t.Errorf("data = %v, want asa=2", second.Data)
		}
	})

	t.Run("out-of-scope patient is rejected", func(t *testing.T) {
		patientID := uuid.New()
		gate := &mockGate{denied: map[uuid.UUID]error{
			patientID: apperr.New(apperr.KindForbidden, "patient belongs to another facility"),
		}}
		svc, typ := setup(t, gate)
		if _, err := svc.SaveSection(context.Background(), clinician(), patientID, typ.ID, map[string]any{}); !apperr.Is(err, apperr.KindForbidden) {
			t.Errorf("expected forbidden, got %v", err)
		}
	})

	t.Run("nil data is rejected", func(t *testing.T) {
		svc, typ := setup(t, nil)
		if _, err := svc.SaveSection(context.Background(), clinician(), uuid.New(), typ.ID, nil); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("unknown type is not found", func(t *testing.T) {
		svc, _ := setup(t, nil)
		if _, err := svc.SaveSection(context.Background(), clinician(), uuid.New(), uuid.New(), map[string]any{}); !apperr.Is(err, apperr.KindNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("sections key by slug", func(t *testing.T) {
		repo := newMockRepo()
		svc := newTestService(repo, nil)
		typ, err := svc.CreateType(context.Background(), admin, "anesthesia", "A", 0)
		if err != nil {
			t.Fatalf("create type: %v", err)
		}
		patientID := uuid.New()
		if _, err := svc.SaveSection(context.Background(), clinician(), patientID, typ.ID, map[string]any{"asa": "2"}); err != nil {
			t.Fatalf("save: %v", err)
		}

		sections, err := repo.SectionsByPatient(context.Background(), patientID)
		if err != nil {
			t.Fatalf("sections: %v", err)
		}
		if sections["anesthesia"]["asa"] != "2" {
			t.Errorf("sections = %v", sections)
		}
	})
}
