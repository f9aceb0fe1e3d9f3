package consultation

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/audit"
	"github.com/medrec/medrec/internal/platform/authz"
	"github.com/medrec/medrec/internal/platform/forms"
)

// PatientGate answers whether an actor may touch a patient's record.
// Implemented by the patient service so scope rules live in one place.
type PatientGate interface {
	CanAccess(ctx context.Context, actor authz.Actor, patientID uuid.UUID) error
}

type Service struct {
	repo     Repository
	patients PatientGate
	audit    audit.Recorder
}

func NewService(repo Repository, patients PatientGate, recorder audit.Recorder) *Service {
	return &Service{repo: repo, patients: patients, audit: recorder}
}

// -- Types --

func (s *Service) ListTypes(ctx context.Context) ([]*Type, error) {
	return s.repo.ListTypes(ctx)
}

func (s *Service) CreateType(ctx context.Context, actor authz.Actor, slug, name string, order int) (*Type, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "admin access required")
	}
	slug = strings.TrimSpace(strings.ToLower(slug))
	name = strings.TrimSpace(name)
	if slug == "" || name == "" {
		return nil, apperr.New(apperr.KindValidation, "slug and name are required")
	}

	t := &Type{Slug: slug, Name: name, Order: order}
	if err := s.repo.CreateType(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) UpdateType(ctx context.Context, actor authz.Actor, id uuid.UUID, name string, order int) (*Type, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "admin access required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.KindValidation, "name is required")
	}

	t, err := s.repo.GetTypeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Name = name
	t.Order = order
	if err := s.repo.UpdateType(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) DeleteType(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return apperr.New(apperr.KindForbidden, "admin access required")
	}
	return s.repo.DeleteType(ctx, id)
}

// -- Templates --

// validateStructure rejects structures whose fields could never be keyed in
// an answer object.
func validateStructure(structure forms.Structure) error {
	var check func(fields []forms.Field) error
	check = func(fields []forms.Field) error {
		for _, f := range fields {
			if strings.TrimSpace(f.Name) == "" {
				return apperr.New(apperr.KindValidation, "every field needs a name")
			}
			if err := check(f.Fields); err != nil {
				return err
			}
			for _, opt := range f.Options {
				if err := check(opt.Fields); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, section := range structure.Sections {
		if err := check(section.Fields); err != nil {
			return err
		}
	}
	return nil
}

// CreateTemplate adds a new version for a type. With activate set, the new
// version atomically replaces the currently active one.
func (s *Service) CreateTemplate(ctx context.Context, actor authz.Actor, typeID uuid.UUID, version string, structure forms.Structure, template string, activate bool) (*Template, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "admin access required")
	}
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, apperr.New(apperr.KindValidation, "version is required")
	}
	if err := validateStructure(structure); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetTypeByID(ctx, typeID); err != nil {
		return nil, err
	}

	t := &Template{
		ConsultationTypeID: typeID,
		Version:            version,
		Structure:          structure,
		Template:           template,
	}
	if err := s.repo.CreateTemplate(ctx, t, activate); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		ActorEmail: actor.Email,
		Action:     "template.create",
		Resource:   "consultation_templates",
		ResourceID: &t.ID,
		Outcome:    audit.OutcomeSuccess,
		Metadata:   map[string]any{"version": version, "active": activate},
	})
	return t, nil
}

func (s *Service) ListTemplates(ctx context.Context, actor authz.Actor, typeID uuid.UUID) ([]*Template, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "admin access required")
	}
	if _, err := s.repo.GetTypeByID(ctx, typeID); err != nil {
		return nil, err
	}
	return s.repo.ListTemplates(ctx, typeID)
}

// GetActiveBySlug returns the active template for a type. Clinicians call
// this to render the form.
func (s *Service) GetActiveBySlug(ctx context.Context, slug string) (*Template, error) {
	t, err := s.repo.GetTypeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.repo.GetActiveTemplate(ctx, t.ID)
}

func (s *Service) ActivateTemplate(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return apperr.New(apperr.KindForbidden, "admin access required")
	}
	if err := s.repo.ActivateTemplate(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		ActorEmail: actor.Email,
		Action:     "template.activate",
		Resource:   "consultation_templates",
		ResourceID: &id,
		Outcome:    audit.OutcomeSuccess,
	})
	return nil
}

func (s *Service) DeleteTemplate(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return apperr.New(apperr.KindForbidden, "admin access required")
	}
	return s.repo.DeleteTemplate(ctx, id)
}

// ValidateSubmission checks an answer object against the active template of
// the type. Used by clients before saving a section.
func (s *Service) ValidateSubmission(ctx context.Context, slug string, answers map[string]any) error {
	if answers == nil {
		return apperr.New(apperr.KindValidation, "data is required")
	}
	t, err := s.GetActiveBySlug(ctx, slug)
	if err != nil {
		return err
	}
	return forms.StructureToValidator(t.Structure).Validate(answers)
}

// -- Sections --

// SaveSection writes a patient's answers for one consultation type. The
// payload is shape-checked only; it is the client's rendered form state.
func (s *Service) SaveSection(ctx context.Context, actor authz.Actor, patientID, typeID uuid.UUID, data map[string]any) (*Section, error) {
	if data == nil {
		return nil, apperr.New(apperr.KindValidation, "data is required")
	}
	if err := s.patients.CanAccess(ctx, actor, patientID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetTypeByID(ctx, typeID); err != nil {
		return nil, err
	}

	updatedBy := actor.ID
	section := &Section{
		PatientID:          patientID,
		ConsultationTypeID: typeID,
		Data:               data,
		UpdatedBy:          &updatedBy,
	}
	if err := s.repo.UpsertSection(ctx, section); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		ActorEmail: actor.Email,
		Action:     "section.save",
		Resource:   "patient_consultations",
		ResourceID: &section.ID,
		Outcome:    audit.OutcomeSuccess,
	})
	return section, nil
}
