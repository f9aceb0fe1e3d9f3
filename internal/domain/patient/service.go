package patient

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/audit"
	"github.com/medrec/medrec/internal/platform/authz"
)

type Service struct {
	repo     Repository
	sections SectionLoader
	audit    audit.Recorder
}

func NewService(repo Repository, sections SectionLoader, recorder audit.Recorder) *Service {
	return &Service{repo: repo, sections: sections, audit: recorder}
}

// Input is the core identity payload for create and update.
type Input struct {
	Name       string
	GivenName  string
	ExternalID *string
	DOB        string
	Sex        string
	FacilityID *uuid.UUID
}

func (in *Input) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.GivenName = strings.TrimSpace(in.GivenName)
	if in.ExternalID != nil {
		trimmed := strings.TrimSpace(*in.ExternalID)
		if trimmed == "" {
			in.ExternalID = nil
		} else {
			in.ExternalID = &trimmed
		}
	}

	if in.Name == "" || in.GivenName == "" {
		return apperr.New(apperr.KindValidation, "name and given_name are required")
	}
	if _, err := time.Parse("2006-01-02", in.DOB); err != nil {
		return apperr.New(apperr.KindValidation, "dob must be a valid YYYY-MM-DD date")
	}
	if in.Sex != "male" && in.Sex != "female" {
		return apperr.New(apperr.KindValidation, "sex must be male or female")
	}
	return nil
}

// Create inserts a new record unless a live record with the same identity
// triple already exists in the target facility, in which case the existing
// record is returned flagged as a duplicate and nothing is written.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in Input) (*CreateResult, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	facility, err := actor.CreationFacility(in.FacilityID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindDuplicate(ctx, facility, in.Name, in.GivenName, in.DOB, nil)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &CreateResult{Patient: existing, Duplicate: true}, nil
	}

	createdBy := actor.ID
	p := &Patient{
		Name:       in.Name,
		GivenName:  in.GivenName,
		ExternalID: in.ExternalID,
		DOB:        in.DOB,
		Sex:        in.Sex,
		FacilityID: facility,
		CreatedBy:  &createdBy,
	}
	err = s.repo.Create(ctx, p)
	if apperr.Is(err, apperr.KindConflict) {
		// Lost the race against a concurrent create of the same identity;
		// the unique index kept the table consistent, so surface the winner.
		existing, dupErr := s.repo.FindDuplicate(ctx, facility, in.Name, in.GivenName, in.DOB, nil)
		if dupErr == nil && existing != nil {
			return &CreateResult{Patient: existing, Duplicate: true}, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		ActorEmail: actor.Email,
		Action:     "patient.create",
		Resource:   "patients",
		ResourceID: &p.ID,
		Outcome:    audit.OutcomeSuccess,
	})
	return &CreateResult{Patient: p}, nil
}

// load fetches a record and enforces the facility scope. Out-of-scope rows
// come back Forbidden, not NotFound: admins already see the record exists
// through duplicate detection, so hiding it buys nothing.
func (s *Service) load(ctx context.Context, actor authz.Actor, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanViewPatient(p.FacilityID) {
		return nil, apperr.New(apperr.KindForbidden, "patient belongs to another facility")
	}
	return p, nil
}

// CanAccess reports whether the actor may touch the record, with the same
// NotFound/Forbidden split as a read.
func (s *Service) CanAccess(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	_, err := s.load(ctx, actor, id)
	return err
}

// Get returns the record with its decrypted consultation sections.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*Detail, error) {
	p, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	sections, err := s.sections.SectionsByPatient(ctx, id)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		ActorEmail: actor.Email,
		Action:     "patient.read",
		Resource:   "patients",
		ResourceID: &id,
		Outcome:    audit.OutcomeSuccess,
	})
	return &Detail{Patient: *p, Sections: sections}, nil
}

// Update rewrites the core identity fields, re-running duplicate detection
// against every other live record in the facility.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, in Input) (*Patient, error) {
	p, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindDuplicate(ctx, p.FacilityID, in.Name, in.GivenName, in.DOB, &id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.New(apperr.KindConflict, "another patient with this identity already exists")
	}

	p.Name = in.Name
	p.GivenName = in.GivenName
	p.ExternalID = in.ExternalID
	p.DOB = in.DOB
	p.Sex = in.Sex
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		ActorEmail: actor.Email,
		Action:     "patient.update",
		Resource:   "patients",
		ResourceID: &id,
		Outcome:    audit.OutcomeSuccess,
	})
	return p, nil
}

// Archive soft-deletes the record. Archived records drop out of search,
// duplicate detection and reads, but their rows and sections remain.
func (s *Service) Archive(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if _, err := s.load(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Archive(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		ActorEmail: actor.Email,
		Action:     "patient.archive",
		Resource:   "patients",
		ResourceID: &id,
		Outcome:    audit.OutcomeSuccess,
	})
	return nil
}

// Search runs a scoped equality search over the identity digests.
func (s *Service) Search(ctx context.Context, actor authz.Actor, f Filters) ([]*Patient, error) {
	facility, scoped := actor.PatientScope()
	if scoped && facility == nil {
		return nil, apperr.New(apperr.KindForbidden, "account is not attached to a facility")
	}

	f.Query = strings.TrimSpace(f.Query)
	if f.Sex != "" && f.Sex != "male" && f.Sex != "female" {
		return nil, apperr.New(apperr.KindValidation, "sex must be male or female")
	}

	patients, err := s.repo.Search(ctx, facility, scoped, f)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		ActorEmail: actor.Email,
		Action:     "patient.search",
		Resource:   "patients",
		Outcome:    audit.OutcomeSuccess,
		Metadata:   map[string]any{"results": len(patients)},
	})
	return patients, nil
}
