package patient

import (
	"context"

	"github.com/google/uuid"
)

// SearchLimit caps every search result set.
const SearchLimit = 50

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Archive(ctx context.Context, id uuid.UUID) error
	// Search applies the facility filter in SQL, before any decryption.
	Search(ctx context.Context, facility *uuid.UUID, scoped bool, f Filters) ([]*Patient, error)
	// FindDuplicate looks for a live record with the same identity digest
	// triple in the facility, optionally excluding one record.
	FindDuplicate(ctx context.Context, facility *uuid.UUID, name, givenName, dob string, exclude *uuid.UUID) (*Patient, error)
}

// SectionLoader provides the decrypted consultation sections of a patient,
// keyed by consultation type slug. Implemented by the consultation package.
type SectionLoader interface {
	SectionsByPatient(ctx context.Context, patientID uuid.UUID) (map[string]map[string]any, error)
}
