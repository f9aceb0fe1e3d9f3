package consultation

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Types
	CreateType(ctx context.Context, t *Type) error
	UpdateType(ctx context.Context, t *Type) error
	DeleteType(ctx context.Context, id uuid.UUID) error
	ListTypes(ctx context.Context) ([]*Type, error)
	GetTypeByID(ctx context.Context, id uuid.UUID) (*Type, error)
	GetTypeBySlug(ctx context.Context, slug string) (*Type, error)

	// Templates. CreateTemplate with activate and ActivateTemplate both run
	// deactivate-all-then-activate-one in a single transaction.
	CreateTemplate(ctx context.Context, t *Template, activate bool) error
	ListTemplates(ctx context.Context, typeID uuid.UUID) ([]*Template, error)
	GetActiveTemplate(ctx context.Context, typeID uuid.UUID) (*Template, error)
	ActivateTemplate(ctx context.Context, id uuid.UUID) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error

	// Sections
	UpsertSection(ctx context.Context, s *Section) error
	SectionsByPatient(ctx context.Context, patientID uuid.UUID) (map[string]map[string]any, error)
}
