package facility

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, f *Facility) error
	GetByID(ctx context.Context, id uuid.UUID) (*Facility, error)
	Update(ctx context.Context, f *Facility) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Facility, error)
}
