package user

import (
	"context"

	"github.com/google/uuid"
)

// Scope limits directory queries to one facility. A nil facility with
// All=true means no filter.
type Scope struct {
	All        bool
	FacilityID *uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, scope Scope, pendingOnly bool) ([]*User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SetRole(ctx context.Context, id uuid.UUID, role string) error
	SetFacility(ctx context.Context, id uuid.UUID, facilityID *uuid.UUID) error
}
