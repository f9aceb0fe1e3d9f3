package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/authz"
)

// User is a staff account. Accounts are created inactive and must be approved
// by an admin before they can log in.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FamilyName   string     `json:"family_name"`
	GivenName    string     `json:"given_name"`
	Role         authz.Role `json:"role"`
	IsActive     bool       `json:"is_active"`
	FacilityID   *uuid.UUID `json:"facility_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
