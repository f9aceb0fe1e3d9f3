package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a medical-record subject. Identity fields (name, given name,
// external id, date of birth) are stored encrypted with digest columns
// alongside for equality search; sex stays in clear for filtering.
type Patient struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	GivenName  string     `json:"given_name"`
	ExternalID *string    `json:"external_id,omitempty"`
	DOB        string     `json:"dob"`
	Sex        string     `json:"sex"`
	FacilityID *uuid.UUID `json:"facility_id,omitempty"`
	CreatedBy  *uuid.UUID `json:"created_by,omitempty"`
	Deleted    bool       `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Detail is a patient with their decrypted consultation sections keyed by
// consultation type slug.
type Detail struct {
	Patient
	Sections map[string]map[string]any `json:"sections"`
}

// CreateResult reports whether the create found an existing record instead
// of inserting a new one.
type CreateResult struct {
	Patient   *Patient `json:"patient"`
	Duplicate bool     `json:"duplicate"`
}

// Filters are the search criteria. Query takes precedence over the per-field
// filters when set.
type Filters struct {
	Query      string
	Name       string
	GivenName  string
	ExternalID string
	Sex        string
}
