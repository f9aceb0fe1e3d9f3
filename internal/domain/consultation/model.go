package consultation

import (
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/forms"
)

// Type is a kind of consultation (anesthesia, surgery followup, ...).
// The slug keys section payloads on the patient detail view.
type Type struct {
	ID        uuid.UUID `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Order     int       `json:"order"`
	Deleted   bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Template is one version of the form definition for a consultation type.
// At most one version per type is active at a time.
type Template struct {
	ID                 uuid.UUID       `json:"id"`
	ConsultationTypeID uuid.UUID       `json:"consultation_type_id"`
	Version            string          `json:"version"`
	Structure          forms.Structure `json:"structure"`
	Template           string          `json:"template"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
}

// Section is a patient's answers for one consultation type. One row per
// (patient, type); the data blob is stored encrypted.
type Section struct {
	ID                 uuid.UUID      `json:"id"`
	PatientID          uuid.UUID      `json:"patient_id"`
	ConsultationTypeID uuid.UUID      `json:"consultation_type_id"`
	Data               map[string]any `json:"data"`
	UpdatedBy          *uuid.UUID     `json:"updated_by,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}
