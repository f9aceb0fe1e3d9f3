package facility

import (
	"time"

	"github.com/google/uuid"
)

// Facility is a hospital site. Users and patient records are attached to a
// facility; platform-level admins are the only accounts without one.
type Facility struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"created_at"`
}
