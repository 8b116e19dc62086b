package models

import (
	"time"

	"github.com/mindwell-health/mindwell-api/internal/availability"
)

// Therapist represents a practitioner record with an embedded weekly schedule.
type Therapist struct {
	ID             string                `db:"id" json:"id"`
	Name           string                `db:"name" json:"name"`
	Email          string                `db:"email" json:"email"`
	Phone          *string               `db:"phone" json:"phone,omitempty"`
	Specialization *string               `db:"specialization" json:"specialization,omitempty"`
	Address        *string               `db:"address" json:"address,omitempty"`
	Active         bool                  `db:"active" json:"active"`
	Availability   availability.Schedule `db:"-" json:"availability"`
	CreatedAt      time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time             `db:"updated_at" json:"updated_at"`
}

// TherapistFilter captures the directory's composable filters. Specialization
// matches exactly; Day keeps therapists with at least one interval on that
// weekday. Both are applied to the unfiltered source list.
type TherapistFilter struct {
	Specialization string
	Day            availability.Weekday
	Search         string
	Page           int
	PageSize       int
}
