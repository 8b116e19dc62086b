package models

import "time"

// AppointmentStatus tracks an appointment through the request lifecycle.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentAccepted  AppointmentStatus = "accepted"
	AppointmentRejected  AppointmentStatus = "rejected"
	AppointmentCompleted AppointmentStatus = "completed"
)

// Valid returns true when the status is a supported value.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentAccepted, AppointmentRejected, AppointmentCompleted:
		return true
	default:
		return false
	}
}

// SessionType is the modality of a booked session.
type SessionType string

const (
	SessionVideoCall SessionType = "Video Call"
	SessionInPerson  SessionType = "In-Person"
	SessionPhoneCall SessionType = "Phone Call"
)

// Valid returns true when the session type is a supported value.
func (t SessionType) Valid() bool {
	switch t {
	case SessionVideoCall, SessionInPerson, SessionPhoneCall:
		return true
	default:
		return false
	}
}

// Appointment represents a booked session row. TherapistName and
// TherapistEmail are populated from a join for list responses.
type Appointment struct {
	ID             string            `db:"id" json:"id"`
	UserID         string            `db:"user_id" json:"user_id"`
	TherapistID    string            `db:"therapist_id" json:"therapist_id"`
	Date           time.Time         `db:"date" json:"date"`
	Type           SessionType       `db:"type" json:"type"`
	Status         AppointmentStatus `db:"status" json:"status"`
	Notes          *string           `db:"notes" json:"notes,omitempty"`
	Medication     *string           `db:"medication" json:"medication,omitempty"`
	TherapistName  string            `db:"therapist_name" json:"therapist_name,omitempty"`
	TherapistEmail string            `db:"therapist_email" json:"therapist_email,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// AppointmentFilter narrows appointment listings.
type AppointmentFilter struct {
	UserID      string
	TherapistID string
	Status      AppointmentStatus
	Page        int
	PageSize    int
}
