package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses.
const (
	StatusScheduled  = "scheduled"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"
)

// Appointment types.
const (
	TypeConsultation   = "consultation"
	TypeFollowUp       = "follow_up"
	TypeEmergency      = "emergency"
	TypeRoutineCheckup = "routine_checkup"
)

var validTypes = map[string]bool{
	TypeConsultation:   true,
	TypeFollowUp:       true,
	TypeEmergency:      true,
	TypeRoutineCheckup: true,
}

func ValidType(t string) bool { return validTypes[t] }

// statusTransitions defines the appointment state machine.
var statusTransitions = map[string][]string{
	StatusScheduled:  {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusNoShow:     {},
}

// CanTransition reports whether an appointment may move from one status
// to another.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// End returns the end of the appointment slot.
func (a *Appointment) End() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Overlaps reports whether two appointment slots intersect.
func (a *Appointment) Overlaps(other *Appointment) bool {
	return a.ScheduledAt.Before(other.End()) && other.ScheduledAt.Before(a.End())
}
