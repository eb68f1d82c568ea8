package records

import (
	"time"

	"github.com/google/uuid"
)

// MedicalRecord documents a single patient visit.
type MedicalRecord struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	VisitDate     time.Time  `json:"visit_date"`
	Diagnosis     string     `json:"diagnosis"`
	Symptoms      string     `json:"symptoms,omitempty"`
	Treatment     string     `json:"treatment,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
