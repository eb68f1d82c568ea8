package pharmacy

import (
	"time"

	"github.com/google/uuid"
)

// Prescription statuses.
const (
	StatusActive    = "active"
	StatusDispensed = "dispensed"
	StatusCancelled = "cancelled"
)

// Medication is a pharmacy inventory item. StockQuantity is decremented
// only through the dispense path.
type Medication struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	GenericName  string    `json:"generic_name,omitempty"`
	Form         string    `json:"form,omitempty"`
	Strength     string    `json:"strength,omitempty"`
	StockQty     int       `json:"stock_quantity"`
	ReorderLevel int       `json:"reorder_level"`
	UnitPrice    float64   `json:"unit_price"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BelowReorderLevel reports whether stock has fallen to the reorder
// threshold.
func (m *Medication) BelowReorderLevel() bool {
	return m.StockQty <= m.ReorderLevel
}

type Prescription struct {
	ID           uuid.UUID  `json:"id"`
	PatientID    uuid.UUID  `json:"patient_id"`
	DoctorID     uuid.UUID  `json:"doctor_id"`
	RecordID     *uuid.UUID `json:"record_id,omitempty"`
	MedicationID uuid.UUID  `json:"medication_id"`
	Dosage       string     `json:"dosage"`
	Frequency    string     `json:"frequency,omitempty"`
	DurationDays int        `json:"duration_days,omitempty"`
	Quantity     int        `json:"quantity"`
	Status       string     `json:"status"`
	ExpiresAt    time.Time  `json:"expires_at"`
	DispensedAt  *time.Time `json:"dispensed_at,omitempty"`
	DispensedBy  *uuid.UUID `json:"dispensed_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Expired reports whether the prescription can no longer be dispensed.
func (p *Prescription) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
