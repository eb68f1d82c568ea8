package ward

import (
	"time"

	"github.com/google/uuid"
)

// Bed status values. A bed moves between available and occupied through
// the lifecycle service; maintenance is entered and left only through
// administrative provisioning.
const (
	StatusAvailable   = "available"
	StatusOccupied    = "occupied"
	StatusMaintenance = "maintenance"
)

// Bed and ward categories.
const (
	TypeICU       = "icu"
	TypeGeneral   = "general"
	TypePrivate   = "private"
	TypeEmergency = "emergency"
)

var validStatuses = map[string]bool{
	StatusAvailable:   true,
	StatusOccupied:    true,
	StatusMaintenance: true,
}

var validTypes = map[string]bool{
	TypeICU:       true,
	TypeGeneral:   true,
	TypePrivate:   true,
	TypeEmergency: true,
}

func ValidStatus(s string) bool { return validStatuses[s] }
func ValidType(t string) bool   { return validTypes[t] }

// Bed is the smallest allocatable unit of inpatient capacity. It belongs
// to exactly one ward for its lifetime.
//
// Invariant: PatientID is non-nil if and only if Status == occupied.
type Bed struct {
	ID        uuid.UUID  `json:"id"`
	BedNumber string     `json:"bed_number"`
	WardID    uuid.UUID  `json:"ward_id"`
	Type      string     `json:"type"`
	Status    string     `json:"status"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
	Features  []string   `json:"features,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Occupied reports whether the bed currently holds a patient.
func (b *Bed) Occupied() bool {
	return b.Status == StatusOccupied
}

// Ward is a named grouping of beds sharing a category and a capacity
// limit. CurrentOccupancy is a derived projection of the bed store,
// overwritten after every bed status change; the bed rows remain the
// source of truth.
type Ward struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Capacity         int       `json:"capacity"`
	CurrentOccupancy int       `json:"current_occupancy"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
