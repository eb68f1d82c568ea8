package pharmacy

import (
	"context"

	"github.com/google/uuid"
)

// MedicationRepository persists inventory items. DecrementStock is a
// conditional update that fails when stock would go negative, so two
// concurrent dispenses cannot both drain the same units.
type MedicationRepository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	List(ctx context.Context, limit, offset int) ([]*Medication, int, error)
	Update(ctx context.Context, m *Medication) error

	// DecrementStock atomically subtracts qty from stock, returning the
	// updated medication or ErrInsufficientStock.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (*Medication, error)

	// RestockAdd atomically adds qty to stock.
	RestockAdd(ctx context.Context, id uuid.UUID, qty int) (*Medication, error)
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error)
	Update(ctx context.Context, p *Prescription) error

	// TransitionStatus atomically moves a prescription between statuses,
	// recording dispense metadata when provided. Returns
	// ErrStatusConflict when the stored status does not match from.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string, dispensedBy *uuid.UUID) (*Prescription, error)
}
