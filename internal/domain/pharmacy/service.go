package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrMedicationNotFound   = errors.New("medication not found")
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrPrescriptionExpired  = errors.New("prescription has expired")
	ErrNotActive            = errors.New("prescription is not active")
	ErrStatusConflict       = errors.New("prescription status changed concurrently")
)

// Default validity window for a new prescription when the caller does
// not set one.
const defaultValidityDays = 30

type Service struct {
	meds MedicationRepository
	rxs  PrescriptionRepository
	log  zerolog.Logger
}

func NewService(meds MedicationRepository, rxs PrescriptionRepository, logger zerolog.Logger) *Service {
	return &Service{meds: meds, rxs: rxs, log: logger}
}

func (s *Service) AddMedication(ctx context.Context, m *Medication) error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.StockQty < 0 {
		return fmt.Errorf("stock_quantity cannot be negative")
	}
	if m.UnitPrice < 0 {
		return fmt.Errorf("unit_price cannot be negative")
	}
	if err := s.meds.Create(ctx, m); err != nil {
		return err
	}
	s.log.Info().Str("medication_id", m.ID.String()).Str("name", m.Name).Msg("medication added")
	return nil
}

func (s *Service) GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return s.meds.GetByID(ctx, id)
}

func (s *Service) ListMedications(ctx context.Context, limit, offset int) ([]*Medication, int, error) {
	return s.meds.List(ctx, limit, offset)
}

func (s *Service) UpdateMedication(ctx context.Context, m *Medication) error {
	if _, err := s.meds.GetByID(ctx, m.ID); err != nil {
		return err
	}
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.meds.Update(ctx, m)
}

// Restock adds qty units to a medication's stock.
func (s *Service) Restock(ctx context.Context, id uuid.UUID, qty int) (*Medication, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	m, err := s.meds.RestockAdd(ctx, id, qty)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("medication_id", id.String()).
		Int("added", qty).
		Int("stock", m.StockQty).
		Msg("medication restocked")
	return m, nil
}

func (s *Service) Prescribe(ctx context.Context, p *Prescription) error {
	if p.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if p.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if p.MedicationID == uuid.Nil {
		return fmt.Errorf("medication_id is required")
	}
	if p.Dosage == "" {
		return fmt.Errorf("dosage is required")
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	// Prescribing does not reserve stock; availability is checked at
	// dispense time.
	if _, err := s.meds.GetByID(ctx, p.MedicationID); err != nil {
		return err
	}
	p.Status = StatusActive
	if p.ExpiresAt.IsZero() {
		p.ExpiresAt = time.Now().UTC().AddDate(0, 0, defaultValidityDays)
	}
	if err := s.rxs.Create(ctx, p); err != nil {
		return err
	}
	s.log.Info().
		Str("prescription_id", p.ID.String()).
		Str("patient_id", p.PatientID.String()).
		Str("medication_id", p.MedicationID.String()).
		Msg("prescription created")
	return nil
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.rxs.GetByID(ctx, id)
}

func (s *Service) ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.rxs.ListByPatient(ctx, patientID, limit, offset)
}

// Dispense hands the prescribed quantity to the patient. The stock
// decrement is a conditional update and the status move is a
// compare-and-swap, so a prescription can be dispensed at most once and
// stock never goes negative even under concurrent requests.
func (s *Service) Dispense(ctx context.Context, prescriptionID, pharmacistID uuid.UUID) (*Prescription, error) {
	p, err := s.rxs.GetByID(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusActive {
		return nil, fmt.Errorf("%w: status is %s", ErrNotActive, p.Status)
	}
	if p.Expired(time.Now().UTC()) {
		return nil, ErrPrescriptionExpired
	}

	m, err := s.meds.DecrementStock(ctx, p.MedicationID, p.Quantity)
	if err != nil {
		return nil, err
	}

	dispensed, err := s.rxs.TransitionStatus(ctx, p.ID, StatusActive, StatusDispensed, &pharmacistID)
	if err != nil {
		// Another dispense won the race after we took the stock; give the
		// units back before reporting.
		if _, restockErr := s.meds.RestockAdd(ctx, p.MedicationID, p.Quantity); restockErr != nil {
			s.log.Error().Err(restockErr).
				Str("medication_id", p.MedicationID.String()).
				Int("quantity", p.Quantity).
				Msg("failed to return stock after dispense conflict")
		}
		if errors.Is(err, ErrStatusConflict) {
			return nil, fmt.Errorf("%w: already dispensed or cancelled", ErrNotActive)
		}
		return nil, err
	}

	evt := s.log.Info().
		Str("prescription_id", dispensed.ID.String()).
		Str("pharmacist_id", pharmacistID.String()).
		Str("medication_id", m.ID.String()).
		Int("quantity", p.Quantity).
		Int("stock_remaining", m.StockQty)
	if m.BelowReorderLevel() {
		evt = evt.Bool("reorder_needed", true)
	}
	evt.Msg("prescription dispensed")
	return dispensed, nil
}

// Cancel voids an active prescription without touching stock.
func (s *Service) Cancel(ctx context.Context, prescriptionID uuid.UUID) (*Prescription, error) {
	p, err := s.rxs.TransitionStatus(ctx, prescriptionID, StatusActive, StatusCancelled, nil)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, fmt.Errorf("%w: only active prescriptions can be cancelled", ErrNotActive)
		}
		return nil, err
	}
	s.log.Info().Str("prescription_id", p.ID.String()).Msg("prescription cancelled")
	return p, nil
}

// LowStock returns medications at or below their reorder level.
func (s *Service) LowStock(ctx context.Context, limit, offset int) ([]*Medication, error) {
	meds, _, err := s.meds.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	var low []*Medication
	for _, m := range meds {
		if m.BelowReorderLevel() {
			low = append(low, m)
		}
	}
	return low, nil
}
