package pharmacy

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockMedicationRepo struct {
	meds map[uuid.UUID]*Medication
}

func newMockMedicationRepo() *mockMedicationRepo {
	return &mockMedicationRepo{meds: make(map[uuid.UUID]*Medication)}
}

func (m *mockMedicationRepo) Create(_ context.Context, med *Medication) error {
	med.ID = uuid.New()
	med.CreatedAt = time.Now()
	med.UpdatedAt = time.Now()
	m.meds[med.ID] = med
	return nil
}

func (m *mockMedicationRepo) GetByID(_ context.Context, id uuid.UUID) (*Medication, error) {
	med, ok := m.meds[id]
	if !ok {
		return nil, ErrMedicationNotFound
	}
	cp := *med
	return &cp, nil
}

func (m *mockMedicationRepo) List(_ context.Context, limit, offset int) ([]*Medication, int, error) {
	var result []*Medication
	for _, med := range m.meds {
		cp := *med
		result = append(result, &cp)
	}
	return result, len(result), nil
}

func (m *mockMedicationRepo) Update(_ context.Context, med *Medication) error {
	stored, ok := m.meds[med.ID]
	if !ok {
		return ErrMedicationNotFound
	}
	med.StockQty = stored.StockQty
	m.meds[med.ID] = med
	return nil
}

func (m *mockMedicationRepo) DecrementStock(_ context.Context, id uuid.UUID, qty int) (*Medication, error) {
	med, ok := m.meds[id]
	if !ok {
		return nil, ErrMedicationNotFound
	}
	if med.StockQty < qty {
		return nil, ErrInsufficientStock
	}
	med.StockQty -= qty
	cp := *med
	return &cp, nil
}

func (m *mockMedicationRepo) RestockAdd(_ context.Context, id uuid.UUID, qty int) (*Medication, error) {
	med, ok := m.meds[id]
	if !ok {
		return nil, ErrMedicationNotFound
	}
	med.StockQty += qty
	cp := *med
	return &cp, nil
}

type mockPrescriptionRepo struct {
	rxs map[uuid.UUID]*Prescription

	// transitionErr fails the next TransitionStatus calls, up to
	// transitionErrMax times.
	transitionErr    error
	transitionErrMax int
}

func newMockPrescriptionRepo() *mockPrescriptionRepo {
	return &mockPrescriptionRepo{rxs: make(map[uuid.UUID]*Prescription)}
}

func (m *mockPrescriptionRepo) Create(_ context.Context, p *Prescription) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.rxs[p.ID] = p
	return nil
}

func (m *mockPrescriptionRepo) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	p, ok := m.rxs[id]
	if !ok {
		return nil, ErrPrescriptionNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPrescriptionRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var result []*Prescription
	for _, p := range m.rxs {
		if p.PatientID == patientID {
			cp := *p
			result = append(result, &cp)
		}
	}
	return result, len(result), nil
}

func (m *mockPrescriptionRepo) Update(_ context.Context, p *Prescription) error {
	if _, ok := m.rxs[p.ID]; !ok {
		return ErrPrescriptionNotFound
	}
	m.rxs[p.ID] = p
	return nil
}

func (m *mockPrescriptionRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to string, dispensedBy *uuid.UUID) (*Prescription, error) {
	if m.transitionErr != nil && m.transitionErrMax > 0 {
		m.transitionErrMax--
		return nil, m.transitionErr
	}
	p, ok := m.rxs[id]
	if !ok {
		return nil, ErrPrescriptionNotFound
	}
	if p.Status != from {
		return nil, ErrStatusConflict
	}
	p.Status = to
	if to == StatusDispensed {
		now := time.Now()
		p.DispensedAt = &now
		p.DispensedBy = dispensedBy
	}
	cp := *p
	return &cp, nil
}

func newTestService() (*Service, *mockMedicationRepo, *mockPrescriptionRepo) {
	meds := newMockMedicationRepo()
	rxs := newMockPrescriptionRepo()
	return NewService(meds, rxs, zerolog.New(io.Discard)), meds, rxs
}

func addMedication(t *testing.T, svc *Service, stock int) *Medication {
	t.Helper()
	m := &Medication{Name: "Amoxicillin", GenericName: "amoxicillin", Form: "capsule", Strength: "500mg", StockQty: stock, ReorderLevel: 10, UnitPrice: 0.35}
	if err := svc.AddMedication(context.Background(), m); err != nil {
		t.Fatalf("add medication: %v", err)
	}
	return m
}

func prescribe(t *testing.T, svc *Service, medID uuid.UUID, qty int) *Prescription {
	t.Helper()
	p := &Prescription{
		PatientID:    uuid.New(),
		DoctorID:     uuid.New(),
		MedicationID: medID,
		Dosage:       "500mg",
		Frequency:    "three times daily",
		DurationDays: 7,
		Quantity:     qty,
	}
	if err := svc.Prescribe(context.Background(), p); err != nil {
		t.Fatalf("prescribe: %v", err)
	}
	return p
}

func TestPrescribe(t *testing.T) {
	svc, _, _ := newTestService()
	med := addMedication(t, svc, 100)

	p := prescribe(t, svc, med.ID, 21)

	if p.Status != StatusActive {
		t.Errorf("status = %q, want active", p.Status)
	}
	if p.ExpiresAt.IsZero() {
		t.Error("expiry should default")
	}
	if remaining := time.Until(p.ExpiresAt); remaining < 29*24*time.Hour {
		t.Errorf("default validity too short: %v", remaining)
	}
}

func TestPrescribe_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	med := addMedication(t, svc, 100)
	valid := Prescription{PatientID: uuid.New(), DoctorID: uuid.New(), MedicationID: med.ID, Dosage: "500mg", Quantity: 10}

	tests := []struct {
		name   string
		mutate func(p *Prescription)
	}{
		{"missing patient", func(p *Prescription) { p.PatientID = uuid.Nil }},
		{"missing doctor", func(p *Prescription) { p.DoctorID = uuid.Nil }},
		{"missing medication", func(p *Prescription) { p.MedicationID = uuid.Nil }},
		{"missing dosage", func(p *Prescription) { p.Dosage = "" }},
		{"zero quantity", func(p *Prescription) { p.Quantity = 0 }},
		{"unknown medication", func(p *Prescription) { p.MedicationID = uuid.New() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			if err := svc.Prescribe(context.Background(), &p); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDispense(t *testing.T) {
	svc, meds, _ := newTestService()
	med := addMedication(t, svc, 100)
	p := prescribe(t, svc, med.ID, 21)
	pharmacist := uuid.New()

	dispensed, err := svc.Dispense(context.Background(), p.ID, pharmacist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dispensed.Status != StatusDispensed {
		t.Errorf("status = %q, want dispensed", dispensed.Status)
	}
	if dispensed.DispensedBy == nil || *dispensed.DispensedBy != pharmacist {
		t.Error("dispensing pharmacist should be recorded")
	}
	if got := meds.meds[med.ID].StockQty; got != 79 {
		t.Errorf("stock = %d, want 79", got)
	}
}

func TestDispense_AtMostOnce(t *testing.T) {
	svc, meds, _ := newTestService()
	med := addMedication(t, svc, 100)
	p := prescribe(t, svc, med.ID, 21)

	if _, err := svc.Dispense(context.Background(), p.ID, uuid.New()); err != nil {
		t.Fatalf("first dispense: %v", err)
	}
	_, err := svc.Dispense(context.Background(), p.ID, uuid.New())
	if !errors.Is(err, ErrNotActive) {
		t.Fatalf("error = %v, want ErrNotActive", err)
	}
	if got := meds.meds[med.ID].StockQty; got != 79 {
		t.Errorf("stock after double dispense = %d, want 79", got)
	}
}

func TestDispense_InsufficientStock(t *testing.T) {
	svc, meds, rxs := newTestService()
	med := addMedication(t, svc, 10)
	p := prescribe(t, svc, med.ID, 21)

	_, err := svc.Dispense(context.Background(), p.ID, uuid.New())
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("error = %v, want ErrInsufficientStock", err)
	}
	if got := meds.meds[med.ID].StockQty; got != 10 {
		t.Errorf("stock = %d, want untouched 10", got)
	}
	if rxs.rxs[p.ID].Status != StatusActive {
		t.Error("prescription should stay active when stock is short")
	}
}

func TestDispense_Expired(t *testing.T) {
	svc, meds, rxs := newTestService()
	med := addMedication(t, svc, 100)
	p := prescribe(t, svc, med.ID, 21)
	rxs.rxs[p.ID].ExpiresAt = time.Now().Add(-time.Hour)

	_, err := svc.Dispense(context.Background(), p.ID, uuid.New())
	if !errors.Is(err, ErrPrescriptionExpired) {
		t.Fatalf("error = %v, want ErrPrescriptionExpired", err)
	}
	if got := meds.meds[med.ID].StockQty; got != 100 {
		t.Errorf("stock = %d, want untouched 100", got)
	}
}

func TestDispense_Cancelled(t *testing.T) {
	svc, _, _ := newTestService()
	med := addMedication(t, svc, 100)
	p := prescribe(t, svc, med.ID, 21)

	if _, err := svc.Cancel(context.Background(), p.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err := svc.Dispense(context.Background(), p.ID, uuid.New())
	if !errors.Is(err, ErrNotActive) {
		t.Fatalf("error = %v, want ErrNotActive", err)
	}
}

func TestDispense_ConflictReturnsStock(t *testing.T) {
	svc, meds, rxs := newTestService()
	med := addMedication(t, svc, 100)
	p := prescribe(t, svc, med.ID, 21)

	// Another dispense wins between our read and the status move.
	rxs.transitionErr = ErrStatusConflict
	rxs.transitionErrMax = 1

	_, err := svc.Dispense(context.Background(), p.ID, uuid.New())
	if !errors.Is(err, ErrNotActive) {
		t.Fatalf("error = %v, want ErrNotActive", err)
	}
	if got := meds.meds[med.ID].StockQty; got != 100 {
		t.Errorf("stock = %d, want 100 after conflict rollback", got)
	}
}

func TestDispense_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Dispense(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrPrescriptionNotFound) {
		t.Fatalf("error = %v, want ErrPrescriptionNotFound", err)
	}
}

func TestCancel(t *testing.T) {
	svc, meds, _ := newTestService()
	med := addMedication(t, svc, 100)
	p := prescribe(t, svc, med.ID, 21)

	cancelled, err := svc.Cancel(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}
	if got := meds.meds[med.ID].StockQty; got != 100 {
		t.Errorf("cancel must not touch stock, got %d", got)
	}
}

func TestCancel_DispensedRejected(t *testing.T) {
	svc, _, _ := newTestService()
	med := addMedication(t, svc, 100)
	p := prescribe(t, svc, med.ID, 21)

	if _, err := svc.Dispense(context.Background(), p.ID, uuid.New()); err != nil {
		t.Fatalf("dispense: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), p.ID); !errors.Is(err, ErrNotActive) {
		t.Fatalf("error = %v, want ErrNotActive", err)
	}
}

func TestRestock(t *testing.T) {
	svc, _, _ := newTestService()
	med := addMedication(t, svc, 5)

	updated, err := svc.Restock(context.Background(), med.ID, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.StockQty != 55 {
		t.Errorf("stock = %d, want 55", updated.StockQty)
	}
}

func TestRestock_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	med := addMedication(t, svc, 5)

	if _, err := svc.Restock(context.Background(), med.ID, 0); err == nil {
		t.Error("zero quantity should be rejected")
	}
	if _, err := svc.Restock(context.Background(), med.ID, -3); err == nil {
		t.Error("negative quantity should be rejected")
	}
}

func TestAddMedication_Validation(t *testing.T) {
	svc, _, _ := newTestService()

	tests := []struct {
		name string
		med  Medication
	}{
		{"missing name", Medication{StockQty: 10}},
		{"negative stock", Medication{Name: "X", StockQty: -1}},
		{"negative price", Medication{Name: "X", UnitPrice: -0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			med := tt.med
			if err := svc.AddMedication(context.Background(), &med); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLowStock(t *testing.T) {
	svc, meds, _ := newTestService()
	low := addMedication(t, svc, 100)
	meds.meds[low.ID].StockQty = 8 // at/below reorder level 10
	addMedication(t, svc, 100)

	result, err := svc.LowStock(context.Background(), 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 || result[0].ID != low.ID {
		t.Fatalf("low stock = %v, want exactly the depleted medication", result)
	}
}
