package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrRecordNotFound = errors.New("medical record not found")

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, log: logger}
}

func (s *Service) Create(ctx context.Context, rec *MedicalRecord) error {
	if rec.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if rec.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if rec.Diagnosis == "" {
		return fmt.Errorf("diagnosis is required")
	}
	if rec.VisitDate.IsZero() {
		rec.VisitDate = time.Now().UTC()
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return err
	}
	s.log.Info().
		Str("record_id", rec.ID.String()).
		Str("patient_id", rec.PatientID.String()).
		Msg("medical record created")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// Update merges the clinical fields into an existing record. Patient,
// doctor and appointment links are immutable.
func (s *Service) Update(ctx context.Context, rec *MedicalRecord) error {
	existing, err := s.repo.GetByID(ctx, rec.ID)
	if err != nil {
		return err
	}
	if rec.Diagnosis == "" {
		rec.Diagnosis = existing.Diagnosis
	}
	if rec.VisitDate.IsZero() {
		rec.VisitDate = existing.VisitDate
	}
	rec.PatientID = existing.PatientID
	rec.DoctorID = existing.DoctorID
	rec.AppointmentID = existing.AppointmentID
	return s.repo.Update(ctx, rec)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
