package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("doctor already has an appointment in this slot")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

const defaultDurationMinutes = 30

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, log: logger}
}

// Book creates an appointment after rejecting any slot where the doctor
// already has a non-cancelled appointment overlapping the interval.
func (s *Service) Book(ctx context.Context, a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if a.ScheduledAt.IsZero() {
		return fmt.Errorf("scheduled_at is required")
	}
	if a.ScheduledAt.Before(time.Now().UTC()) {
		return fmt.Errorf("scheduled_at must be in the future")
	}
	if a.DurationMinutes <= 0 {
		a.DurationMinutes = defaultDurationMinutes
	}
	if a.Type == "" {
		a.Type = TypeConsultation
	}
	if !ValidType(a.Type) {
		return fmt.Errorf("invalid appointment type: %s", a.Type)
	}
	a.Status = StatusScheduled

	taken, err := s.repo.HasOverlapping(ctx, a.DoctorID, a.ScheduledAt, a.End(), uuid.Nil)
	if err != nil {
		return fmt.Errorf("check doctor availability: %w", err)
	}
	if taken {
		return ErrSlotTaken
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return err
	}
	s.log.Info().
		Str("appointment_id", a.ID.String()).
		Str("doctor_id", a.DoctorID.String()).
		Time("scheduled_at", a.ScheduledAt).
		Msg("appointment booked")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

// UpdateStatus advances the appointment through its state machine.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(a.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, newStatus)
	}
	a.Status = newStatus
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("appointment_id", a.ID.String()).
		Str("status", newStatus).
		Msg("appointment status updated")
	return a, nil
}

// Reschedule moves a scheduled or confirmed appointment to a new slot,
// re-running the overlap check.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newTime time.Time, durationMinutes int) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled && a.Status != StatusConfirmed {
		return nil, fmt.Errorf("%w: cannot reschedule a %s appointment", ErrInvalidTransition, a.Status)
	}
	if newTime.Before(time.Now().UTC()) {
		return nil, fmt.Errorf("scheduled_at must be in the future")
	}
	if durationMinutes <= 0 {
		durationMinutes = a.DurationMinutes
	}

	candidate := &Appointment{ScheduledAt: newTime, DurationMinutes: durationMinutes}
	taken, err := s.repo.HasOverlapping(ctx, a.DoctorID, newTime, candidate.End(), a.ID)
	if err != nil {
		return nil, fmt.Errorf("check doctor availability: %w", err)
	}
	if taken {
		return nil, ErrSlotTaken
	}

	a.ScheduledAt = newTime
	a.DurationMinutes = durationMinutes
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
