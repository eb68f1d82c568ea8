package ward

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service is the only writer of bed status transitions and the only
// trigger of ward occupancy recomputation.
type Service struct {
	beds  BedRepository
	wards WardRepository
	log   zerolog.Logger
}

func NewService(beds BedRepository, wards WardRepository, logger zerolog.Logger) *Service {
	return &Service{beds: beds, wards: wards, log: logger}
}

// Allocate assigns an available bed to a patient. The availability check
// and the status write happen in one conditional update, so two
// concurrent allocations of the same bed cannot both succeed.
func (s *Service) Allocate(ctx context.Context, bedID, patientID uuid.UUID) (*Bed, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}

	bed, err := s.beds.TransitionStatus(ctx, bedID, StatusAvailable, StatusOccupied, &patientID)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, ErrBedNotAvailable
		}
		return nil, err
	}

	if err := s.RecomputeOccupancy(ctx, bed.WardID); err != nil {
		return nil, fmt.Errorf("bed %s allocated but occupancy update failed: %w", bed.ID, err)
	}

	s.log.Info().
		Str("bed_id", bed.ID.String()).
		Str("ward_id", bed.WardID.String()).
		Str("patient_id", patientID.String()).
		Msg("bed allocated")
	return bed, nil
}

// Transfer moves a patient from an occupied bed to an available one.
// The two status writes are sequential; each is a conditional update, so
// a lost race on the target surfaces as ErrBedNotAvailable instead of a
// double booking.
func (s *Service) Transfer(ctx context.Context, currentBedID, newBedID uuid.UUID) (*Bed, error) {
	if currentBedID == newBedID {
		return nil, ErrInvalidTransfer
	}

	src, err := s.beds.GetByID(ctx, currentBedID)
	if err != nil {
		return nil, err
	}
	if src.Status != StatusOccupied || src.PatientID == nil {
		return nil, ErrBedNotOccupied
	}
	patientID := *src.PatientID

	tgt, err := s.beds.GetByID(ctx, newBedID)
	if err != nil {
		return nil, err
	}
	if tgt.Status != StatusAvailable {
		return nil, ErrBedNotAvailable
	}

	freed, err := s.beds.TransitionStatus(ctx, currentBedID, StatusOccupied, StatusAvailable, nil)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, ErrBedNotOccupied
		}
		return nil, err
	}

	moved, err := s.beds.TransitionStatus(ctx, newBedID, StatusAvailable, StatusOccupied, &patientID)
	if err != nil {
		// Source is already freed; keep its occupancy consistent before
		// reporting the failure.
		if recErr := s.RecomputeOccupancy(ctx, freed.WardID); recErr != nil {
			s.log.Error().Err(recErr).
				Str("ward_id", freed.WardID.String()).
				Msg("occupancy recompute failed after aborted transfer")
		}
		if errors.Is(err, ErrStatusConflict) {
			return nil, ErrBedNotAvailable
		}
		return nil, err
	}

	if err := s.RecomputeOccupancy(ctx, freed.WardID); err != nil {
		return nil, fmt.Errorf("transfer applied but occupancy update failed: %w", err)
	}
	if moved.WardID != freed.WardID {
		if err := s.RecomputeOccupancy(ctx, moved.WardID); err != nil {
			return nil, fmt.Errorf("transfer applied but occupancy update failed: %w", err)
		}
	}

	s.log.Info().
		Str("from_bed_id", freed.ID.String()).
		Str("to_bed_id", moved.ID.String()).
		Str("patient_id", patientID.String()).
		Msg("patient transferred")
	return moved, nil
}

// Discharge frees an occupied bed. A bed that is already available or
// under maintenance is rejected rather than silently reset.
func (s *Service) Discharge(ctx context.Context, bedID uuid.UUID) (*Bed, error) {
	bed, err := s.beds.TransitionStatus(ctx, bedID, StatusOccupied, StatusAvailable, nil)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, ErrBedNotOccupied
		}
		return nil, err
	}

	if err := s.RecomputeOccupancy(ctx, bed.WardID); err != nil {
		return nil, fmt.Errorf("bed %s discharged but occupancy update failed: %w", bed.ID, err)
	}

	s.log.Info().
		Str("bed_id", bed.ID.String()).
		Str("ward_id", bed.WardID.String()).
		Msg("patient discharged")
	return bed, nil
}

// RecomputeOccupancy overwrites the ward's occupancy with a fresh count
// of its occupied beds. The full overwrite makes it idempotent, so a
// single retry on failure is safe.
func (s *Service) RecomputeOccupancy(ctx context.Context, wardID uuid.UUID) error {
	err := s.recomputeOnce(ctx, wardID)
	if err == nil {
		return nil
	}
	s.log.Warn().Err(err).
		Str("ward_id", wardID.String()).
		Msg("occupancy recompute failed, retrying")
	return s.recomputeOnce(ctx, wardID)
}

func (s *Service) recomputeOnce(ctx context.Context, wardID uuid.UUID) error {
	w, err := s.wards.GetByID(ctx, wardID)
	if err != nil {
		// A bed pointing at a ward that does not exist is a data fault,
		// not a client mistake.
		return fmt.Errorf("recompute occupancy for ward %s: %w", wardID, err)
	}

	count, err := s.beds.CountOccupied(ctx, wardID)
	if err != nil {
		return fmt.Errorf("count occupied beds for ward %s: %w", wardID, err)
	}

	if count > w.Capacity {
		s.log.Warn().
			Str("ward_id", wardID.String()).
			Int("occupancy", count).
			Int("capacity", w.Capacity).
			Msg("ward occupancy exceeds capacity")
	}

	if err := s.wards.SetOccupancy(ctx, wardID, count); err != nil {
		return fmt.Errorf("set occupancy for ward %s: %w", wardID, err)
	}
	return nil
}

func (s *Service) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return s.beds.GetByID(ctx, id)
}

func (s *Service) ListBedsByWard(ctx context.Context, wardID uuid.UUID) ([]*Bed, error) {
	return s.beds.ListByWard(ctx, wardID)
}

func (s *Service) ListAvailableBeds(ctx context.Context, bedType string) ([]*Bed, error) {
	if bedType != "" && !ValidType(bedType) {
		return nil, fmt.Errorf("invalid bed type: %s", bedType)
	}
	return s.beds.ListAvailable(ctx, bedType)
}

// FindBedByPatient returns the patient's current bed, or ErrBedNotFound
// when the patient occupies none.
func (s *Service) FindBedByPatient(ctx context.Context, patientID uuid.UUID) (*Bed, error) {
	return s.beds.FindByOccupant(ctx, patientID)
}

// CreateWard provisions a new ward with zero occupancy.
func (s *Service) CreateWard(ctx context.Context, w *Ward) error {
	if w.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !ValidType(w.Type) {
		return fmt.Errorf("invalid ward type: %s", w.Type)
	}
	if w.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive")
	}
	w.CurrentOccupancy = 0
	return s.wards.Create(ctx, w)
}

func (s *Service) GetWard(ctx context.Context, id uuid.UUID) (*Ward, error) {
	return s.wards.GetByID(ctx, id)
}

func (s *Service) ListWards(ctx context.Context, wardType string) ([]*Ward, error) {
	if wardType != "" && !ValidType(wardType) {
		return nil, fmt.Errorf("invalid ward type: %s", wardType)
	}
	return s.wards.ListAll(ctx, wardType)
}

// CreateBed provisions a bed under an existing ward. The ward lookup is
// the referential-integrity check the storage layer does not enforce on
// its own.
func (s *Service) CreateBed(ctx context.Context, b *Bed) error {
	if b.BedNumber == "" {
		return fmt.Errorf("bed_number is required")
	}
	if !ValidType(b.Type) {
		return fmt.Errorf("invalid bed type: %s", b.Type)
	}
	if b.Status == "" {
		b.Status = StatusAvailable
	}
	if !ValidStatus(b.Status) {
		return fmt.Errorf("invalid bed status: %s", b.Status)
	}
	if b.Status == StatusOccupied {
		return fmt.Errorf("a bed cannot be provisioned as occupied")
	}
	b.PatientID = nil
	if _, err := s.wards.GetByID(ctx, b.WardID); err != nil {
		return err
	}
	return s.beds.Create(ctx, b)
}

// SetMaintenance moves a bed into or out of maintenance. Administrative
// path; an occupied bed cannot be taken down.
func (s *Service) SetMaintenance(ctx context.Context, bedID uuid.UUID, down bool) (*Bed, error) {
	from, to := StatusMaintenance, StatusAvailable
	if down {
		from, to = StatusAvailable, StatusMaintenance
	}
	bed, err := s.beds.TransitionStatus(ctx, bedID, from, to, nil)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			if down {
				return nil, ErrBedNotAvailable
			}
			return nil, fmt.Errorf("bed is not under maintenance")
		}
		return nil, err
	}
	return bed, nil
}
