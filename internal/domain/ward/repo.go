package ward

import (
	"context"

	"github.com/google/uuid"
)

// BedRepository persists beds. TransitionStatus is the only write path
// for status changes driven by the lifecycle service; it performs the
// change as a single conditional update so that two concurrent callers
// cannot both claim the same bed.
type BedRepository interface {
	Create(ctx context.Context, b *Bed) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bed, error)
	ListByWard(ctx context.Context, wardID uuid.UUID) ([]*Bed, error)
	ListAvailable(ctx context.Context, bedType string) ([]*Bed, error)
	FindByOccupant(ctx context.Context, patientID uuid.UUID) (*Bed, error)
	CountOccupied(ctx context.Context, wardID uuid.UUID) (int, error)
	Update(ctx context.Context, b *Bed) error

	// TransitionStatus atomically moves a bed from one status to another,
	// setting the occupant in the same write. Returns ErrStatusConflict
	// when the stored status does not match from, ErrBedNotFound when the
	// id does not resolve.
	TransitionStatus(ctx context.Context, bedID uuid.UUID, from, to string, occupant *uuid.UUID) (*Bed, error)
}

// WardRepository persists wards. SetOccupancy overwrites the derived
// occupancy count; it is the only occupancy write path.
type WardRepository interface {
	Create(ctx context.Context, w *Ward) error
	GetByID(ctx context.Context, id uuid.UUID) (*Ward, error)
	ListAll(ctx context.Context, wardType string) ([]*Ward, error)
	Update(ctx context.Context, w *Ward) error
	SetOccupancy(ctx context.Context, wardID uuid.UUID, occupancy int) error
}
