package ward

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type bedRepoPG struct {
	pool *pgxpool.Pool
}

func NewBedRepo(pool *pgxpool.Pool) BedRepository {
	return &bedRepoPG{pool: pool}
}

func (r *bedRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const bedCols = `id, bed_number, ward_id, type, status, patient_id, features, created_at, updated_at`

func (r *bedRepoPG) Create(ctx context.Context, b *Bed) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bed (id, bed_number, ward_id, type, status, patient_id, features)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		b.ID, b.BedNumber, b.WardID, b.Type, b.Status, b.PatientID, b.Features,
	)
	return err
}

func (r *bedRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bed, error) {
	b, err := scanBed(r.conn(ctx).QueryRow(ctx, `SELECT `+bedCols+` FROM bed WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBedNotFound
	}
	return b, err
}

func (r *bedRepoPG) ListByWard(ctx context.Context, wardID uuid.UUID) ([]*Bed, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+bedCols+` FROM bed WHERE ward_id = $1 ORDER BY bed_number`, wardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBeds(rows)
}

func (r *bedRepoPG) ListAvailable(ctx context.Context, bedType string) ([]*Bed, error) {
	q := `SELECT ` + bedCols + ` FROM bed WHERE status = $1`
	args := []interface{}{StatusAvailable}
	if bedType != "" {
		q += ` AND type = $2`
		args = append(args, bedType)
	}
	q += ` ORDER BY bed_number`

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBeds(rows)
}

func (r *bedRepoPG) FindByOccupant(ctx context.Context, patientID uuid.UUID) (*Bed, error) {
	b, err := scanBed(r.conn(ctx).QueryRow(ctx,
		`SELECT `+bedCols+` FROM bed WHERE patient_id = $1 AND status = $2`, patientID, StatusOccupied))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBedNotFound
	}
	return b, err
}

func (r *bedRepoPG) CountOccupied(ctx context.Context, wardID uuid.UUID) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM bed WHERE ward_id = $1 AND status = $2`, wardID, StatusOccupied).Scan(&count)
	return count, err
}

func (r *bedRepoPG) Update(ctx context.Context, b *Bed) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE bed SET
			bed_number=$2, type=$3, status=$4, patient_id=$5, features=$6, updated_at=NOW()
		WHERE id = $1`,
		b.ID, b.BedNumber, b.Type, b.Status, b.PatientID, b.Features,
	)
	return err
}

// TransitionStatus is a compare-and-swap on the status column. The WHERE
// clause guarantees that only one of any set of concurrent callers sees
// a row; everyone else gets ErrStatusConflict.
func (r *bedRepoPG) TransitionStatus(ctx context.Context, bedID uuid.UUID, from, to string, occupant *uuid.UUID) (*Bed, error) {
	b, err := scanBed(r.conn(ctx).QueryRow(ctx, `
		UPDATE bed SET status=$3, patient_id=$4, updated_at=NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+bedCols,
		bedID, from, to, occupant,
	))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// No row matched: either the bed does not exist or its status moved.
	if _, getErr := r.GetByID(ctx, bedID); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStatusConflict
}

func scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.BedNumber, &b.WardID, &b.Type, &b.Status, &b.PatientID, &b.Features, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBeds(rows pgx.Rows) ([]*Bed, error) {
	var beds []*Bed
	for rows.Next() {
		var b Bed
		if err := rows.Scan(&b.ID, &b.BedNumber, &b.WardID, &b.Type, &b.Status, &b.PatientID, &b.Features, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		beds = append(beds, &b)
	}
	return beds, rows.Err()
}

type wardRepoPG struct {
	pool *pgxpool.Pool
}

func NewWardRepo(pool *pgxpool.Pool) WardRepository {
	return &wardRepoPG{pool: pool}
}

func (r *wardRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const wardCols = `id, name, type, capacity, current_occupancy, created_at, updated_at`

func (r *wardRepoPG) Create(ctx context.Context, w *Ward) error {
	w.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ward (id, name, type, capacity, current_occupancy)
		VALUES ($1,$2,$3,$4,$5)`,
		w.ID, w.Name, w.Type, w.Capacity, w.CurrentOccupancy,
	)
	return err
}

func (r *wardRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Ward, error) {
	w, err := scanWard(r.conn(ctx).QueryRow(ctx, `SELECT `+wardCols+` FROM ward WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWardNotFound
	}
	return w, err
}

func (r *wardRepoPG) ListAll(ctx context.Context, wardType string) ([]*Ward, error) {
	q := `SELECT ` + wardCols + ` FROM ward`
	args := []interface{}{}
	if wardType != "" {
		q += ` WHERE type = $1`
		args = append(args, wardType)
	}
	q += ` ORDER BY name`

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wards []*Ward
	for rows.Next() {
		var w Ward
		if err := rows.Scan(&w.ID, &w.Name, &w.Type, &w.Capacity, &w.CurrentOccupancy, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		wards = append(wards, &w)
	}
	return wards, rows.Err()
}

func (r *wardRepoPG) Update(ctx context.Context, w *Ward) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE ward SET name=$2, type=$3, capacity=$4, updated_at=NOW()
		WHERE id = $1`,
		w.ID, w.Name, w.Type, w.Capacity,
	)
	return err
}

func (r *wardRepoPG) SetOccupancy(ctx context.Context, wardID uuid.UUID, occupancy int) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE ward SET current_occupancy=$2, updated_at=NOW() WHERE id = $1`,
		wardID, occupancy,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWardNotFound
	}
	return nil
}

func scanWard(row pgx.Row) (*Ward, error) {
	var w Ward
	err := row.Scan(&w.ID, &w.Name, &w.Type, &w.Capacity, &w.CurrentOccupancy, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
