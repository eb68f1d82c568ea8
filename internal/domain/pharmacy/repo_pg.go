package pharmacy

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

type medicationRepoPG struct {
	pool *pgxpool.Pool
}

func NewMedicationRepo(pool *pgxpool.Pool) MedicationRepository {
	return &medicationRepoPG{pool: pool}
}

func (r *medicationRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const medCols = `id, name, generic_name, form, strength, stock_quantity, reorder_level, unit_price, created_at, updated_at`

func (r *medicationRepoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medication (id, name, generic_name, form, strength, stock_quantity, reorder_level, unit_price)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		m.ID, m.Name, m.GenericName, m.Form, m.Strength, m.StockQty, m.ReorderLevel, m.UnitPrice,
	)
	return err
}

func (r *medicationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	m, err := scanMedication(r.conn(ctx).QueryRow(ctx, `SELECT `+medCols+` FROM medication WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMedicationNotFound
	}
	return m, err
}

func (r *medicationRepoPG) List(ctx context.Context, limit, offset int) ([]*Medication, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medication`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+medCols+` FROM medication ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var meds []*Medication
	for rows.Next() {
		var m Medication
		if err := rows.Scan(&m.ID, &m.Name, &m.GenericName, &m.Form, &m.Strength, &m.StockQty, &m.ReorderLevel, &m.UnitPrice, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		meds = append(meds, &m)
	}
	return meds, total, rows.Err()
}

func (r *medicationRepoPG) Update(ctx context.Context, m *Medication) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medication SET
			name=$2, generic_name=$3, form=$4, strength=$5, reorder_level=$6, unit_price=$7, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Name, m.GenericName, m.Form, m.Strength, m.ReorderLevel, m.UnitPrice,
	)
	return err
}

// DecrementStock is a conditional update: the WHERE clause only matches
// when enough stock remains, so concurrent dispenses cannot drive the
// quantity negative.
func (r *medicationRepoPG) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (*Medication, error) {
	m, err := scanMedication(r.conn(ctx).QueryRow(ctx, `
		UPDATE medication SET stock_quantity = stock_quantity - $2, updated_at=NOW()
		WHERE id = $1 AND stock_quantity >= $2
		RETURNING `+medCols,
		id, qty,
	))
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// No row matched: either the medication is gone or stock is short.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrInsufficientStock
}

func (r *medicationRepoPG) RestockAdd(ctx context.Context, id uuid.UUID, qty int) (*Medication, error) {
	m, err := scanMedication(r.conn(ctx).QueryRow(ctx, `
		UPDATE medication SET stock_quantity = stock_quantity + $2, updated_at=NOW()
		WHERE id = $1
		RETURNING `+medCols,
		id, qty,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMedicationNotFound
	}
	return m, err
}

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.Name, &m.GenericName, &m.Form, &m.Strength, &m.StockQty, &m.ReorderLevel, &m.UnitPrice, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type prescriptionRepoPG struct {
	pool *pgxpool.Pool
}

func NewPrescriptionRepo(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const rxCols = `id, patient_id, doctor_id, record_id, medication_id, dosage, frequency, duration_days, quantity, status, expires_at, dispensed_at, dispensed_by, created_at, updated_at`

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescription (id, patient_id, doctor_id, record_id, medication_id, dosage, frequency, duration_days, quantity, status, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.PatientID, p.DoctorID, p.RecordID, p.MedicationID, p.Dosage, p.Frequency, p.DurationDays, p.Quantity, p.Status, p.ExpiresAt,
	)
	return err
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := scanPrescription(r.conn(ctx).QueryRow(ctx, `SELECT `+rxCols+` FROM prescription WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPrescriptionNotFound
	}
	return p, err
}

func (r *prescriptionRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM prescription WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+rxCols+` FROM prescription WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rxs []*Prescription
	for rows.Next() {
		var p Prescription
		if err := rows.Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.RecordID, &p.MedicationID, &p.Dosage, &p.Frequency, &p.DurationDays, &p.Quantity, &p.Status, &p.ExpiresAt, &p.DispensedAt, &p.DispensedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		rxs = append(rxs, &p)
	}
	return rxs, total, rows.Err()
}

func (r *prescriptionRepoPG) Update(ctx context.Context, p *Prescription) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescription SET
			dosage=$2, frequency=$3, duration_days=$4, quantity=$5, status=$6, expires_at=$7, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Dosage, p.Frequency, p.DurationDays, p.Quantity, p.Status, p.ExpiresAt,
	)
	return err
}

// TransitionStatus is a compare-and-swap on the status column, mirroring
// the bed lifecycle: only one concurrent caller sees the row.
func (r *prescriptionRepoPG) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string, dispensedBy *uuid.UUID) (*Prescription, error) {
	var (
		p   *Prescription
		err error
	)
	if to == StatusDispensed {
		p, err = scanPrescription(r.conn(ctx).QueryRow(ctx, `
			UPDATE prescription SET status=$3, dispensed_at=NOW(), dispensed_by=$4, updated_at=NOW()
			WHERE id = $1 AND status = $2
			RETURNING `+rxCols,
			id, from, to, dispensedBy,
		))
	} else {
		p, err = scanPrescription(r.conn(ctx).QueryRow(ctx, `
			UPDATE prescription SET status=$3, updated_at=NOW()
			WHERE id = $1 AND status = $2
			RETURNING `+rxCols,
			id, from, to,
		))
	}
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStatusConflict
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.RecordID, &p.MedicationID, &p.Dosage, &p.Frequency, &p.DurationDays, &p.Quantity, &p.Status, &p.ExpiresAt, &p.DispensedAt, &p.DispensedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
