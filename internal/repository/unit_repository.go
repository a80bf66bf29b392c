package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/sukha-pms/internal/model"
)

// UnitRepo is the unit registry. Units are provisioned by seeding; staff may
// only change their administrative status.
type UnitRepo struct {
	db *sql.DB
}

// NewUnitRepo returns a UnitRepo bound to db.
func NewUnitRepo(db *sql.DB) *UnitRepo { return &UnitRepo{db: db} }

const unitColumns = `id, property_name, unit_number, unit_type, floor_number,
	building_block, building_name, billing_mode, status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnit(row rowScanner) (model.Unit, error) {
	var (
		u            model.Unit
		block, bname sql.NullString
	)
	err := row.Scan(&u.ID, &u.PropertyName, &u.UnitNumber, &u.UnitType, &u.FloorNumber,
		&block, &bname, &u.BillingMode, &u.Status)
	if err != nil {
		return model.Unit{}, err
	}
	if block.Valid {
		u.BuildingBlock = &block.String
	}
	if bname.Valid {
		u.BuildingName = &bname.String
	}
	return u, nil
}

// GetByID returns the unit or ErrUnitNotFound.
func (r *UnitRepo) GetByID(ctx context.Context, id uint64) (model.Unit, error) {
	u, err := scanUnit(r.db.QueryRowContext(ctx,
		`SELECT `+unitColumns+` FROM units WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Unit{}, ErrUnitNotFound
	}
	return u, err
}

// List returns every unit ordered by unit_number. The binary collation keeps
// the order a plain string comparison ("102" < "201" < "B101").
func (r *UnitRepo) List(ctx context.Context) ([]model.Unit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+unitColumns+` FROM units ORDER BY unit_number COLLATE utf8mb4_bin, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	units := []model.Unit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// UpdateStatus sets the administrative status and returns the updated unit.
func (r *UnitRepo) UpdateStatus(ctx context.Context, id uint64, status model.UnitStatus) (model.Unit, error) {
	if !status.Valid() {
		return model.Unit{}, fmt.Errorf("invalid unit status %q", status)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE units SET status = ? WHERE id = ?`, status, id); err != nil {
		return model.Unit{}, err
	}
	// RowsAffected is 0 when the status is unchanged, so existence is
	// decided by reading the row back.
	return r.GetByID(ctx, id)
}

// LockTx reads the unit with a row lock held until tx ends. Check-ins on the
// same unit queue behind this lock.
func (r *UnitRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Unit, error) {
	u, err := scanUnit(tx.QueryRowContext(ctx,
		`SELECT `+unitColumns+` FROM units WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Unit{}, ErrUnitNotFound
	}
	return u, err
}
