package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/sukha-pms/internal/model"
)

// StayRepo persists stays. Writes bound by the one-active-stay-per-unit rule
// run inside a caller-supplied transaction (the *Tx methods); see
// LedgerStore for the transaction boundary.
type StayRepo struct {
	db *sql.DB
}

// NewStayRepo returns a StayRepo bound to db.
func NewStayRepo(db *sql.DB) *StayRepo { return &StayRepo{db: db} }

const stayColumns = `id, unit_id, guest_name, guest_source, stay_type, check_in_date,
	check_out_date, planned_months, monthly_due_day, monthly_rent, advance_amount,
	advance_refunded, status, created_at`

func scanStay(row rowScanner) (model.Stay, error) {
	var (
		s               model.Stay
		checkOut        sql.NullTime
		planned, dueDay sql.NullInt64
		rent, advance   sql.NullFloat64
	)
	err := row.Scan(&s.ID, &s.UnitID, &s.GuestName, &s.GuestSource, &s.StayType, &s.CheckInDate,
		&checkOut, &planned, &dueDay, &rent, &advance,
		&s.AdvanceRefunded, &s.Status, &s.CreatedAt)
	if err != nil {
		return model.Stay{}, err
	}
	if checkOut.Valid {
		s.CheckOutDate = model.DatePtr(&checkOut.Time)
	}
	s.PlannedMonths = nullInt(planned)
	s.MonthlyDueDay = nullInt(dueDay)
	s.MonthlyRent = nullFloat(rent)
	s.AdvanceAmount = nullFloat(advance)
	return s, nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func queryStays(ctx context.Context, q interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}, query string, args ...any) ([]model.Stay, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stays := []model.Stay{}
	for rows.Next() {
		s, err := scanStay(rows)
		if err != nil {
			return nil, err
		}
		stays = append(stays, s)
	}
	return stays, rows.Err()
}

// GetByID returns the stay or ErrStayNotFound.
func (r *StayRepo) GetByID(ctx context.Context, id uint64) (model.Stay, error) {
	s, err := scanStay(r.db.QueryRowContext(ctx,
		`SELECT `+stayColumns+` FROM stays WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Stay{}, ErrStayNotFound
	}
	return s, err
}

// ListActive returns all active stays ordered by id.
func (r *StayRepo) ListActive(ctx context.Context) ([]model.Stay, error) {
	return queryStays(ctx, r.db,
		`SELECT `+stayColumns+` FROM stays WHERE status = ? ORDER BY id`, model.StayActive)
}

// ListByUnit returns the full stay history of a unit, newest first.
func (r *StayRepo) ListByUnit(ctx context.Context, unitID uint64) ([]model.Stay, error) {
	return queryStays(ctx, r.db,
		`SELECT `+stayColumns+` FROM stays WHERE unit_id = ? ORDER BY check_in_date DESC, id DESC`, unitID)
}

// ActiveForUnit returns the unit's active stay, or nil when it is vacant.
func (r *StayRepo) ActiveForUnit(ctx context.Context, unitID uint64) (*model.Stay, error) {
	s, err := scanStay(r.db.QueryRowContext(ctx,
		`SELECT `+stayColumns+` FROM stays WHERE unit_id = ? AND status = ? LIMIT 1`,
		unitID, model.StayActive))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ActiveByUnitTx returns the unit's active stay, or nil when it is vacant.
// The locking read sees the latest committed stays rather than the
// transaction snapshot.
func (r *StayRepo) ActiveByUnitTx(ctx context.Context, tx *sql.Tx, unitID uint64) (*model.Stay, error) {
	s, err := scanStay(tx.QueryRowContext(ctx,
		`SELECT `+stayColumns+` FROM stays WHERE unit_id = ? AND status = ? LIMIT 1 FOR UPDATE`,
		unitID, model.StayActive))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateTx inserts s and sets its generated ID. A duplicate on the
// active-unit unique index means another check-in won the race and is
// reported as ErrUnitOccupied.
func (r *StayRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Stay) error {
	const q = `INSERT INTO stays (unit_id, guest_name, guest_source, stay_type, check_in_date,
		check_out_date, planned_months, monthly_due_day, monthly_rent, advance_amount,
		advance_refunded, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var checkOut any
	if s.CheckOutDate != nil {
		checkOut = *s.CheckOutDate
	}
	res, err := tx.ExecContext(ctx, q,
		s.UnitID, s.GuestName, s.GuestSource, s.StayType, s.CheckInDate,
		checkOut, s.PlannedMonths, s.MonthlyDueDay, s.MonthlyRent, s.AdvanceAmount,
		s.AdvanceRefunded, s.Status, s.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrUnitOccupied
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetForUpdateTx loads a stay and locks its row until tx ends.
func (r *StayRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Stay, error) {
	s, err := scanStay(tx.QueryRowContext(ctx,
		`SELECT `+stayColumns+` FROM stays WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Stay{}, ErrStayNotFound
	}
	return s, err
}

// CompleteTx marks a stay completed with the given checkout date.
func (r *StayRepo) CompleteTx(ctx context.Context, tx *sql.Tx, id uint64, checkOut model.Date) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE stays SET status = ?, check_out_date = ? WHERE id = ?`,
		model.StayCompleted, checkOut, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStayNotFound
	}
	return nil
}
