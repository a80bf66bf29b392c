package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sukha-pms/internal/model"
)

var unitCols = []string{"id", "property_name", "unit_number", "unit_type", "floor_number",
	"building_block", "building_name", "billing_mode", "status"}

var stayCols = []string{"id", "unit_id", "guest_name", "guest_source", "stay_type", "check_in_date",
	"check_out_date", "planned_months", "monthly_due_day", "monthly_rent", "advance_amount",
	"advance_refunded", "status", "created_at"}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestUnitRepo_GetByID_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUnitRepo(db)

	mock.ExpectQuery(`FROM units WHERE id = \?`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows(unitCols).
			AddRow(4, "Sukha Paradise", "B101", "apartment", 1, "B", "New Building", "monthly", "active"))

	u, err := repo.GetByID(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), u.ID)
	assert.Equal(t, model.UnitTypeApartment, u.UnitType)
	assert.Equal(t, model.BillingMonthly, u.BillingMode)
	require.NotNil(t, u.BuildingName)
	assert.Equal(t, "B101 (New Building)", u.DisplayName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitRepo_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUnitRepo(db)

	mock.ExpectQuery(`FROM units WHERE id = \?`).
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows(unitCols))

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUnitNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitRepo_GetByID_RejectsUnknownEnumInStore(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUnitRepo(db)

	mock.ExpectQuery(`FROM units WHERE id = \?`).
		WillReturnRows(sqlmock.NewRows(unitCols).
			AddRow(1, "Sukha Retreats", "307", "villa", 3, nil, nil, "daily", "active"))

	_, err := repo.GetByID(context.Background(), 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnitNotFound)
}

func TestUnitRepo_List_UsesBinaryOrdering(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUnitRepo(db)

	mock.ExpectQuery(`ORDER BY unit_number COLLATE utf8mb4_bin`).
		WillReturnRows(sqlmock.NewRows(unitCols).
			AddRow(1, "Sukha Retreats", "102", "room", 1, nil, nil, "daily", "active").
			AddRow(2, "Sukha Retreats", "201", "room", 2, nil, nil, "daily", "maintenance").
			AddRow(3, "Sukha Paradise", "B101", "apartment", 1, "B", "New Building", "monthly", "active"))

	units, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.Equal(t, []string{"102", "201", "B101"}, []string{units[0].UnitNumber, units[1].UnitNumber, units[2].UnitNumber})
	assert.Nil(t, units[0].BuildingBlock)
	assert.Equal(t, model.UnitMaintenance, units[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitRepo_UpdateStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUnitRepo(db)

	mock.ExpectExec(`UPDATE units SET status = \? WHERE id = \?`).
		WithArgs("maintenance", uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM units WHERE id = \?`).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows(unitCols).
			AddRow(2, "Sukha Retreats", "201", "room", 2, nil, nil, "daily", "maintenance"))

	u, err := repo.UpdateStatus(context.Background(), 2, model.UnitMaintenance)
	require.NoError(t, err)
	assert.Equal(t, model.UnitMaintenance, u.Status)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = repo.UpdateStatus(context.Background(), 2, model.UnitStatus("occupied"))
	assert.Error(t, err)
}

func TestStayRepo_ListActive_ScansNullableColumns(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStayRepo(db)

	in := time.Date(2024, time.April, 28, 0, 0, 0, 0, time.UTC)
	out := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, time.April, 28, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM stays WHERE status = \? ORDER BY id`).
		WithArgs("active").
		WillReturnRows(sqlmock.NewRows(stayCols).
			AddRow(1, 3, "Nimal", "sukha", "daily", in, out, nil, nil, nil, 5000.0, false, "active", created).
			AddRow(2, 8, "Kamala", "ayursiha", "yearly", in, nil, 12, 5, 85000.0, nil, false, "active", created))

	stays, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, stays, 2)

	daily := stays[0]
	assert.Equal(t, model.StayDaily, daily.StayType)
	require.NotNil(t, daily.CheckOutDate)
	assert.Equal(t, model.NewDate(2024, time.May, 1), *daily.CheckOutDate)
	assert.Nil(t, daily.PlannedMonths)
	require.NotNil(t, daily.AdvanceAmount)
	assert.Equal(t, 5000.0, *daily.AdvanceAmount)

	yearly := stays[1]
	assert.Nil(t, yearly.CheckOutDate)
	require.NotNil(t, yearly.PlannedMonths)
	assert.Equal(t, 12, *yearly.PlannedMonths)
	require.NotNil(t, yearly.MonthlyDueDay)
	assert.Equal(t, 5, *yearly.MonthlyDueDay)
	assert.Equal(t, model.NewDate(2024, time.April, 28), yearly.CheckInDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStayRepo_ActiveForUnit_Vacant(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStayRepo(db)

	mock.ExpectQuery(`FROM stays WHERE unit_id = \? AND status = \? LIMIT 1`).
		WithArgs(uint64(3), "active").
		WillReturnRows(sqlmock.NewRows(stayCols))

	s, err := repo.ActiveForUnit(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStayRepo_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStayRepo(db)

	mock.ExpectQuery(`FROM stays WHERE id = \?`).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(stayCols))

	_, err := repo.GetByID(context.Background(), 5)
	assert.ErrorIs(t, err, ErrStayNotFound)
}

func newLedgerStore(db *sql.DB) *LedgerStore {
	return NewLedgerStore(db, NewUnitRepo(db), NewStayRepo(db))
}

func TestLedgerStore_CheckInSequenceCommits(t *testing.T) {
	db, mock := setupMockDB(t)
	store := newLedgerStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM units WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(unitCols).
			AddRow(3, "Sukha Retreats", "307", "room", 3, nil, nil, "daily", "active"))
	mock.ExpectQuery(`FROM stays WHERE unit_id = \? AND status = \? LIMIT 1 FOR UPDATE`).
		WithArgs(uint64(3), "active").
		WillReturnRows(sqlmock.NewRows(stayCols))
	mock.ExpectExec(`INSERT INTO stays`).
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectCommit()

	out := model.NewDate(2024, time.May, 3)
	stay := &model.Stay{
		UnitID: 3, GuestName: "Nimal", GuestSource: model.SourceSukha, StayType: model.StayDaily,
		CheckInDate: model.NewDate(2024, time.May, 1), CheckOutDate: &out,
		Status: model.StayActive, CreatedAt: time.Now().UTC(),
	}
	err := store.InTx(context.Background(), func(tx LedgerTx) error {
		if _, err := tx.LockUnit(context.Background(), 3); err != nil {
			return err
		}
		active, err := tx.ActiveStay(context.Background(), 3)
		if err != nil {
			return err
		}
		assert.Nil(t, active)
		return tx.InsertStay(context.Background(), stay)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(41), stay.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStore_DuplicateActiveStayRollsBack(t *testing.T) {
	db, mock := setupMockDB(t)
	store := newLedgerStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO stays`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '3' for key 'uq_stays_active_unit'"})
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx LedgerTx) error {
		return tx.InsertStay(context.Background(), &model.Stay{UnitID: 3, Status: model.StayActive})
	})
	assert.ErrorIs(t, err, ErrUnitOccupied)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStore_MissingUnitRollsBack(t *testing.T) {
	db, mock := setupMockDB(t)
	store := newLedgerStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM units WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(77)).
		WillReturnRows(sqlmock.NewRows(unitCols))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx LedgerTx) error {
		_, err := tx.LockUnit(context.Background(), 77)
		return err
	})
	assert.ErrorIs(t, err, ErrUnitNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStore_CompleteStay(t *testing.T) {
	db, mock := setupMockDB(t)
	store := newLedgerStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE stays SET status = \?, check_out_date = \? WHERE id = \?`).
		WithArgs("completed", "2024-06-01", uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(tx LedgerTx) error {
		return tx.CompleteStay(context.Background(), 9, model.NewDate(2024, time.June, 1))
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStore_StaysForUnitRequiresUnit(t *testing.T) {
	db, mock := setupMockDB(t)
	store := newLedgerStore(db)

	mock.ExpectQuery(`FROM units WHERE id = \?`).
		WithArgs(uint64(12)).
		WillReturnRows(sqlmock.NewRows(unitCols))

	_, err := store.StaysForUnit(context.Background(), 12)
	assert.ErrorIs(t, err, ErrUnitNotFound)
}

func TestUserRepo_CreateDuplicateUsername(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("reception1", sqlmock.AnyArg(), "Front Desk", "reception").
		WillReturnError(&mysql.MySQLError{Number: 1062})

	_, err := repo.Create(context.Background(), "  Reception1 ", "s3cret-pass", "Front Desk", model.RoleReception, 4)
	assert.ErrorIs(t, err, ErrUsernameExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByUsername(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`FROM users WHERE username=\?`).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "full_name", "role", "is_active", "created_at"}).
			AddRow(1, "admin", "$2a$04$hash", "Administrator", "admin", true, time.Now()))

	u, err := repo.GetByUsername(context.Background(), "Admin")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)

	mock.ExpectQuery(`FROM users WHERE id=\?`).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = repo.GetByID(context.Background(), 2)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestTokenRepo_ValidateRefresh(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTokenRepo(db)
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{"id", "user_id", "token_hash", "expires_at", "revoked_at", "created_at"}

	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash=\?`).
		WithArgs("good").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, 7, "good", now.Add(time.Hour), nil, now))
	tok, err := repo.ValidateRefresh(context.Background(), "good", now)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), tok.UserID)

	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash=\?`).
		WithArgs("expired").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(2, 7, "expired", now.Add(-time.Minute), nil, now))
	_, err = repo.ValidateRefresh(context.Background(), "expired", now)
	assert.ErrorIs(t, err, ErrRefreshInvalid)

	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash=\?`).
		WithArgs("revoked").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, 7, "revoked", now.Add(time.Hour), now, now))
	_, err = repo.ValidateRefresh(context.Background(), "revoked", now)
	assert.ErrorIs(t, err, ErrRefreshInvalid)

	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash=\?`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = repo.ValidateRefresh(context.Background(), "missing", now)
	assert.ErrorIs(t, err, ErrRefreshInvalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}
