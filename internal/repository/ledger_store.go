package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/sukha-pms/internal/model"
)

// LedgerTx is what the stay ledger may do inside one transaction.
type LedgerTx interface {
	LockUnit(ctx context.Context, unitID uint64) (model.Unit, error)
	ActiveStay(ctx context.Context, unitID uint64) (*model.Stay, error)
	InsertStay(ctx context.Context, s *model.Stay) error
	LockStay(ctx context.Context, id uint64) (model.Stay, error)
	CompleteStay(ctx context.Context, id uint64, checkOut model.Date) error
}

// LedgerStore gives the stay ledger transactional access to units and
// stays. Every InTx call runs on its own *sql.Tx taken from the shared pool
// and is rolled back on any path that does not commit.
type LedgerStore struct {
	db    *sql.DB
	units *UnitRepo
	stays *StayRepo
}

// NewLedgerStore wires the repositories the ledger reads and writes.
func NewLedgerStore(db *sql.DB, units *UnitRepo, stays *StayRepo) *LedgerStore {
	if db == nil || units == nil || stays == nil {
		panic("nil dependency passed to NewLedgerStore")
	}
	return &LedgerStore{db: db, units: units, stays: stays}
}

// InTx runs fn in a transaction and commits when fn returns nil.
func (s *LedgerStore) InTx(ctx context.Context, fn func(LedgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&ledgerTx{tx: tx, units: s.units, stays: s.stays}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *LedgerStore) GetStay(ctx context.Context, id uint64) (model.Stay, error) {
	return s.stays.GetByID(ctx, id)
}

func (s *LedgerStore) ListActive(ctx context.Context) ([]model.Stay, error) {
	return s.stays.ListActive(ctx)
}

func (s *LedgerStore) ActiveForUnit(ctx context.Context, unitID uint64) (*model.Stay, error) {
	return s.stays.ActiveForUnit(ctx, unitID)
}

// StaysForUnit returns the unit's history, or ErrUnitNotFound.
func (s *LedgerStore) StaysForUnit(ctx context.Context, unitID uint64) ([]model.Stay, error) {
	if _, err := s.units.GetByID(ctx, unitID); err != nil {
		return nil, err
	}
	return s.stays.ListByUnit(ctx, unitID)
}

type ledgerTx struct {
	tx    *sql.Tx
	units *UnitRepo
	stays *StayRepo
}

func (t *ledgerTx) LockUnit(ctx context.Context, unitID uint64) (model.Unit, error) {
	return t.units.LockTx(ctx, t.tx, unitID)
}

func (t *ledgerTx) ActiveStay(ctx context.Context, unitID uint64) (*model.Stay, error) {
	return t.stays.ActiveByUnitTx(ctx, t.tx, unitID)
}

func (t *ledgerTx) InsertStay(ctx context.Context, s *model.Stay) error {
	return t.stays.CreateTx(ctx, t.tx, s)
}

func (t *ledgerTx) LockStay(ctx context.Context, id uint64) (model.Stay, error) {
	return t.stays.GetForUpdateTx(ctx, t.tx, id)
}

func (t *ledgerTx) CompleteStay(ctx context.Context, id uint64, checkOut model.Date) error {
	return t.stays.CompleteTx(ctx, t.tx, id, checkOut)
}
