// Package service holds the stay ledger: check-in, checkout and the queries
// over stays. It owns the rule that a unit has at most one active stay.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/sukha-pms/internal/metrics"
	"github.com/iliyamo/sukha-pms/internal/model"
	"github.com/iliyamo/sukha-pms/internal/queue"
	"github.com/iliyamo/sukha-pms/internal/repository"
)

// LedgerStore is the persistence the ledger needs. repository.LedgerStore
// implements it over MySQL.
type LedgerStore interface {
	InTx(ctx context.Context, fn func(repository.LedgerTx) error) error
	GetStay(ctx context.Context, id uint64) (model.Stay, error)
	ListActive(ctx context.Context) ([]model.Stay, error)
	ActiveForUnit(ctx context.Context, unitID uint64) (*model.Stay, error)
	StaysForUnit(ctx context.Context, unitID uint64) ([]model.Stay, error)
}

// CheckInRequest is a new stay as submitted by staff.
type CheckInRequest struct {
	UnitID        uint64
	GuestName     string
	GuestSource   model.GuestSource
	StayType      model.StayType
	CheckInDate   model.Date
	CheckOutDate  *model.Date
	PlannedMonths *int
	MonthlyDueDay *int
	MonthlyRent   *float64
	AdvanceAmount *float64
}

// Ledger records stays against units.
type Ledger struct {
	store   LedgerStore
	events  EventPublisher
	metrics *metrics.Metrics
	log     *zap.Logger
	loc     *time.Location
	locks   *unitLocks
	now     func() time.Time
}

// NewLedger wires a Ledger. loc decides which calendar day "today" is when
// checkout fills a missing checkout date.
func NewLedger(store LedgerStore, events EventPublisher, m *metrics.Metrics, log *zap.Logger, loc *time.Location) *Ledger {
	if events == nil {
		events = NopPublisher{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{
		store:   store,
		events:  events,
		metrics: m,
		log:     log,
		loc:     loc,
		locks:   newUnitLocks(),
		now:     time.Now,
	}
}

// CheckIn creates an active stay. Checks run in this order: the unit
// exists, the unit has no active stay, a yearly stay without a term gets
// DefaultYearlyMonths, a daily stay has a checkout date, a monthly or yearly
// stay has a term. The lookup and the insert happen under the unit's row
// lock, so two concurrent check-ins on one unit cannot both succeed.
func (l *Ledger) CheckIn(ctx context.Context, req CheckInRequest) (model.Stay, error) {
	unlock := l.locks.lock(req.UnitID)
	defer unlock()

	var (
		stay model.Stay
		unit model.Unit
	)
	err := l.store.InTx(ctx, func(tx repository.LedgerTx) error {
		var err error
		if unit, err = tx.LockUnit(ctx, req.UnitID); err != nil {
			return err
		}
		active, err := tx.ActiveStay(ctx, req.UnitID)
		if err != nil {
			return err
		}
		if active != nil {
			return repository.ErrUnitOccupied
		}
		if stay, err = l.buildStay(req); err != nil {
			return err
		}
		return tx.InsertStay(ctx, &stay)
	})
	l.metrics.CheckIns.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		l.log.Info("check-in rejected", zap.Uint64("unit_id", req.UnitID), zap.Error(err))
		return model.Stay{}, err
	}

	l.log.Info("guest checked in",
		zap.Uint64("stay_id", stay.ID),
		zap.Uint64("unit_id", stay.UnitID),
		zap.String("stay_type", string(stay.StayType)))
	l.publish(ctx, queue.QueueCheckedIn, stay, unit.DisplayName())
	return stay, nil
}

func (l *Ledger) buildStay(req CheckInRequest) (model.Stay, error) {
	name := strings.TrimSpace(req.GuestName)
	switch {
	case name == "":
		return model.Stay{}, invalid("guest_name", "required")
	case !req.GuestSource.Valid():
		return model.Stay{}, invalid("guest_source", "must be sukha or ayursiha")
	case !req.StayType.Valid():
		return model.Stay{}, invalid("stay_type", "must be daily, monthly or yearly")
	case req.CheckInDate.IsZero():
		return model.Stay{}, invalid("check_in_date", "required")
	case req.PlannedMonths != nil && *req.PlannedMonths < 0:
		return model.Stay{}, invalid("planned_months", "must not be negative")
	}

	stay := model.Stay{
		UnitID:        req.UnitID,
		GuestName:     name,
		GuestSource:   req.GuestSource,
		StayType:      req.StayType,
		CheckInDate:   req.CheckInDate,
		CheckOutDate:  req.CheckOutDate,
		PlannedMonths: req.PlannedMonths,
		MonthlyDueDay: req.MonthlyDueDay,
		MonthlyRent:   req.MonthlyRent,
		AdvanceAmount: req.AdvanceAmount,
		Status:        model.StayActive,
		CreatedAt:     l.now().UTC(),
	}

	if stay.StayType == model.StayYearly && !stay.HasPlannedMonths() {
		months := model.DefaultYearlyMonths
		stay.PlannedMonths = &months
	}
	if stay.StayType == model.StayDaily && stay.CheckOutDate == nil {
		return model.Stay{}, invalid("check_out_date", "daily stay requires check_out_date")
	}
	if stay.StayType.Term() && !stay.HasPlannedMonths() {
		return model.Stay{}, invalid("planned_months", "monthly/yearly stay requires planned_months")
	}
	if stay.CheckOutDate != nil && stay.CheckOutDate.Before(stay.CheckInDate) {
		return model.Stay{}, invalid("check_out_date", "must not be before check_in_date")
	}
	return stay, nil
}

// Checkout completes an active stay. A missing checkout date becomes today
// in the ledger's location; an existing one is kept. Checking out a stay
// that is already completed fails with repository.ErrStayCompleted.
func (l *Ledger) Checkout(ctx context.Context, stayID uint64) (model.Stay, error) {
	var stay model.Stay
	err := l.store.InTx(ctx, func(tx repository.LedgerTx) error {
		var err error
		if stay, err = tx.LockStay(ctx, stayID); err != nil {
			return err
		}
		if stay.Status == model.StayCompleted {
			return repository.ErrStayCompleted
		}
		if stay.CheckOutDate == nil {
			today := model.DateOf(l.now().In(l.loc))
			stay.CheckOutDate = &today
		}
		stay.Status = model.StayCompleted
		return tx.CompleteStay(ctx, stay.ID, *stay.CheckOutDate)
	})
	l.metrics.Checkouts.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		l.log.Info("checkout rejected", zap.Uint64("stay_id", stayID), zap.Error(err))
		return model.Stay{}, err
	}

	l.log.Info("guest checked out",
		zap.Uint64("stay_id", stay.ID),
		zap.Uint64("unit_id", stay.UnitID),
		zap.Stringer("check_out_date", stay.CheckOutDate))
	l.publish(ctx, queue.QueueCheckedOut, stay, "")
	return stay, nil
}

// ListActive returns every active stay ordered by id.
func (l *Ledger) ListActive(ctx context.Context) ([]model.Stay, error) {
	return l.store.ListActive(ctx)
}

// ActiveForUnit returns the unit's active stay, nil when it is vacant.
func (l *Ledger) ActiveForUnit(ctx context.Context, unitID uint64) (*model.Stay, error) {
	return l.store.ActiveForUnit(ctx, unitID)
}

// Get returns one stay.
func (l *Ledger) Get(ctx context.Context, stayID uint64) (model.Stay, error) {
	return l.store.GetStay(ctx, stayID)
}

// History returns every stay of a unit, newest first.
func (l *Ledger) History(ctx context.Context, unitID uint64) ([]model.Stay, error) {
	return l.store.StaysForUnit(ctx, unitID)
}

func (l *Ledger) publish(ctx context.Context, kind string, s model.Stay, unitName string) {
	ev := queue.StayEvent{
		Kind:        kind,
		StayID:      s.ID,
		UnitID:      s.UnitID,
		UnitName:    unitName,
		GuestName:   s.GuestName,
		GuestSource: string(s.GuestSource),
		StayType:    string(s.StayType),
		CheckInDate: s.CheckInDate.String(),
		OccurredAt:  l.now().UTC().Format(time.RFC3339),
	}
	if s.CheckOutDate != nil {
		ev.CheckOutDate = s.CheckOutDate.String()
	}
	if est := s.EstimatedCheckout(); est != nil {
		ev.EstimatedCheckout = est.String()
	}
	if err := l.events.PublishStayEvent(ctx, ev); err != nil {
		l.metrics.EventsFailed.Inc()
		l.log.Warn("stay event not published", zap.String("kind", kind), zap.Uint64("stay_id", s.ID), zap.Error(err))
	}
}

func outcome(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, repository.ErrUnitNotFound), errors.Is(err, repository.ErrStayNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, repository.ErrConflict):
		return metrics.OutcomeConflict
	case errors.As(err, &verr):
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeError
}
