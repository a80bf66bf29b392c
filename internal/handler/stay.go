package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/sukha-pms/internal/middleware"
	"github.com/iliyamo/sukha-pms/internal/model"
	"github.com/iliyamo/sukha-pms/internal/service"
)

// StayLedger is the part of service.Ledger the HTTP layer uses.
type StayLedger interface {
	CheckIn(ctx context.Context, req service.CheckInRequest) (model.Stay, error)
	Checkout(ctx context.Context, stayID uint64) (model.Stay, error)
	ListActive(ctx context.Context) ([]model.Stay, error)
	ActiveForUnit(ctx context.Context, unitID uint64) (*model.Stay, error)
	Get(ctx context.Context, stayID uint64) (model.Stay, error)
	History(ctx context.Context, unitID uint64) ([]model.Stay, error)
}

// CacheInvalidator drops cached unit views after occupancy changes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// StayHandler serves /v1/stays.
type StayHandler struct {
	Ledger StayLedger
	Cache  CacheInvalidator
	Log    *zap.Logger
}

func NewStayHandler(l StayLedger, cache CacheInvalidator, log *zap.Logger) *StayHandler {
	return &StayHandler{Ledger: l, Cache: cache, Log: log}
}

type checkInReq struct {
	UnitID        uint64            `json:"unit_id" validate:"required"`
	GuestName     string            `json:"guest_name" validate:"required,max=128"`
	GuestSource   model.GuestSource `json:"guest_source" validate:"required"`
	StayType      model.StayType    `json:"stay_type" validate:"required"`
	CheckInDate   *model.Date       `json:"check_in_date" validate:"required"`
	CheckOutDate  *model.Date       `json:"check_out_date"`
	PlannedMonths *int              `json:"planned_months"`
	MonthlyDueDay *int              `json:"monthly_due_day" validate:"omitempty,min=1,max=31"`
	MonthlyRent   *float64          `json:"monthly_rent" validate:"omitempty,gte=0"`
	AdvanceAmount *float64          `json:"advance_amount" validate:"omitempty,gte=0"`
}

// stayResp is a stay with its estimated checkout.
type stayResp struct {
	model.Stay
	EstimatedCheckout *model.Date `json:"estimated_checkout"`
}

func toStayResp(s model.Stay) stayResp {
	return stayResp{Stay: s, EstimatedCheckout: s.EstimatedCheckout()}
}

func toStayResps(stays []model.Stay) []stayResp {
	out := make([]stayResp, 0, len(stays))
	for _, s := range stays {
		out = append(out, toStayResp(s))
	}
	return out
}

// CheckIn records a new active stay on a unit.
func (h *StayHandler) CheckIn(c echo.Context) error {
	var req checkInReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": bindMessage(err)})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stay, err := h.Ledger.CheckIn(ctx, service.CheckInRequest{
		UnitID:        req.UnitID,
		GuestName:     req.GuestName,
		GuestSource:   req.GuestSource,
		StayType:      req.StayType,
		CheckInDate:   *req.CheckInDate,
		CheckOutDate:  req.CheckOutDate,
		PlannedMonths: req.PlannedMonths,
		MonthlyDueDay: req.MonthlyDueDay,
		MonthlyRent:   req.MonthlyRent,
		AdvanceAmount: req.AdvanceAmount,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.invalidate(ctx)
	if u, ok := middleware.CurrentUser(c); ok {
		h.Log.Debug("check-in by", zap.Uint64("user_id", u.ID), zap.Uint64("stay_id", stay.ID))
	}
	return c.JSON(http.StatusCreated, toStayResp(stay))
}

// List returns all active stays.
func (h *StayHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stays, err := h.Ledger.ListActive(ctx)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toStayResps(stays))
}

// Get returns one stay.
func (h *StayHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid stay id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stay, err := h.Ledger.Get(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toStayResp(stay))
}

// Checkout completes a stay.
func (h *StayHandler) Checkout(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid stay id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stay, err := h.Ledger.Checkout(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusOK, toStayResp(stay))
}

func (h *StayHandler) invalidate(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Invalidate(ctx); err != nil {
		h.Log.Warn("unit view cache not invalidated", zap.Error(err))
	}
}
