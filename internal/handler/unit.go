package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/sukha-pms/internal/model"
	"github.com/iliyamo/sukha-pms/internal/occupancy"
)

// UnitStore is the unit registry.
type UnitStore interface {
	GetByID(ctx context.Context, id uint64) (model.Unit, error)
	List(ctx context.Context) ([]model.Unit, error)
	UpdateStatus(ctx context.Context, id uint64, status model.UnitStatus) (model.Unit, error)
}

// UnitHandler serves /v1/units.
type UnitHandler struct {
	Units  UnitStore
	Ledger StayLedger
	Cache  CacheInvalidator
	Log    *zap.Logger
}

func NewUnitHandler(u UnitStore, l StayLedger, cache CacheInvalidator, log *zap.Logger) *UnitHandler {
	return &UnitHandler{Units: u, Ledger: l, Cache: cache, Log: log}
}

type unitStatusReq struct {
	Status model.UnitStatus `json:"status" validate:"required"`
}

// List returns every unit with its live occupancy, ordered by unit number.
func (h *UnitHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	units, active, err := h.snapshot(ctx)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, occupancy.Views(units, active))
}

// Available returns the units with no active stay.
func (h *UnitHandler) Available(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	units, active, err := h.snapshot(ctx)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, occupancy.AvailableUnits(units, active))
}

func (h *UnitHandler) snapshot(ctx context.Context) ([]model.Unit, []model.Stay, error) {
	units, err := h.Units.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	active, err := h.Ledger.ListActive(ctx)
	if err != nil {
		return nil, nil, err
	}
	return units, active, nil
}

// Get returns one unit with its live occupancy.
func (h *UnitHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid unit id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Units.GetByID(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return h.view(ctx, c, u)
}

// History returns every stay of a unit, newest first.
func (h *UnitHandler) History(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid unit id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stays, err := h.Ledger.History(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toStayResps(stays))
}

// UpdateStatus sets a unit's administrative status.
func (h *UnitHandler) UpdateStatus(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid unit id"})
	}
	var req unitStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": bindMessage(err)})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Units.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if h.Cache != nil {
		if err := h.Cache.Invalidate(ctx); err != nil {
			h.Log.Warn("unit view cache not invalidated", zap.Error(err))
		}
	}
	h.Log.Info("unit status changed", zap.Uint64("unit_id", u.ID), zap.String("status", string(u.Status)))
	return h.view(ctx, c, u)
}

func (h *UnitHandler) view(ctx context.Context, c echo.Context, u model.Unit) error {
	stay, err := h.Ledger.ActiveForUnit(ctx, u.ID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, occupancy.View(u, stay))
}
