package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/sukha-pms/internal/repository"
	"github.com/iliyamo/sukha-pms/internal/service"
)

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and reported as 500 without detail.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error()})
	case errors.Is(err, repository.ErrUnitNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unit not found"})
	case errors.Is(err, repository.ErrStayNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "stay not found"})
	case errors.Is(err, repository.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case errors.Is(err, repository.ErrUnitOccupied):
		return c.JSON(http.StatusConflict, echo.Map{"error": "unit already occupied"})
	case errors.Is(err, repository.ErrStayCompleted):
		return c.JSON(http.StatusConflict, echo.Map{"error": "stay already completed"})
	case errors.Is(err, repository.ErrUsernameExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	}
	log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// jsonName reports a struct field by its JSON name in validation errors.
func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
