// Package router wires handlers, auth and role guards onto echo routes.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/sukha-pms/internal/handler"
	"github.com/iliyamo/sukha-pms/internal/metrics"
	"github.com/iliyamo/sukha-pms/internal/middleware"
	"github.com/iliyamo/sukha-pms/internal/model"
)

// Who may do what. Reads of stays and single units are open to every
// authenticated role.
var (
	checkInRoles     = []model.Role{model.RoleAdmin, model.RoleOwner, model.RoleManager, model.RoleReception}
	checkoutRoles    = []model.Role{model.RoleAdmin, model.RoleManager, model.RoleReception}
	unitListRoles    = []model.Role{model.RoleAdmin, model.RoleOwner, model.RoleManager, model.RoleReception}
	unitHistoryRoles = []model.Role{model.RoleAdmin, model.RoleOwner, model.RoleManager}
	unitStatusRoles  = []model.Role{model.RoleAdmin, model.RoleOwner, model.RoleManager, model.RoleHousekeeping}
	userAdminRoles   = []model.Role{model.RoleAdmin}
)

// AuthRoutes are the session and account endpoints.
type AuthRoutes interface {
	Login(c echo.Context) error
	Refresh(c echo.Context) error
	Logout(c echo.Context) error
	Me(c echo.Context) error
	CreateUser(c echo.Context) error
}

// StayRoutes are the stay ledger endpoints.
type StayRoutes interface {
	CheckIn(c echo.Context) error
	List(c echo.Context) error
	Get(c echo.Context) error
	Checkout(c echo.Context) error
}

// UnitRoutes are the unit registry endpoints.
type UnitRoutes interface {
	List(c echo.Context) error
	Available(c echo.Context) error
	Get(c echo.Context) error
	History(c echo.Context) error
	UpdateStatus(c echo.Context) error
}

// Deps is everything New needs. RateLimit, Cache and Metrics may be nil.
type Deps struct {
	Auth      AuthRoutes
	Stays     StayRoutes
	Units     UnitRoutes
	Users     middleware.UserLoader
	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Cache     *middleware.ResponseCache
	Metrics   http.Handler
	Log       *zap.Logger
	Stats     *metrics.Metrics
}

// New builds the echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log, d.Stats))

	limit := d.RateLimit
	if limit == nil {
		limit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	RegisterRoutes(e, d.Metrics)
	RegisterAuth(e, d.Auth, limit)

	v1 := e.Group("/v1", middleware.JWTAuth(d.JWTSecret, d.Users), limit)
	v1.GET("/me", d.Auth.Me)
	v1.POST("/users", d.Auth.CreateUser, middleware.RequireRole(userAdminRoles...))
	RegisterStays(v1, d.Stays)
	RegisterUnits(v1, d.Units, d.Cache)
	return e
}

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, metricsHandler http.Handler) {
	e.GET("/healthz", handler.Health)
	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}
}

// RegisterAuth registers the session endpoints. None of them needs an
// access token; logout works from the refresh token alone.
func RegisterAuth(e *echo.Echo, a AuthRoutes, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
}

// RegisterStays registers the stay ledger on an authenticated group.
func RegisterStays(g *echo.Group, h StayRoutes) {
	g.GET("/stays", h.List)
	g.GET("/stays/:id", h.Get)
	g.POST("/stays", h.CheckIn, middleware.RequireRole(checkInRoles...))
	g.PATCH("/stays/:id/checkout", h.Checkout, middleware.RequireRole(checkoutRoles...))
}

// RegisterUnits registers the unit registry on an authenticated group. The
// occupancy views are served through the response cache.
func RegisterUnits(g *echo.Group, h UnitRoutes, cache *middleware.ResponseCache) {
	cached := cache.Middleware()
	g.GET("/units", h.List, middleware.RequireRole(unitListRoles...), cached)
	g.GET("/units/available", h.Available, middleware.RequireRole(unitListRoles...), cached)
	g.GET("/units/:id", h.Get, cached)
	g.GET("/units/:id/stays", h.History, middleware.RequireRole(unitHistoryRoles...))
	g.PATCH("/units/:id/status", h.UpdateStatus, middleware.RequireRole(unitStatusRoles...))
}
