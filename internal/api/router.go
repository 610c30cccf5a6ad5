package api

import (
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/diagramstudio/diagram-api/docs"
	"github.com/diagramstudio/diagram-api/internal/api/handler"
	"github.com/diagramstudio/diagram-api/internal/api/middleware"
	"github.com/diagramstudio/diagram-api/internal/core/domain"
	"github.com/diagramstudio/diagram-api/internal/core/ports"
	"github.com/diagramstudio/diagram-api/internal/infrastructure/http/handlers"
)

// RateLimitPolicy bounds requests per client IP on the credential endpoints.
type RateLimitPolicy struct {
	Requests int
	Window   time.Duration
}

// Dependencies is everything the router needs. Limiter may be nil, in which
// case no rate limiting is applied. Registerer and Gatherer default to the
// global Prometheus registry.
type Dependencies struct {
	Log          zerolog.Logger
	Tokens       ports.TokenVerifier
	Auth         ports.AuthService
	APIKeys      ports.APIKeyService
	Users        ports.UserService
	Diagrams     ports.DiagramService
	Limiter      ports.RateLimiter
	RateLimit    RateLimitPolicy
	HealthChecks map[string]handlers.Check
	Registerer   prometheus.Registerer
	Gatherer     prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "diagram",
		Subsystem:  "http",
		Registerer: registerer,
		Skipper:    skipOperational,
	}))
	e.Use(middleware.RequestLogger(deps.Log))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	userHandler := handler.NewUserHandler(deps.Users)
	apiKeyHandler := handler.NewAPIKeyHandler(deps.APIKeys)
	diagramHandler := handler.NewDiagramHandler(deps.Diagrams)
	adminHandler := handler.NewAdminHandler(deps.Users)

	requireAuth := middleware.Auth(deps.Tokens)

	// --- Auth routes ---
	e.POST("/register", authHandler.Register, rateLimit(deps, "register")...)
	e.POST("/login", authHandler.Login, rateLimit(deps, "login")...)
	e.POST("/setup-2fa", authHandler.SetupTwoFactor, requireAuth)
	e.POST("/verify-2fa", authHandler.VerifyTwoFactor, requireAuth)

	// --- Self-service ---
	me := e.Group("/users/me", requireAuth)
	me.GET("", userHandler.Me)
	me.PATCH("", userHandler.Update)
	me.POST("/password", userHandler.ChangePassword)
	me.POST("/disable-2fa", authHandler.DisableTwoFactor)
	me.GET("/api-keys", apiKeyHandler.List)
	me.POST("/api-keys", apiKeyHandler.Create)
	me.DELETE("/api-keys/:id", apiKeyHandler.Revoke)

	// --- Diagrams (bearer or API key) ---
	canRead := middleware.RequirePermission(domain.PermissionDiagramsRead)
	canWrite := middleware.RequirePermission(domain.PermissionDiagramsWrite)

	diagrams := e.Group("/diagrams", middleware.AuthOrAPIKey(deps.Tokens, deps.APIKeys))
	diagrams.GET("", diagramHandler.List, canRead)
	diagrams.POST("", diagramHandler.Create, canWrite)
	diagrams.GET("/:id", diagramHandler.Get, canRead)
	diagrams.PATCH("/:id", diagramHandler.Update, canWrite)
	diagrams.DELETE("/:id", diagramHandler.Delete, canWrite)

	// --- Admin ---
	admin := e.Group("/admin", requireAuth, middleware.RequireAdmin(deps.Users))
	admin.GET("/users", adminHandler.ListUsers)
	admin.PATCH("/users/:id", adminHandler.UpdateUser)
	admin.GET("/audit-logs", adminHandler.AuditLogs)

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.HealthChecks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operational ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func rateLimit(deps Dependencies, scope string) []echo.MiddlewareFunc {
	if deps.Limiter == nil {
		return nil
	}
	return []echo.MiddlewareFunc{
		middleware.RateLimit(deps.Limiter, scope, deps.RateLimit.Requests, deps.RateLimit.Window, deps.Log),
	}
}

func skipOperational(c echo.Context) bool {
	p := c.Path()
	return p == "/metrics" || strings.HasPrefix(p, "/health") || strings.HasPrefix(p, "/swagger")
}
