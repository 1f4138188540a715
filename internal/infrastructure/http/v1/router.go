// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	appctx "growermarket/internal/core/context"
	"growermarket/internal/domain/commission"
	"growermarket/internal/domain/ledger"
	"growermarket/internal/domain/pricing"
	"growermarket/internal/domain/stockrequest"
	"growermarket/internal/infrastructure/cache"
	"growermarket/internal/infrastructure/http/v1/handlers"
	"growermarket/internal/infrastructure/http/v1/middleware"
	"growermarket/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Domain services
	Ledger       *ledger.Service
	Aggregator   *pricing.Aggregator
	Commission   *commission.Service
	StockRequest *stockrequest.Service

	// Alerts serves badge counts; usually a cache.AlertCounters.
	Alerts handlers.AlertCounters

	// Idempotency is optional; nil disables X-Idempotency-Key handling.
	Idempotency *cache.IdempotencyStore

	// Health checks the backing store; nil for the in-memory store.
	Health      handlers.Pinger
	StorageName string

	// Debug switches gin to debug mode.
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Health, cfg.StorageName)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))
	v1.Use(middleware.Idempotency(cfg.Idempotency))
	{
		registerPricingRoutes(v1, cfg)
		registerCommissionRoutes(v1, cfg)
		registerStockRequestRoutes(v1, cfg)
	}

	return router
}

func registerPricingRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	h := handlers.NewPricingHandler(cfg.Ledger, cfg.Aggregator)

	rg.GET("/products/:productId/prices", h.ProductPrices)
	rg.GET("/products/:productId/stock", h.GlobalStock)
	rg.GET("/units/:unitId/prices", h.UnitPrices)
	rg.GET("/units/:unitId/summary", h.UnitSummary)
	rg.GET("/growers/:growerId/products/:productId/records", h.GrowerProductRecords)

	rg.PUT("/prices", h.UpdatePrice)
	rg.PUT("/prices/batch", h.BatchUpdatePrices)
}

func registerCommissionRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	h := handlers.NewCommissionHandler(cfg.Commission)

	group := rg.Group("/commission")
	group.GET("/growers/:growerId", h.GrowerCommission)
	group.GET("/quote", h.Quote)
}

func registerStockRequestRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	h := handlers.NewStockRequestHandler(cfg.StockRequest, cfg.Alerts)

	rg.GET("/growers/:growerId/stock-requests", h.ListByGrower)

	group := rg.Group("/stock-requests")
	group.POST("", h.Submit)
	group.GET("/pending-count", h.PendingCount)
	group.POST("/acknowledge", h.Acknowledge)
	group.GET("/:id", h.Get)
	group.POST("/:id/decision", middleware.RequireRole(appctx.RoleAdmin), h.Decide)
}
