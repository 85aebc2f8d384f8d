// internal/router/router.go
package router

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/capdex/capdex-backend/internal/config"
	"github.com/capdex/capdex-backend/internal/handlers"
	"github.com/capdex/capdex-backend/internal/middleware"
	"github.com/capdex/capdex-backend/internal/services"
	"github.com/capdex/capdex-backend/internal/utils"
)

const Version = "1.0.0"

// Router is the HTTP surface plus the background helpers it owns.
type Router struct {
	Engine *gin.Engine
	Audit  *middleware.AuditLogger
}

// Initialize wires services and routes. Background cleanup stops with ctx.
func Initialize(ctx context.Context, db *gorm.DB, cfg *config.Config) *Router {
	// Initialize services
	tokens := utils.NewTokenManager(cfg.Auth.SecretKey)
	reservationService := services.NewReservationService(db, cfg.Trades)
	catalogService := services.NewCatalogService(db, cfg.Trades)
	traderService := services.NewTraderService(db)
	authService := services.NewAuthService(cfg.Auth, tokens)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, Version)
	authHandler := handlers.NewAuthHandler(authService)
	tradeHandler := handlers.NewTradeHandler(reservationService)
	catalogHandler := handlers.NewCatalogHandler(catalogService, reservationService)
	traderHandler := handlers.NewTraderHandler(traderService)

	limiters := middleware.NewRateLimiters(cfg.RateLimit)
	limiters.Run(ctx)
	audit := middleware.NewAuditLogger(db)
	adminOnly := middleware.AdminRequired(tokens)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.I18nMiddleware())

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/v1")
	v1.Use(limiters.General.Middleware())
	v1.Use(audit.Middleware())
	{
		auth := v1.Group("/auth")
		auth.Use(limiters.Login.Middleware())
		{
			auth.POST("/login", authHandler.Login)
		}

		trades := v1.Group("/trades")
		{
			trades.GET("", tradeHandler.ListTrades)
			trades.GET("/:id", tradeHandler.GetTrade)
			trades.GET("/:id/reservations", tradeHandler.ListReservedInstances)

			protected := trades.Group("")
			protected.Use(adminOnly)
			{
				protected.POST("", tradeHandler.CreateTrade)
				protected.POST("/:id/reservations", tradeHandler.ReserveInstances)
				protected.POST("/:id/cancel", tradeHandler.CancelTrade)
				protected.POST("/:id/complete", tradeHandler.CompleteTrade)
			}
		}

		caps := v1.Group("/caps")
		{
			caps.GET("/:id", catalogHandler.GetCap)
			caps.GET("/:id/available", catalogHandler.ListAvailableInstances)

			protected := caps.Group("")
			protected.Use(adminOnly)
			{
				protected.POST("", catalogHandler.CreateCap)
				protected.POST("/:id/instances", catalogHandler.RegisterInstances)
			}
		}

		v1.POST("/instances/print", adminOnly, catalogHandler.MarkPrinted)

		traders := v1.Group("/traders")
		{
			traders.GET("/:id", traderHandler.GetTrader)

			protected := traders.Group("")
			protected.Use(adminOnly)
			{
				protected.POST("", traderHandler.CreateTrader)
				protected.DELETE("/:id", traderHandler.DeleteTrader)
			}
		}
	}

	return &Router{Engine: r, Audit: audit}
}
