// Package server wires services, handlers and middleware into the HTTP router.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "fxjournal/internal/docs" // swagger docs
	"fxjournal/internal/handlers"
	"fxjournal/internal/middleware"
	"fxjournal/internal/services"
)

// Services is the set of business services the API is built on.
type Services struct {
	Users     services.UserServicer
	Trades    services.TradeServicer
	Stats     services.StatsServicer
	Snapshots services.SnapshotServicer
	Audit     services.AuditServicer
}

// NewServices builds every service on db.
func NewServices(db *gorm.DB) Services {
	trades := services.NewTradeService(db)
	return Services{
		Users:     services.NewUserService(db),
		Trades:    trades,
		Stats:     services.NewStatsService(trades),
		Snapshots: services.NewSnapshotService(db),
		Audit:     services.NewAuditService(db),
	}
}

// Options tunes the router.
type Options struct {
	// PipelineAPIKey guards /pipeline routes; empty disables them.
	PipelineAPIKey string
	// RequestLogging enables the per-request access log.
	RequestLogging bool
	// Swagger serves the API docs under /swagger.
	Swagger bool
}

// cors allows browser front-ends on any origin.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// NewRouter returns the API router.
func NewRouter(svc Services, opts Options) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Users, svc.Audit)
	tradeHandler := handlers.NewTradeHandler(svc.Trades, svc.Audit)
	statsHandler := handlers.NewStatsHandler(svc.Stats)
	snapshotHandler := handlers.NewSnapshotHandler(svc.Snapshots)
	auditHandler := handlers.NewAuditHandler(svc.Audit)

	router := gin.New()
	router.Use(middleware.Recovery())
	if opts.RequestLogging {
		router.Use(middleware.RequestLogging())
	}
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	if opts.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Machine-to-machine routes
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(opts.PipelineAPIKey))
	pipeline.POST("/snapshots", snapshotHandler.RecordSnapshots)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	trades := protected.Group("/trades")
	trades.POST("", tradeHandler.CreateTrade)
	trades.GET("", tradeHandler.ListTrades)
	trades.DELETE("", tradeHandler.ClearTrades)
	trades.POST("/bulk", tradeHandler.BulkCreateTrades)
	trades.POST("/import", tradeHandler.ImportTrades)
	trades.POST("/demo", tradeHandler.SeedDemoTrades)
	trades.GET("/:id", tradeHandler.GetTrade)
	trades.PATCH("/:id", tradeHandler.UpdateTrade)
	trades.DELETE("/:id", tradeHandler.DeleteTrade)

	protected.GET("/exports/trades", tradeHandler.ExportTrades)
	protected.GET("/symbols", tradeHandler.ListSymbols)
	protected.GET("/months", tradeHandler.ListMonths)

	stats := protected.Group("/stats")
	stats.GET("/monthly", statsHandler.MonthlySummary)
	stats.GET("/symbols", statsHandler.SymbolBreakdown)
	stats.GET("/daily", statsHandler.DailySeries)
	stats.GET("/dashboard", statsHandler.Dashboard)

	protected.GET("/snapshots", snapshotHandler.ListSnapshots)
	protected.GET("/audit-logs", auditHandler.ListAuditLogs)

	return router
}
