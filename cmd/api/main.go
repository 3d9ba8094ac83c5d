package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "itemledger/api/swagger" // swagger docs
	"itemledger/internal/config"
	"itemledger/internal/database"
	"itemledger/internal/handler"
	"itemledger/internal/middleware"
	"itemledger/internal/ocr"
	"itemledger/internal/service"
	"itemledger/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Item Ledger API
// @version         1.0
// @description     Trading ledger for in-game items: stock movements, inventory projection, undoable operation log.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.MustLoad()
	log := config.NewLogger(cfg.LogLevel)
	gin.SetMode(cfg.Server.Mode)

	db, err := database.NewConnection(cfg.DB, log)
	if err != nil {
		log.WithError(err).Fatal("Database connection failed")
	}
	log.WithField("driver", cfg.DB.Driver).Info("Connected to database")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run()
	defer wsHub.Stop()

	// Set up dependencies (Repository -> Service -> Handler)
	store := service.NewStore(db)
	pen := &service.Pen{}

	ledgerService := service.NewLedgerService(store, pen, wsHub, log)
	projectionService := service.NewProjectionService(store, pen, wsHub, log)
	catalogService := service.NewCatalogService(store, pen, log)
	eventService := service.NewEventService(store, log)
	operationLogService := service.NewOperationLogService(store, log)
	statisticsService := service.NewStatisticsService(store, log)
	silverService := service.NewSilverService(store, cfg.ConfigDir, log)
	exportService := service.NewExportService(store, log)

	var runner *ocr.Runner
	if client, err := ocr.NewClient(cfg.OCR); err != nil {
		log.WithError(err).Warn("OCR client disabled")
	} else {
		runner = ocr.NewRunner(client, log)
	}
	importService := service.NewImportService(ledgerService, runner, log)

	// Initialize Handlers
	stockHandler := handler.NewStockHandler(ledgerService, eventService)
	inventoryHandler := handler.NewInventoryHandler(projectionService)
	auditHandler := handler.NewAuditHandler(operationLogService, ledgerService)
	tradeMonitorHandler := handler.NewTradeMonitorHandler(ledgerService, eventService)
	itemHandler := handler.NewItemHandler(catalogService)
	silverHandler := handler.NewSilverHandler(silverService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)
	exportHandler := handler.NewExportHandler(exportService)
	importHandler := handler.NewImportHandler(importService)
	settingsHandler := handler.NewSettingsHandler(cfg.ConfigDir)

	// Set up Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	// WebSocket endpoint
	secret := []byte(cfg.APISecret)
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret)
	})

	// API Routing
	api := router.Group("", middleware.RequireToken(secret))
	stockHandler.RegisterRoutes(api)
	inventoryHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)
	tradeMonitorHandler.RegisterRoutes(api)
	itemHandler.RegisterRoutes(api)
	silverHandler.RegisterRoutes(api)
	statisticsHandler.RegisterRoutes(api)
	exportHandler.RegisterRoutes(api)
	importHandler.RegisterRoutes(api)
	settingsHandler.RegisterRoutes(api)

	if cfg.APISecret == "" {
		log.Warn("API_SECRET is empty, API is open")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("addr", srv.Addr).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("Server stopped")
}
