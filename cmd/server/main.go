package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	syncapp "github.com/crmbridge/backend/internal/application/sync"
	"github.com/crmbridge/backend/internal/infrastructure/accessdb"
	"github.com/crmbridge/backend/internal/infrastructure/config"
	"github.com/crmbridge/backend/internal/infrastructure/logger"
	"github.com/crmbridge/backend/internal/infrastructure/recordsource"
	"github.com/crmbridge/backend/internal/infrastructure/telemetry"
	"github.com/crmbridge/backend/internal/interfaces/http/handler"
	"github.com/crmbridge/backend/internal/interfaces/http/middleware"
	"github.com/crmbridge/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting CRM bridge",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Legacy database export used by the link table endpoints.
	store, err := accessdb.Open(cfg.AccessDB.Path, log)
	if err != nil {
		log.Fatal("Failed to open legacy database", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing legacy database", zap.Error(err))
		}
	}()

	// Remote credentials: seeded from config, replaced by the init
	// endpoint at runtime.
	creds := syncapp.NewCredentialStore(cfg.Crypto, cfg.Remote.Webhook, log)
	connector := syncapp.NewConnector(cfg.Remote, creds, log)

	source := recordsource.NewSource(recordsource.Columns{
		ProductID:    cfg.Columns.ProductID,
		ProductName:  cfg.Columns.ProductName,
		Quantity:     cfg.Columns.Quantity,
		Price:        cfg.Columns.Price,
		Unit:         cfg.Columns.Unit,
		SupplierID:   cfg.Columns.SupplierID,
		SupplierName: cfg.Columns.SupplierName,
	}, log)
	archive := recordsource.NewArchive(cfg.Uploads.PurchaseArchive, log)

	productService := syncapp.NewProductListService(connector, log)
	supplierService := syncapp.NewSupplierService(connector, log)
	linkService := syncapp.NewSupplierProductService(connector, log)
	purchaseService := syncapp.NewPurchaseService(connector, log)
	dealService := syncapp.NewDealService(connector, log)
	dataLinkService := syncapp.NewDataLinkService(store, connector, log)
	initService := syncapp.NewInitService(creds, log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORS())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	router.NewRouter(engine).
		Register(handler.NewInitHandler(initService, log)).
		Register(handler.NewUploadHandler(source, archive, productService, supplierService, linkService, purchaseService, log)).
		Register(handler.NewDealHandler(dealService, log)).
		Register(handler.NewDataHandler(dataLinkService, log)).
		Register(handler.NewSystemHandler()).
		Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
