package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apexpulse/internal/engine/config"
	delivery "apexpulse/internal/engine/delivery/http"
	_ "apexpulse/internal/engine/docs"
	"apexpulse/internal/engine/dto"
	"apexpulse/internal/engine/service"
	"apexpulse/pkg/logger"
	"apexpulse/pkg/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	swagger "github.com/swaggo/echo-swagger"
)

var (
	configPath string
	ownerFlag  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the engine API and the daily scheduler",
	Run:   runServe,
}

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Runs the daily pipeline once and exits",
	Run:   runOnce,
}

func loadApp() (*app, *logger.Logger) {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	a, err := newApp(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize engine", logger.ErrorField(err))
	}
	return a, appLogger
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, appLogger := loadApp()
	defer func() { _ = appLogger.Sync() }()
	defer a.Close()
	cfg := a.cfg

	appLogger.Info("Starting Engine Service", logger.Field("name", cfg.App.Name), logger.StringField("version", cfg.App.Version))

	if a.stream != nil {
		utils.GoSafe(func() { a.stream.Run(ctx) })
	}

	if cfg.Scheduler.Enabled {
		schedulerSvc, err := service.NewSchedulerService(cfg.Scheduler, a.pipeline, appLogger, service.SystemClock())
		if err != nil {
			appLogger.Fatal("Failed to initialize scheduler", logger.ErrorField(err))
		}
		go schedulerSvc.Start(ctx)
	} else {
		appLogger.Info("Scheduler disabled, daily runs only via HTTP or run-once")
	}

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/swagger/*", swagger.WrapHandler)
	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	}

	// Initialize handlers and routes
	apiV1 := e.Group("/api/v1", delivery.AuthMiddleware(cfg.API.SyncToken, cfg.API.SessionHeader, a.userRepo, appLogger))
	delivery.NewSyncHandler(a.reconciler, appLogger).RegisterRoutes(apiV1.Group("/sync"))
	delivery.NewPriceHandler(a.prices, appLogger).RegisterRoutes(apiV1.Group("/prices"))
	delivery.NewCronHandler(a.pipeline, appLogger).RegisterRoutes(apiV1.Group("/cron"))
	delivery.NewJobHandler(a.jobs, appLogger).RegisterRoutes(apiV1.Group("/jobs"))
	delivery.NewSignalHandler(a.signals, appLogger).RegisterRoutes(apiV1.Group("/signals"))

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	// Gracefully shutdown the server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

func runOnce(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, appLogger := loadApp()
	defer func() { _ = appLogger.Sync() }()
	defer a.Close()

	scope := dto.RunScope{Trigger: dto.TriggerCLI}
	if ownerFlag != "" {
		id, err := uuid.Parse(ownerFlag)
		if err != nil {
			appLogger.Fatal("Invalid --owner", logger.ErrorField(err))
		}
		scope.OwnerID = &id
	}

	report, err := a.pipeline.RunDaily(ctx, scope)
	if err != nil {
		appLogger.Fatal("Daily run failed", logger.ErrorField(err))
	}
	appLogger.Info("Daily run completed",
		logger.StringField("run_id", report.RunID),
		logger.IntField("tenants", len(report.Tenants)),
		logger.IntField("failed_tenants", report.Failed()),
	)
	if report.Failed() > 0 {
		a.Close()
		_ = appLogger.Sync()
		os.Exit(2)
	}
}

// @title ApexPulse Engine API
// @version 1.0
// @description Portfolio reconciliation, price resolution and AI swing signal engine.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	rootCmd := &cobra.Command{Use: "engine-service"}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-engine.yaml", "Path to the configuration file")
	runOnceCmd.Flags().StringVar(&ownerFlag, "owner", "", "Run only for this tenant id")

	rootCmd.AddCommand(serveCmd, runOnceCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing engine-service CLI: %s\n", err)
		os.Exit(1)
	}
}
