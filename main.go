package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mediguide/assistant/internal/account"
	"github.com/mediguide/assistant/internal/app"
	"github.com/mediguide/assistant/internal/audit"
	"github.com/mediguide/assistant/internal/config"
	"github.com/mediguide/assistant/internal/handler"
	"github.com/mediguide/assistant/internal/location"
	"github.com/mediguide/assistant/internal/pdf"
	"github.com/mediguide/assistant/internal/report"
	"github.com/mediguide/assistant/internal/session"
	"github.com/mediguide/assistant/internal/tracker"
	"github.com/mediguide/assistant/internal/turn"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger, err := app.NewLogger(cfg.Logging, cfg.Server.Environment)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("reply_backend", cfg.Gateway.Backend),
	)

	ctx := context.Background()

	kv, closeStore, err := app.OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer closeStore()

	gw, err := app.NewGateway(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize model gateway", zap.Error(err))
	}

	reportStorage, err := app.NewReportStorage(cfg.Azure.Storage, logger)
	if err != nil {
		logger.Fatal("Failed to initialize report storage", zap.Error(err))
	}

	// Initialize services
	auditLogger := audit.NewLogger(kv, logger)
	sessions := session.NewManager(kv, logger)
	accounts := account.NewService(kv, sessions, auditLogger, logger)
	locations := location.NewService(app.NewLocator(cfg.Location), logger)
	tracks := tracker.NewService(kv, auditLogger, logger)
	turns := turn.NewOrchestrator(sessions, gw, locations, logger)
	reports := report.NewService(gw, pdf.NewPDFGenerator(logger), reportStorage, auditLogger, logger)

	if user, err := accounts.Restore(ctx); err != nil {
		logger.Error("Failed to restore signed-in user", zap.Error(err))
	} else if user != nil {
		logger.Info("Restored signed-in user", zap.String("user_id", user.Identifier))
	}

	// Initialize handlers
	handlers := handler.Handlers{
		Status:     handler.NewStatusHandler(kv, logger),
		Auth:       handler.NewAuthHandler(accounts, logger),
		GDPR:       handler.NewGDPRHandler(accounts, auditLogger, logger),
		Session:    handler.NewSessionHandler(sessions, turns, logger),
		Turn:       handler.NewTurnHandler(turns, gw, accounts, logger),
		Location:   handler.NewLocationHandler(locations, logger),
		Report:     handler.NewReportHandler(reports, sessions, accounts, tracks, logger),
		Health:     handler.NewHealthHandler(tracks, accounts, logger),
		Medication: handler.NewMedicationHandler(tracks, accounts, logger),
	}

	currentUser := func() string {
		if user := sessions.User(); user != nil {
			return user.Identifier
		}
		return ""
	}

	r, err := app.NewRouter(cfg.Server, handlers, currentUser, logger)
	if err != nil {
		logger.Fatal("Failed to build router", zap.Error(err))
	}

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
