package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/config"
	"github.com/opencampus/budgetd/internal/repository/mongodb"
	"github.com/opencampus/budgetd/internal/repository/sheets"
	"github.com/opencampus/budgetd/internal/scheduler"
	"github.com/opencampus/budgetd/internal/server/handlers"
	"github.com/opencampus/budgetd/internal/server/router"
	"github.com/opencampus/budgetd/internal/service/archive"
	"github.com/opencampus/budgetd/internal/service/budget"
	"github.com/opencampus/budgetd/internal/service/documents"
	"github.com/opencampus/budgetd/internal/service/notifications"
	"github.com/opencampus/budgetd/internal/service/realignment"
	"github.com/opencampus/budgetd/internal/service/reporting"
	"github.com/opencampus/budgetd/internal/service/workflow"
	"github.com/opencampus/budgetd/pkg/clients/mediastore"
	"github.com/opencampus/budgetd/pkg/logger"
)

func main() {
	log := logger.Must(logger.New())
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	repo, err := mongodb.NewRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, log.Named("mongodb"))
	cancel()
	if err != nil {
		log.Fatal("failed to connect to mongodb", zap.Error(err))
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := repo.Close(closeCtx); err != nil {
			log.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	var sheetRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		sheetCtx, sheetCancel := context.WithTimeout(context.Background(), 15*time.Second)
		sheetRepo, err = sheets.NewGoogleSheetRepository(sheetCtx, cfg.Sheets, log.Named("sheets"))
		sheetCancel()
		if err != nil {
			log.Fatal("failed to initialize google sheets client", zap.Error(err))
		}
	} else {
		log.Warn("google sheets integration disabled, PRE ingestion and report export unavailable")
	}

	budgetSvc := budget.NewService(repo, log.Named("budget"))
	realignmentSvc := realignment.NewService(repo, log.Named("realignment"))
	archiveSvc := archive.NewService(repo, log.Named("archive"))
	notificationSvc := notifications.NewService(repo, log.Named("notifications"))

	workflowSvc := workflow.NewService(repo, nil, log.Named("workflow"))
	reportingSvc := reporting.NewService(repo, nil, log.Named("reporting"))
	if sheetRepo != nil {
		workflowSvc = workflow.NewService(repo, sheetRepo, log.Named("workflow"))
		reportingSvc = reporting.NewService(repo, sheetRepo, log.Named("reporting"))
	}

	documentSvc := documents.NewService(repo, nil, log.Named("documents"))
	if cfg.MediaStore.Enabled() {
		documentSvc = documents.NewService(repo, mediastore.NewClient(cfg.MediaStore), log.Named("documents"))
	} else {
		log.Warn("media store integration disabled, document uploads unavailable")
	}

	engine := router.New(router.Handlers{
		Budgets:       handlers.NewBudgetHandler(budgetSvc, log),
		PREs:          handlers.NewPREHandler(workflowSvc, log),
		Requests:      handlers.NewRequestHandler(workflowSvc, log),
		Realignments:  handlers.NewRealignmentHandler(realignmentSvc, log),
		Archives:      handlers.NewArchiveHandler(archiveSvc, log),
		Reports:       handlers.NewReportHandler(reportingSvc, cfg.Sheets.TemplateSpreadsheetID, log),
		Notifications: handlers.NewNotificationHandler(notificationSvc, log),
		Documents:     handlers.NewDocumentHandler(documentSvc, log),
	}, log)

	sched := scheduler.NewScheduler(cfg.Archive, archiveSvc, log.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("starting http server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-stopCtx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
