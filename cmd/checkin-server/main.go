// cmd/checkin-server/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"venue-checkin/internal/api"
	"venue-checkin/internal/common/config"
	"venue-checkin/internal/common/crm"
	"venue-checkin/internal/common/logger"
	"venue-checkin/internal/common/observability"
	"venue-checkin/internal/match"
	"venue-checkin/internal/plans"
	"venue-checkin/internal/scan"
	"venue-checkin/internal/watch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting checkin-server",
		zap.String("environment", cfg.App.Environment),
		zap.String("exportPath", cfg.Scanner.ExportPath),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// --- Wiring: reader -> normalizer/matcher -> plan resolver -> API ---
	crmClient := crm.NewClient(&cfg.CRM, log)
	reader := scan.NewReader(cfg.Scanner.ExportPath, log)

	sources := []match.Source{
		match.NewDirectorySource("members", cfg.CRM.Modules.Members, crmClient, cfg.CRM.PageSize),
		match.NewDirectorySource("contacts", cfg.CRM.Modules.Contacts, crmClient, cfg.CRM.PageSize),
		match.NewWordSource("search", cfg.CRM.Modules.Contacts, crmClient, cfg.CRM.PageSize, log),
	}
	matcher := match.NewMatcher(sources, obs, log)

	resolver := plans.NewResolver(
		crmClient,
		cfg.CRM.Modules.Subscriptions,
		cfg.CRM.Modules.PlanOrders,
		cfg.CRM.PageSize,
		log,
	)

	svc := api.NewService(reader, matcher, resolver, obs, log)

	watcher := watch.New(
		cfg.Scanner.ExportPath,
		time.Duration(cfg.Scanner.Watch.DebounceMs)*time.Millisecond,
		svc.RunPipeline,
		log,
	)
	svc.SetWatcher(watcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Scanner.Watch.Enabled {
		if err := watcher.Start(ctx); err != nil {
			zapLog.Error("failed to start export watcher", zap.Error(err))
		}
	}

	server := api.NewServer(svc, &cfg.Server, log)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// --- Graceful shutdown ---
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		zapLog.Info("shutdown signal received", zap.String("signal", s.String()))
	case err := <-serverErr:
		if err != nil {
			zapLog.Error("http server failed", zap.Error(err))
		}
	}

	_ = watcher.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}

	zapLog.Info("checkin-server stopped")
}
