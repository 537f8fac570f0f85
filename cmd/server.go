package cmd

import (
	"context"
	"log"
	httpNet "net/http"
	"os"
	"os/signal"
	"syscall"

	"signal-alert-engine/internal/delivery/http"
	"signal-alert-engine/internal/repository"
	"signal-alert-engine/internal/service"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/utils"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the signal and alert engine",
	Run:   Start,
}

// buildServices wires repositories and services on top of appDep.
func buildServices(appDep *AppDependency) (*service.Service, error) {
	repo, err := repository.NewRepository(appDep.cfg, appDep.gormDB(), appDep.log, appDep.metrics)
	if err != nil {
		return nil, err
	}

	return service.NewService(
		appDep.cfg,
		appDep.log,
		repo,
		appDep.signalCache,
		appDep.dispatcher,
		appDep.metrics,
	)
}

func Start(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}

	services, err := buildServices(appDep)
	if err != nil {
		log.Fatalf("Failed to create services: %v", err)
	}

	httpHandler := http.NewHttpAPIHandler(ctx, appDep.echo, appDep.log, services, appDep.metrics)
	apiServer := NewHTTPServer(ctx, appDep, httpHandler)
	utils.GoSafe(appDep.log, func() {
		if err := apiServer.Start(); err != nil && err != httpNet.ErrServerClosed {
			appDep.log.Fatal("Failed to start HTTP server", logger.ErrorField(err))
		}
	})

	if appDep.telegram != nil {
		appDep.telegram.StartCleanupExpired(ctx)
	}

	if appDep.cfg.Scheduler.Enabled {
		if err := services.SchedulerService.Start(ctx); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
	}

	<-ctx.Done()
	appDep.log.Info("Shutting down gracefully...")

	if appDep.cfg.Scheduler.Enabled {
		services.SchedulerService.Stop()
	}

	if err := apiServer.Stop(); err != nil {
		appDep.log.Error("Failed to stop HTTP server", logger.ErrorField(err))
	}

	if appDep.telegram != nil {
		appDep.telegram.StopCleanupExpired()
	}

	if err := appDep.Close(); err != nil {
		log.Fatalf("Failed to close app dependency: %v", err)
	}
}
