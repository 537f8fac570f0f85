package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check-alerts",
	Short: "Run a single trigger pass over every pending alert",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		appDep, err := NewAppDependency(ctx)
		if err != nil {
			log.Fatalf("Failed to create app dependency: %v", err)
		}
		defer func() {
			if err := appDep.Close(); err != nil {
				log.Printf("Failed to close app dependency: %v", err)
			}
		}()

		services, err := buildServices(appDep)
		if err != nil {
			log.Fatalf("Failed to create services: %v", err)
		}

		triggered, err := services.AlertService.CheckAll(ctx)
		for _, a := range triggered {
			fmt.Printf("triggered %s %s %s %.8f\n", a.ID, a.AssetID, a.Condition, a.TargetPrice)
		}
		if err != nil {
			log.Printf("Trigger check finished with errors: %v", err)
		}
		fmt.Printf("%d alert(s) triggered\n", len(triggered))
	},
}

var runJobCmd = &cobra.Command{
	Use:   "run-job [name]",
	Short: "Run one configured scheduler job immediately",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		appDep, err := NewAppDependency(ctx)
		if err != nil {
			log.Fatalf("Failed to create app dependency: %v", err)
		}
		defer func() {
			if err := appDep.Close(); err != nil {
				log.Printf("Failed to close app dependency: %v", err)
			}
		}()

		services, err := buildServices(appDep)
		if err != nil {
			log.Fatalf("Failed to create services: %v", err)
		}

		run, err := services.SchedulerService.RunJobTask(ctx, args[0])
		if err != nil {
			log.Printf("Job %s: %v", args[0], err)
			return
		}
		fmt.Printf("job %s %s exit=%d\n%s\n", run.JobName, run.Status, run.ExitCode, run.Output)
	},
}
