package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/torvik/resellerpanel/internal/activity"
	"github.com/torvik/resellerpanel/internal/config"
	"github.com/torvik/resellerpanel/internal/db"
	"github.com/torvik/resellerpanel/internal/dnscheck"
	"github.com/torvik/resellerpanel/internal/logging"
	"github.com/torvik/resellerpanel/internal/metrics"
	"github.com/torvik/resellerpanel/internal/workflow"
)

const taskQueue = "panel-tasks"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	tc, err := temporalclient.Dial(temporalclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, taskQueue, worker.Options{})

	// Register activities
	w.RegisterActivity(activity.NewCertificateActivity(pool))
	w.RegisterActivity(activity.NewACMEActivity())
	w.RegisterActivity(activity.NewDNSProviderActivity())
	w.RegisterActivity(activity.NewDNSVerifyActivity(dnscheck.NewResolver().WithLogger(logger)))
	w.RegisterActivity(activity.NewEABActivity())

	// Register workflows
	w.RegisterWorkflow(workflow.IssueCertificateWorkflow)
	w.RegisterWorkflow(workflow.StartVerificationWorkflow)
	w.RegisterWorkflow(workflow.UploadCustomCertWorkflow)
	w.RegisterWorkflow(workflow.CertExpiryMonitorWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", taskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	// Register cron schedules. Errors for already-existing schedules are
	// ignored so that re-deploys do not fail.
	registerCronSchedules(ctx, tc, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

func registerCronSchedules(ctx context.Context, tc temporalclient.Client, logger zerolog.Logger) {
	const scheduleID = "cert-expiry-monitor-cron"

	_, err := tc.ScheduleClient().Create(ctx, temporalclient.ScheduleOptions{
		ID: scheduleID,
		Spec: temporalclient.ScheduleSpec{
			CronExpressions: []string{"0 2 * * *"},
		},
		Action: &temporalclient.ScheduleWorkflowAction{
			ID:        scheduleID,
			Workflow:  workflow.CertExpiryMonitorWorkflow,
			TaskQueue: taskQueue,
		},
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "AlreadyExists") {
			logger.Info().Str("id", scheduleID).Msg("cron schedule already exists, skipping")
		} else {
			logger.Fatal().Err(err).Str("id", scheduleID).Msg("failed to create cron schedule")
		}
	} else {
		logger.Info().Str("id", scheduleID).Msg("created cron schedule")
	}
}
