package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/breaker"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/metrics"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/scheduler"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/store"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start polling for every enabled connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun()
		},
	}
}

func runRun() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	breakerCfg := breaker.Config{
		FailureThreshold: a.cfg.CircuitFailureThreshold,
		RecoveryTimeout:  a.cfg.CircuitRecoveryTimeout,
		SuccessThreshold: a.cfg.CircuitSuccessThreshold,
	}

	collectors := metrics.New()

	onSyncComplete := func(connID int, log *store.SyncLog) {
		if log == nil {
			collectors.RecordCycle(connID, metrics.OutcomeSkipped, nil)
			return
		}
		if log.ErrorMessage != "" {
			collectors.RecordCycle(connID, metrics.OutcomeError, log)
			a.log.Errorw("sync cycle error", "connection_id", connID, "error", log.ErrorMessage)
		} else {
			collectors.RecordCycle(connID, metrics.OutcomeOK, log)
			a.log.Infow("sync cycle complete",
				"connection_id", connID,
				"found", log.OrdersFound, "sent", log.OrdersSent,
				"failed", log.OrdersFailed, "skipped", log.OrdersSkipped)
		}
		if summary, err := a.retryRepo.GetSummary(connID); err == nil {
			collectors.SetRetryQueueDepth(connID, summary[store.RetryPending])
		}
	}

	onCircuitStateChange := func(connID int, state breaker.State) {
		a.log.Warnw("circuit breaker state changed", "connection_id", connID, "state", state)
		collectors.SetCircuitState(connID, state)
	}

	sched := scheduler.New(
		a.connRepo, a.syncRepo, a.retryRepo, a.sentRepo, a.log,
		breakerCfg, a.cfg.ErpTimeout, a.cfg.WebhookTimeout,
		onSyncComplete, onCircuitStateChange,
	)

	conns, err := a.connRepo.ListEnabled()
	if err != nil {
		return err
	}
	if len(conns) == 0 {
		fmt.Println("No enabled connections. Use 'poller add' to create one.")
		return nil
	}

	if err := sched.Start(); err != nil {
		return err
	}

	var metricsSrv *metrics.Server
	metricsErrc := make(chan error, 1)
	if a.cfg.MetricsAddr != "" {
		metricsSrv = metrics.NewServer(a.cfg.MetricsAddr, collectors)
		metricsSrv.Start(metricsErrc)
		a.log.Infow("metrics server listening", "addr", a.cfg.MetricsAddr)
	}

	fmt.Printf("Polling active for %d connection(s). Ctrl+C to stop.\n", len(conns))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-metricsErrc:
		a.log.Errorw("metrics server failed", "error", err)
	}

	fmt.Println("Stopping...")
	sched.Stop()
	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(ctx)
	}
	fmt.Println("Stopped.")
	return nil
}
