package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raoulx24/config-archiver/internal/archiver"
	"github.com/raoulx24/config-archiver/internal/mailbox"
	"github.com/raoulx24/config-archiver/internal/scheduler"
	"github.com/raoulx24/config-archiver/internal/watcher"
	"github.com/raoulx24/config-archiver/internal/worker"
)

func newDaemonCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run backups on a schedule",
		Long: `Run backups on the configured cron schedule until interrupted.

Runs never overlap; schedule ticks that arrive during a run collapse into
a single pending run. SIGHUP or a change to the config file reloads the
configuration. SIGINT and SIGTERM stop the daemon after the current run
is cancelled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, cmd, opts)
		},
	}
}

func runDaemon(ctx context.Context, cmd *cobra.Command, opts *globalOptions) error {
	a, err := newApp(opts, cmd.OutOrStdout(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	// Mailbox for backup jobs
	mb := mailbox.New[worker.Job]()

	w := worker.New(a.archiver, a.log, mb, func(archiver.Result, error) {
		a.writeMetrics()
	})

	sched, err := scheduler.New(a.cfg.Schedule.Cron, mb, a.log)
	if err != nil {
		return err
	}

	// Reload requests from the watcher and SIGHUP are serialised here.
	reloadCh := make(chan string, 1)
	requestReload := func(reason string) {
		select {
		case reloadCh <- reason:
		default:
		}
	}

	var wg sync.WaitGroup

	var watch *watcher.Watcher
	if a.cfg.ConfigReload.Enabled {
		path, err := filepath.Abs(opts.configPath)
		if err != nil {
			return err
		}
		watch = watcher.New(path, a.cfg.ConfigReload, a.log, func() { requestReload("config file changed") })
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watch.Start(ctx); err != nil {
				a.log.Error("config watcher stopped", "error", err)
			}
		}()
	}

	srv := startMetricsServer(a)

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Start(ctx)
	}()
	sched.Start()
	a.log.Info("daemon started", "cron", a.cfg.Schedule.Cron, "next_run", sched.Next())
	if a.cfg.Schedule.RunOnStart {
		sched.Trigger("startup")
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutting down")
			<-sched.Stop().Done()
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = srv.Shutdown(shutdownCtx)
				cancel()
			}
			// the current run removes its partial archive on the way out
			// and must finish before the log file closes
			wg.Wait()
			a.log.Info("exit complete")
			return nil

		case <-hup:
			requestReload("SIGHUP")

		case reason := <-reloadCh:
			cfg, err := loadConfig(opts)
			if err != nil {
				a.log.Error("config reload failed, keeping current configuration", "reason", reason, "error", err)
				continue
			}

			a.applyConfig(cfg)
			if err := sched.UpdateSpec(cfg.Schedule.Cron); err != nil {
				a.log.Error("schedule update failed", "error", err)
			}
			if watch != nil {
				watch.UpdateConfig(cfg.ConfigReload)
			}
			a.log.Info("config reloaded", "reason", reason, "next_run", sched.Next())
		}
	}
}

// startMetricsServer serves /metrics when metrics.listen is set. Changing
// the address needs a restart.
func startMetricsServer(a *app) *http.Server {
	addr := a.cfg.Metrics.Listen
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.log.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}
