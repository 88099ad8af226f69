package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	idb "finance_automation/internal/infra/database"
	"finance_automation/internal/infra/httpapi"
	"finance_automation/internal/infra/logger"
	"finance_automation/internal/infra/scheduler"

	"github.com/spf13/cobra"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Migrate bool
}

// NewServeCommand starts the cron scheduler and the ops HTTP endpoint.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run all scheduled jobs until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Migrate, "migrate", true, "apply database migrations before starting")
	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Component("main")
	log.WithField("environment", cfg.Environment).Info("Finance automation starting...")

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if opts.Migrate {
		if err := idb.Migrate(rt.db); err != nil {
			return err
		}
		log.Info("Database migrations applied.")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.scheduler.Start()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(rt.scheduler, rt.db, logger.Component("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP endpoint listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received.")
	case err = <-serveErr:
		if err != nil {
			log.WithError(err).Error("HTTP endpoint stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.WithError(shutdownErr).Warn("HTTP endpoint did not shut down cleanly")
	}
	rt.scheduler.Stop()
	log.Info("Finance automation stopped.")
	return err
}

// NewRunCommand executes one job immediately and prints its counters.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <job>",
		Short: "Run a single job once",
		Long:  "Run a single job once through the same overlap guard the scheduler uses.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			stats, runErr := rt.scheduler.RunNow(ctx, args[0])
			if errors.Is(runErr, scheduler.ErrUnknownJob) {
				return fmt.Errorf("%w (known jobs: %v)", runErr, rt.scheduler.Jobs())
			}
			if err := writeStats(cmd.OutOrStdout(), rootOpts.Format, args[0], stats, runErr); err != nil {
				return err
			}
			return runErr
		},
	}
}

// NewMigrateCommand applies the embedded schema migrations.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("could not connect to database: %w", err)
			}
			defer db.Close()
			if err := idb.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

// NewJobsCommand prints the configured schedules without touching the database.
func NewJobsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List configured jobs and their next run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s := scheduler.NewNotificationScheduler(
				scheduler.NewGuard(nil, cfg.LeaseTTL.Duration(), logger.Component("guard")),
				cfg.JobTimeout.Duration(), logger.Component("scheduler"))
			if err := registerJobs(s, cfg, &services{}); err != nil {
				return err
			}
			return writeStatuses(cmd.OutOrStdout(), rootOpts.Format, s.Snapshot())
		},
	}
}
