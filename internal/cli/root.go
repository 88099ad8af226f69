package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"finance_automation/internal/app"
	"finance_automation/internal/infra/config"
	"finance_automation/internal/infra/logger"
	"finance_automation/internal/infra/scheduler"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the automation service.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "finance-automation",
		Short:         "Scheduled finance and relationship automations",
		Long:          "Runs recurring finance records, event reminders and date-night rollover on cron schedules.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewJobsCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig reads the environment and configures the global logger.
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load configuration: %w", err)
	}
	logger.Init(cfg)
	return cfg, nil
}

func writeStats(w io.Writer, format, job string, stats app.RunStats, runErr error) error {
	if format == "json" {
		out := struct {
			Job   string       `json:"job"`
			Stats app.RunStats `json:"stats"`
			Error string       `json:"error,omitempty"`
		}{Job: job, Stats: stats}
		if runErr != nil {
			out.Error = runErr.Error()
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	fmt.Fprintf(w, "%s: scanned=%d created=%d sent=%d fan_out=%d skipped=%d failed=%d\n",
		job, stats.Scanned, stats.Created, stats.Sent, stats.FanOut, stats.Skipped, stats.Failed)
	return nil
}

func writeStatuses(w io.Writer, format string, statuses []scheduler.JobStatus) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tSCHEDULE\tZONE\tNEXT RUN (UTC)")
	for _, st := range statuses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", st.Name, st.Spec, st.TimeZone, st.NextRun.Format(time.RFC3339))
	}
	return tw.Flush()
}
