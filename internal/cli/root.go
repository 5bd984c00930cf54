// Package cli implements the triage command line tool.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	applogs "github.com/bryanwahyu/logtriage/internal/application/logs"
	"github.com/bryanwahyu/logtriage/internal/bootstrap"
	"github.com/bryanwahyu/logtriage/internal/config"
)

// Version information set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ServiceBuilder opens the log service. The returned func releases it.
type ServiceBuilder func(ctx context.Context, configPath string, needAnalyzer bool) (*applogs.Service, func() error, error)

type rootOptions struct {
	configPath string
	format     string
	noColor    bool
	verbose    bool
	build      ServiceBuilder
}

// NewRootCmd builds the command tree. A nil builder uses config and bootstrap.
func NewRootCmd(build ServiceBuilder) *cobra.Command {
	opts := &rootOptions{build: build}
	if opts.build == nil {
		opts.build = opts.defaultBuilder
	}

	root := &cobra.Command{
		Use:   "triage",
		Short: "Redact, deduplicate and analyze error logs",
		Long: `triage strips IPs, emails and credentials from a log, fingerprints the
sanitized text and asks a language model for a root cause analysis.
Identical logs are analyzed once; later uploads are served from the cache.

Examples:
  triage analyze /var/log/app/error.log
  triage redact --format json crash.txt
  triage history --limit 10
  triage show 3f1a9c...`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.noColor {
				color.NoColor = true
			}
			if opts.format != "text" && opts.format != "json" {
				return fmt.Errorf("invalid format %q (text, json)", opts.format)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is $CONFIG_PATH or ./config.yaml)")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "text", "output format (text, json)")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline steps to stderr")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newHistoryCmd(opts),
		newShowCmd(opts),
		newRedactCmd(opts),
		newSummaryCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	return NewRootCmd(nil).Execute()
}

func (o *rootOptions) defaultBuilder(ctx context.Context, configPath string, needAnalyzer bool) (*applogs.Service, func() error, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	} else if cfg.Log.Level == "info" {
		// keep the terminal quiet unless something goes wrong
		cfg.Log.Level = "warn"
	}
	app, err := bootstrap.Build(ctx, cfg, cfg.NewLogger(os.Stderr), bootstrap.Options{SkipAnalyzer: !needAnalyzer})
	if err != nil {
		return nil, nil, err
	}
	return app.Service, app.Close, nil
}

func (o *rootOptions) service(cmd *cobra.Command, needAnalyzer bool) (*applogs.Service, func() error, error) {
	svc, closeFn, err := o.build(cmd.Context(), o.configPath, needAnalyzer)
	if err != nil {
		return nil, nil, err
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return svc, closeFn, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "triage %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
