package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamzweiger/Fewshot-TTT/src/figures"
	"github.com/adamzweiger/Fewshot-TTT/src/logging"
)

var version = "dev"

// options are the persistent flags; empty values keep the configuration's setting.
type options struct {
	configPath string
	results    string
	outDir     string
	format     string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "figures",
		Short: "Render accuracy bar charts from an experiment results file",
		Long: `figures reads a results file (per-task accuracies and per-method averages)
and writes bar-chart images for each configured figure set.

Without a subcommand every figure set of the configuration is rendered. The
built-in configuration reproduces the main results, the ablation study and the
ARC/BBH comparison figures.`,
		Version:      version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(opts, nil)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML figure configuration (default: built-in)")
	pf.StringVar(&opts.results, "results", "", "results JSON file, optionally .gz (overrides configuration)")
	pf.StringVar(&opts.outDir, "out", "", "output directory (overrides configuration)")
	pf.StringVar(&opts.format, "format", "", "image format for single charts: png or svg (overrides configuration)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !logging.ValidLogLevel(opts.logLevel) {
			return fmt.Errorf("unknown log level %q", opts.logLevel)
		}
		logging.SetLogLevel(opts.logLevel)
		return nil
	}

	cmd.AddCommand(newRenderCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	return cmd
}

// loadConfig reads the configuration and applies flag overrides.
func (o *options) loadConfig() (*figures.Config, error) {
	var (
		cfg *figures.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = figures.LoadConfig(o.configPath)
	} else {
		cfg, err = figures.DefaultConfig()
	}
	if err != nil {
		return nil, err
	}
	if o.results != "" {
		cfg.Results = o.results
	}
	if o.outDir != "" {
		cfg.OutputDir = o.outDir
	}
	if o.format != "" {
		if _, err := figures.ParseFormat(o.format); err != nil {
			return nil, fmt.Errorf("--format: %w", err)
		}
		cfg.Format = o.format
	}
	return cfg, nil
}

func execute() error {
	return newRootCommand().Execute()
}
