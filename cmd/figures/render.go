package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/adamzweiger/Fewshot-TTT/src/figures"
	"github.com/adamzweiger/Fewshot-TTT/src/logging"
)

func newRenderCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "render [set...]",
		Short: "Render the named figure sets (all when none are given)",
		Long: `Render builds every figure of each named set in memory and only then writes
the images, so a missing task or method key leaves no partial output for that set.

Run "figures list" to see the available sets.`,
		RunE: func(_ *cobra.Command, args []string) error {
			return runRender(opts, args)
		},
	}
}

func runRender(opts *options, sets []string) error {
	defer logging.TimeTrack(time.Now(), "render")
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	paths, err := figures.Run(cfg, sets)
	if err != nil {
		return err
	}
	logging.Infof("All figures saved (%d files in %s)", len(paths), cfg.OutputDir)
	return nil
}
