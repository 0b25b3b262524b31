package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List figure sets and the figures they produce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range cfg.Sets {
				labels := make([]string, 0, len(s.Methods))
				for _, m := range s.Methods {
					labels = append(labels, m.Label)
				}
				fmt.Fprintf(out, "%s\n", s.Name)
				if len(labels) > 0 {
					fmt.Fprintf(out, "  methods: %s\n", strings.Join(labels, ", "))
				}
				for _, f := range s.Figures {
					fmt.Fprintf(out, "  %-24s %s\n", f.Name, f.Kind)
				}
			}
			return nil
		},
	}
}
