package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/flyer-scout/internal/observability"
)

func newStoresCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stores",
		Short: "List the configured stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger, wireOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			summaries := a.pipeline.Stores()
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintStores(summaries)
			return nil
		},
	}
}
