package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/flyer-scout/internal/observability"
	"github.com/jonathan/flyer-scout/internal/types"
)

func newDiscoverCmd(opts *rootOptions) *cobra.Command {
	var storeID string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find the current flyer candidates of a store",
		Long:  "Run the store's discovery strategy and print the flyer page, image and PDF candidates it finds.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger, wireOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.pipeline.Discover(cmd.Context(), types.StoreID(storeID))
			if err != nil {
				return fmt.Errorf("discovery failed: %w", err)
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintCandidates("DISCOVERY", res.StoreID, res.Candidates, res.Warnings)
			return nil
		},
	}

	cmd.Flags().StringVarP(&storeID, "store", "s", "", "Store ID (see 'stores')")
	_ = cmd.MarkFlagRequired("store")
	return cmd
}
