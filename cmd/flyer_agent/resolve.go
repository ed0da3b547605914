package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/flyer-scout/internal/observability"
	"github.com/jonathan/flyer-scout/internal/types"
)

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var (
		storeID  string
		pageURLs []string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve flyer viewer pages into image and PDF URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger, wireOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.pipeline.Resolve(cmd.Context(), types.ResolveRequest{StoreID: types.StoreID(storeID), PageURLs: pageURLs})
			if err != nil {
				return fmt.Errorf("resolve failed: %w", err)
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintCandidates("RESOLVED ASSETS", res.StoreID, res.Candidates, res.Warnings)
			return nil
		},
	}

	cmd.Flags().StringVarP(&storeID, "store", "s", "", "Store ID (see 'stores')")
	cmd.Flags().StringArrayVarP(&pageURLs, "page", "p", nil, "Viewer page URL (repeatable)")
	_ = cmd.MarkFlagRequired("store")
	_ = cmd.MarkFlagRequired("page")
	return cmd
}
