package main

import (
	"encoding/json"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jonathan/flyer-scout/internal/config"
	"github.com/jonathan/flyer-scout/internal/observability"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	jsonOutput bool

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "flyer_agent",
		Short:         "Grocery flyer discovery and item extraction",
		Long:          "flyer_agent finds the current flyers of supported grocery stores, downloads them and extracts the advertised items and prices with a vision model.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}
			opts.cfg = cfg
			opts.logger = observability.NewLogger(observability.LogConfig{
				Level:       cfg.LogLevel,
				Format:      cfg.LogFormat,
				Output:      cmd.ErrOrStderr(),
				ServiceName: "flyer-scout",
			})
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to JSON config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON instead of a summary")

	cmd.AddCommand(
		newStoresCmd(opts),
		newDiscoverCmd(opts),
		newResolveCmd(opts),
		newExtractCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
