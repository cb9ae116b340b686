package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdftranslate/client/internal/config"
	"github.com/pdftranslate/client/internal/logger"
)

// errReported marks failures the user has already been told about
var errReported = errors.New("reported")

// rootOptions holds the persistent flags shared by all commands
type rootOptions struct {
	apiURL       string
	pollInterval int
	outputDir    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "translator",
		Short:         "Translate PDF documents through the translation backend",
		Long:          "Uploads a PDF to the translation backend, follows the job until it finishes and makes the translated text available for download.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "translation backend base URL (overrides API_URL)")
	root.PersistentFlags().IntVar(&opts.pollInterval, "poll-interval", 0, "status poll interval in milliseconds (overrides POLL_INTERVAL_MS)")
	root.PersistentFlags().StringVarP(&opts.outputDir, "output", "o", "", "directory for translated files (overrides OUTPUT_DIR)")

	root.AddCommand(newUploadCmd(opts), newServeCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// loadConfig reads the configuration, applies flag overrides and sets up logging
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.API.URL = opts.apiURL
	}
	if flags.Changed("poll-interval") {
		cfg.API.PollIntervalMS = opts.pollInterval
	}
	if flags.Changed("output") {
		cfg.Output.Dir = opts.outputDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Configure(logger.Config{Level: cfg.Server.LogLevel})
	return cfg, nil
}
