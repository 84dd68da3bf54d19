package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/carbonfocus/internal/config"
	"github.com/rshade/carbonfocus/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the carbonfocus CLI.
// It loads configuration, wires up logging and tracing, and registers the
// subcommands.
func NewRootCmd(ver string) *cobra.Command {
	var logResult *logging.LogPathResult

	cmd := &cobra.Command{
		Use:     "carbonfocus",
		Short:   "Personal carbon footprint tracker",
		Long:    "carbonfocus: calculate, track and reduce your daily carbon footprint",
		Version: ver,
		Example: rootCmdExample,
		// Errors are mapped to exit codes in main; usage is noise for a failed
		// calculation or an unreachable advisor.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(logResult)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "YAML file overlaid on the configuration, section by section")
	cmd.PersistentFlags().Bool("offline", false, "skip climate APIs and use cached or default values")

	cmd.AddCommand(
		newCalcCmd(),
		newHistoryCmd(),
		newTrendCmd(),
		newAdviseCmd(),
		newGoalCmd(),
		newClimateCmd(),
		newFactorsCmd(),
		newServeCmd(ver),
		newConfigCmd(),
		NewSetupCmd(),
	)

	return cmd
}

// loadConfig initializes the global configuration and applies the --config
// overlay and the --offline flag.
func loadConfig(cmd *cobra.Command) error {
	cfg := config.GetGlobalConfig()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := config.ShallowMergeYAML(cfg, path); err != nil {
			return &ExitError{
				Code: ExitInvalidInput,
				Err:  fmt.Errorf("%w: %w", config.ErrInvalidConfig, err),
			}
		}
	}
	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		cfg.Climate.Offline = true
	}

	config.SetGlobalConfig(cfg)
	return nil
}

const rootCmdExample = `  # Calculate today's footprint and save it
  carbonfocus calc --transport car_petrol --distance 24 --diet omnivore --save

  # Review the last two weeks
  carbonfocus history --days 14
  carbonfocus trend --days 14 --rolling 3

  # Ask the advisor for quick tips on the latest saved day
  carbonfocus advise --mode quick-tips

  # Plan a 25% reduction
  carbonfocus goal --reduction 25 --plan

  # Serve the local HTTP API
  carbonfocus serve

  # Initialize configuration
  carbonfocus config init`
