package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonfocus/internal/advisor"
	"github.com/rshade/carbonfocus/internal/config"
	"github.com/rshade/carbonfocus/internal/history"
	"github.com/rshade/carbonfocus/internal/logging"
	"github.com/rshade/carbonfocus/pkg/version"
)

// StepStatus represents the outcome of a single setup step.
type StepStatus int

const (
	// StepSuccess indicates the step completed successfully.
	StepSuccess StepStatus = iota
	// StepWarning indicates the step completed with a non-fatal issue.
	StepWarning
	// StepSkipped indicates the step was intentionally skipped via flag.
	StepSkipped
	// StepError indicates the step failed.
	StepError
)

// StepResult describes the outcome of executing a single setup step.
type StepResult struct {
	Name     string
	Status   StepStatus
	Message  string
	Critical bool
	Err      error
}

// SetupOptions holds the configuration for the setup command, derived from CLI flags.
type SetupOptions struct {
	SkipAdvisor    bool
	NonInteractive bool
}

// SetupResult is the aggregate outcome of all setup steps.
type SetupResult struct {
	Steps       []StepResult
	HasErrors   bool
	HasWarnings bool
}

// dirPermBase is the permission mode for the home, cache and history directories.
const dirPermBase = 0o700

// advisorPingTimeout bounds the advisor reachability check.
const advisorPingTimeout = 5 * time.Second

// formatStatus returns a status marker appropriate for the output mode.
func formatStatus(status StepStatus, nonInteractive bool) string {
	if nonInteractive {
		switch status {
		case StepSuccess:
			return "[OK]"
		case StepWarning:
			return "[WARN]"
		case StepSkipped:
			return "[SKIP]"
		case StepError:
			return "[ERR]"
		default:
			return "[??]"
		}
	}

	switch status {
	case StepSuccess:
		return "\u2713" // ✓
	case StepWarning:
		return "!"
	case StepSkipped:
		return "-"
	case StepError:
		return "\u2717" // ✗
	default:
		return "?"
	}
}

// NewSetupCmd creates the top-level setup command that bootstraps the carbonfocus environment.
func NewSetupCmd() *cobra.Command {
	var opts SetupOptions

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Bootstrap the carbonfocus environment",
		Long: `Sets up carbonfocus by creating its directories, initializing the
configuration, opening the history store and checking that the advisor is
reachable.

This command is idempotent. Existing configuration and history are
preserved.`,
		Example: `  # Full setup
  carbonfocus setup

  # CI setup (no TTY-dependent output)
  carbonfocus setup --non-interactive

  # Setup without contacting the advisor
  carbonfocus setup --skip-advisor`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(cmd, &opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NonInteractive, "non-interactive", false,
		"Disable TTY-dependent output (status symbols, color)")
	cmd.Flags().BoolVar(&opts.SkipAdvisor, "skip-advisor", false,
		"Skip the advisor reachability check")

	return cmd
}

// runSetup runs every step even when an earlier one fails, and returns an
// error only if a critical step failed.
func runSetup(cmd *cobra.Command, opts *SetupOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log := logging.FromContext(ctx)

	// Auto-detect non-interactive mode when stdin is not a TTY
	if !opts.NonInteractive && !isTerminal(os.Stdin) {
		opts.NonInteractive = true
	}

	result := &SetupResult{}
	record := func(steps ...StepResult) {
		for _, s := range steps {
			printStep(cmd, s, opts.NonInteractive)
			result.Steps = append(result.Steps, s)
		}
	}

	record(stepDisplayVersion())
	record(stepCreateDirectories()...)
	record(stepInitConfig())
	record(stepOpenHistory(ctx))

	if opts.SkipAdvisor {
		record(StepResult{
			Name:    "Advisor check",
			Status:  StepSkipped,
			Message: "Skipped advisor check",
		})
	} else {
		record(stepCheckAdvisor(ctx))
	}

	for _, s := range result.Steps {
		if s.Status == StepError && s.Critical {
			result.HasErrors = true
		}
		if s.Status == StepWarning {
			result.HasWarnings = true
		}
	}

	printSummary(cmd, result)

	if result.HasErrors {
		log.Error().
			Ctx(ctx).
			Str("component", "setup").
			Msg("setup completed with critical errors")
		return errors.New("setup failed: one or more critical steps failed")
	}

	return nil
}

// printStep outputs a single step's status line.
func printStep(cmd *cobra.Command, step StepResult, nonInteractive bool) {
	marker := formatStatus(step.Status, nonInteractive)
	cmd.Printf("%s %s\n", marker, step.Message)
}

// printSummary outputs the final completion message.
func printSummary(cmd *cobra.Command, result *SetupResult) {
	cmd.Println()
	if result.HasErrors {
		cmd.Println("Setup completed with errors. Review the messages above for remediation steps.")
	} else {
		cmd.Println("Setup complete! Run 'carbonfocus calc --help' to record your first day.")
	}
}

// stepDisplayVersion reports the carbonfocus version and Go runtime.
func stepDisplayVersion() StepResult {
	msg := fmt.Sprintf("carbonfocus v%s (%s)", version.GetVersion(), runtime.Version())
	if version.IsPrerelease() {
		msg += " [pre-release]"
	}
	return StepResult{
		Name:    "Version display",
		Status:  StepSuccess,
		Message: msg,
	}
}

// stepCreateDirectories creates the home, cache and history directories.
// Returns one StepResult per directory.
func stepCreateDirectories() []StepResult {
	cfg := config.GetGlobalConfig()
	home := config.HomeDir()

	dirs := []string{home}
	if cfg.Climate.Cache.Enabled && cfg.Climate.Cache.Directory != "" {
		dirs = append(dirs, cfg.Climate.Cache.Directory)
	}
	if dir := filepath.Dir(cfg.Data.HistoryPath); dir != home {
		dirs = append(dirs, dir)
	}

	var results []StepResult
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			results = append(results, StepResult{
				Name:     "Directory creation",
				Status:   StepSuccess,
				Message:  fmt.Sprintf("Directory exists: %s", dir),
				Critical: true,
			})
			continue
		}

		if mkErr := os.MkdirAll(dir, dirPermBase); mkErr != nil {
			results = append(results, StepResult{
				Name:   "Directory creation",
				Status: StepError,
				Message: fmt.Sprintf(
					"Failed to create %s: %v\n  Try: export %s=/path/to/writable/directory",
					dir,
					mkErr,
					config.EnvHome,
				),
				Critical: true,
				Err:      mkErr,
			})
			continue
		}

		results = append(results, StepResult{
			Name:     "Directory creation",
			Status:   StepSuccess,
			Message:  fmt.Sprintf("Created %s", dir),
			Critical: true,
		})
	}

	return results
}

// stepInitConfig writes the default config file if one does not exist.
func stepInitConfig() StepResult {
	configPath := config.DefaultConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return StepResult{
			Name:     "Config initialization",
			Status:   StepSuccess,
			Message:  fmt.Sprintf("Config already exists (%s)", configPath),
			Critical: true,
		}
	}

	if err := config.Default().Save(configPath); err != nil {
		return StepResult{
			Name:     "Config initialization",
			Status:   StepError,
			Message:  fmt.Sprintf("Failed to initialize config: %v", err),
			Critical: true,
			Err:      err,
		}
	}

	return StepResult{
		Name:     "Config initialization",
		Status:   StepSuccess,
		Message:  fmt.Sprintf("Initialized config (%s)", configPath),
		Critical: true,
	}
}

// stepOpenHistory opens the configured history store and reports how many
// records it holds.
func stepOpenHistory(ctx context.Context) StepResult {
	cfg := config.GetGlobalConfig()

	store, err := history.Open(cfg.Data.HistoryBackend, cfg.Data.HistoryPath)
	if err != nil {
		return StepResult{
			Name:     "History store",
			Status:   StepError,
			Message:  fmt.Sprintf("Failed to open %s history at %s: %v", cfg.Data.HistoryBackend, cfg.Data.HistoryPath, err),
			Critical: true,
			Err:      err,
		}
	}
	defer func() { _ = store.Close() }()

	records, err := store.Query(ctx, history.DateRange{})
	if err != nil {
		return StepResult{
			Name:     "History store",
			Status:   StepError,
			Message:  fmt.Sprintf("History at %s is unreadable: %v", cfg.Data.HistoryPath, err),
			Critical: true,
			Err:      err,
		}
	}

	return StepResult{
		Name:     "History store",
		Status:   StepSuccess,
		Message:  fmt.Sprintf("History ready (%s, %d record(s), %s)", cfg.Data.HistoryBackend, len(records), cfg.Data.HistoryPath),
		Critical: true,
	}
}

// stepCheckAdvisor builds the configured advisor backend and, when it
// supports it, checks that it is reachable. Failures are warnings: every
// command except advise works without it.
func stepCheckAdvisor(ctx context.Context) StepResult {
	cfg := config.GetGlobalConfig()
	log := logging.FromContext(ctx)

	backend, err := advisor.NewBackend(ctx, cfg.AdvisorSettings(), nil)
	if err != nil {
		return StepResult{
			Name:    "Advisor check",
			Status:  StepWarning,
			Message: fmt.Sprintf("Advisor %s is not usable: %v", cfg.Advisor.Backend, err),
			Err:     err,
		}
	}

	pinger, ok := backend.(advisor.Pinger)
	if !ok {
		return StepResult{
			Name:    "Advisor check",
			Status:  StepSuccess,
			Message: fmt.Sprintf("Advisor configured (%s, %s)", backend.Name(), backend.Model()),
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, advisorPingTimeout)
	defer cancel()
	if err = pinger.Ping(pingCtx); err != nil {
		log.Debug().
			Ctx(ctx).
			Str("component", "setup").
			Err(err).
			Msg("advisor ping failed")
		return StepResult{
			Name:    "Advisor check",
			Status:  StepWarning,
			Message: fmt.Sprintf("Advisor %s unreachable: %v", backend.Name(), err),
			Err:     err,
		}
	}

	return StepResult{
		Name:    "Advisor check",
		Status:  StepSuccess,
		Message: fmt.Sprintf("Advisor reachable (%s, %s)", backend.Name(), backend.Model()),
	}
}
