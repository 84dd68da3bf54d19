package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonfocus/internal/advisor"
	"github.com/rshade/carbonfocus/internal/config"
	"github.com/rshade/carbonfocus/internal/logging"
	"github.com/rshade/carbonfocus/internal/server"
)

func newServeCmd(ver string) *cobra.Command {
	var (
		addr      string
		noAdvisor bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local HTTP API",
		Long: `Serves the calculator, history, trends, goals, climate and advice over a
local JSON API until interrupted. The advisor is optional: without it the
advice endpoint answers 503 and everything else keeps working.`,
		Example: `  carbonfocus serve
  carbonfocus serve --addr 127.0.0.1:9090 --offline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := config.GetGlobalConfig()
			if addr != "" {
				cfg.Server.Addr = addr
			}

			eng, cleanup, err := buildEngine(ctx, engineNeeds{store: true, advisor: !noAdvisor})
			if errors.Is(err, advisor.ErrAdvisoryUnavailable) {
				// Serve without advice rather than not at all.
				logging.FromContext(ctx).Warn().Ctx(ctx).Err(err).Msg("advisor unavailable, serving without advice")
				eng, cleanup, err = buildEngine(ctx, engineNeeds{store: true})
			}
			if err != nil {
				return err
			}
			defer cleanup()

			srv := server.New(eng, server.Options{
				Addr:             cfg.Server.Addr,
				AllowedOrigins:   cfg.Server.AllowedOrigins,
				ReadTimeout:      cfg.Server.ReadTimeout,
				WriteTimeout:     cfg.Server.WriteTimeout,
				ReductionPercent: cfg.Goals.ReductionPercent,
				TrendDays:        cfg.Goals.TrendDays,
				Version:          ver,
				Logger:           logger,
			})
			cmd.Printf("Serving carbonfocus API on http://%s (Ctrl+C to stop)\n", srv.Addr())
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config server.addr)")
	cmd.Flags().BoolVar(&noAdvisor, "no-advisor", false, "serve without the language model advisor")
	return cmd
}
