package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonfocus/internal/tui"
)

func newClimateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "climate",
		Short: "Show the current climate context",
		Long: `Shows atmospheric CO2 from the Mauna Loa record, the live UK grid carbon
intensity and a climate headline. Unreachable sources fall back to cached
readings or defaults and are marked "cached".`,
		Example: `  carbonfocus climate
  carbonfocus climate --offline --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			format, err := resolveOutput(output)
			if err != nil {
				return err
			}

			eng, cleanup, err := buildEngine(ctx, engineNeeds{})
			if err != nil {
				return err
			}
			defer cleanup()

			snapshot := eng.Climate(ctx)
			if format == outputJSON {
				return renderJSON(cmd.OutOrStdout(), snapshot)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderClimate(&snapshot))
			return nil
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}
