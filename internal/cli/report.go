package cli

import (
	"github.com/spf13/cobra"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/aggregate"
)

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the reconciliation summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := rootOpts.openEngine(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			sum := e.View.Summary()
			out := rootOpts.output(cmd)
			if out.JSON() {
				return out.WriteJSON(sum)
			}
			return aggregate.RenderText(out.Writer, sum)
		},
	}
}
