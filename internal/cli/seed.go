package cli

import (
	"github.com/spf13/cobra"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/source"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/requestcontext"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Operator string
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <registrations.yaml>",
		Short: "Feed pending registrations from an intake file",
		Long: `Feed pending registrations from an intake file. Ids already known are
skipped, so the same file can be fed again after it grows.

Example file:
  registrations:
    - {id: REG-001, category: member}
    - {id: REG-002, category: non_member, group: ACME}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Operator, "operator", "", "operator recorded in the audit trail")

	return cmd
}

type seedOutput struct {
	Read  int `json:"read"`
	Added int `json:"added"`
}

func runSeed(cmd *cobra.Command, opts *SeedOptions, path string) error {
	regs, err := source.LoadRegistrationsFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read registrations", err)
	}

	ctx := requestcontext.WithOperator(cmd.Context(), opts.Operator)
	e, err := opts.openEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	added, err := e.Seed(ctx, regs)
	if err != nil {
		return WrapExitError(ExitFailure, "register", err)
	}
	if added > 0 {
		if err := e.Announce(ctx, models.EventReload, "", nil); err != nil {
			e.Logger.WarnContext(ctx, "failed to notify peers", "error", err)
		}
	}

	out := opts.output(cmd)
	if out.JSON() {
		return out.WriteJSON(seedOutput{Read: len(regs), Added: added})
	}
	out.Printf("registered %d new of %d read\n", added, len(regs))
	return nil
}
