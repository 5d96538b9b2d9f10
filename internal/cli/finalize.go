package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/engine"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	dErrors "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/domain-errors"
	strs "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/strings"
)

// FinalizeOptions holds flags for the finalize command.
type FinalizeOptions struct {
	*RootOptions
	IDs          string
	Mode         string
	Operator     string
	ExpandGroups bool
	Category     string
}

// NewFinalizeCommand creates the finalize command.
func NewFinalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FinalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "finalize",
		Short: "Finalize payment for registrations",
		Long: `Finalize payment for registrations. The whole batch is rejected when
any id is unknown or exempt; ids already finalized are reported, not charged
again.

Example:
  fanaf finalize --ids REG-001,REG-002 --mode cash --operator caisse-1
  fanaf finalize --ids REG-010 --mode wave --operator caisse-2 --expand`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFinalize(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.IDs, "ids", "", "registration ids (comma separated)")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "payment mode (cash|card|wave|orange_money|bank_transfer|cheque)")
	cmd.Flags().StringVar(&opts.Operator, "operator", "", "operator recording the payment")
	cmd.Flags().BoolVar(&opts.ExpandGroups, "expand", false, "finalize the whole group of each id")
	cmd.Flags().StringVar(&opts.Category, "category", "", "restrict the batch to one category")
	_ = cmd.MarkFlagRequired("ids")
	_ = cmd.MarkFlagRequired("mode")
	_ = cmd.MarkFlagRequired("operator")

	return cmd
}

func (o *FinalizeOptions) request() (models.FinalizeRequest, error) {
	mode, err := models.ParsePaymentMode(strings.TrimSpace(o.Mode))
	if err != nil {
		return models.FinalizeRequest{}, err
	}
	req := models.FinalizeRequest{
		IDs:          strs.SplitList[models.RegistrationID](o.IDs),
		PaymentMode:  mode,
		Operator:     strings.TrimSpace(o.Operator),
		ExpandGroups: o.ExpandGroups,
	}
	if o.Category != "" {
		if req.Category, err = models.ParseCategory(o.Category); err != nil {
			return models.FinalizeRequest{}, err
		}
	}
	return req, nil
}

func runFinalize(cmd *cobra.Command, opts *FinalizeOptions) error {
	req, err := opts.request()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}

	ctx := cmd.Context()
	e, err := opts.openEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	out := opts.output(cmd)
	receipt, err := e.Service.Finalize(ctx, req)
	if err != nil {
		return finalizeFailure(out, err)
	}
	announce(cmd, e, receipt)
	return out.WriteReceipt(receipt)
}

func finalizeFailure(out *OutputFormatter, err error) error {
	var batch *models.InvalidBatchError
	if errors.As(err, &batch) {
		if werr := out.WriteRejection(batch); werr != nil {
			return werr
		}
		return WrapExitError(ExitFailure, "finalize", err)
	}
	if dErrors.HasCode(err, dErrors.CodeValidation) {
		return WrapExitError(ExitCommandError, "finalize", err)
	}
	return WrapExitError(ExitFailure, "finalize", err)
}

func announce(cmd *cobra.Command, e *engine.Engine, receipt *models.Receipt) {
	if !receipt.Committed() {
		return
	}
	if err := e.Announce(cmd.Context(), models.EventFinalized, receipt.BatchID, receipt.NewlyFinalized); err != nil {
		e.Logger.WarnContext(cmd.Context(), "failed to notify peers", "batch_id", receipt.BatchID, "error", err)
	}
}
