package cli

import (
	"github.com/spf13/cobra"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/source"
)

// NewImportSettledCommand creates the import-settled command.
func NewImportSettledCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-settled <settled.yaml>",
		Short: "Finalize payments collected outside the console",
		Long: `Finalize payments collected outside the console, such as a gateway
export or a treasury statement. Rows are batched per payment mode and
operator; rows already finalized are reported, not charged again.

Example file:
  settled:
    - {id: REG-001, payment_mode: wave, operator: gateway-export}
    - {id: REG-007, payment_mode: bank_transfer, operator: treasury}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportSettled(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

type importOutput struct {
	Batches          []receiptOutput `json:"batches"`
	NewlyFinalized   int             `json:"newly_finalized"`
	AlreadyFinalized int             `json:"already_finalized"`
	Amount           string          `json:"amount"`
}

func runImportSettled(cmd *cobra.Command, opts *RootOptions, path string) error {
	reqs, err := source.LoadSettledFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read settled payments", err)
	}

	ctx := cmd.Context()
	e, err := opts.openEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	out := opts.output(cmd)
	res, importErr := e.ImportSettled(ctx, reqs)
	for _, receipt := range res.Receipts {
		announce(cmd, e, receipt)
	}

	if out.JSON() && importErr == nil {
		batches := make([]receiptOutput, 0, len(res.Receipts))
		for _, receipt := range res.Receipts {
			batches = append(batches, toReceiptOutput(receipt))
		}
		return out.WriteJSON(importOutput{
			Batches:          batches,
			NewlyFinalized:   res.NewlyFinalized,
			AlreadyFinalized: res.AlreadyFinalized,
			Amount:           res.Amount.String(),
		})
	}
	if !out.JSON() {
		for _, receipt := range res.Receipts {
			if err := out.WriteReceipt(receipt); err != nil {
				return err
			}
		}
	}
	if importErr != nil {
		return finalizeFailure(out, importErr)
	}
	out.Printf("imported %d batches: %d finalized, %d already finalized, amount %s\n",
		len(res.Receipts), res.NewlyFinalized, res.AlreadyFinalized, res.Amount.String())
	return nil
}
