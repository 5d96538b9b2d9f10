package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Batch rejected or store unavailable
	ExitCommandError = 2 // Bad flags, unreadable files, unusable config
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as JSON or aligned text.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// NewOutputFormatter creates a formatter for format.
func NewOutputFormatter(format string, w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: format, Writer: w}
}

// JSON reports whether output is JSON.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// WriteJSON encodes v indented.
func (f *OutputFormatter) WriteJSON(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Printf writes formatted text.
func (f *OutputFormatter) Printf(format string, args ...any) {
	fmt.Fprintf(f.Writer, format, args...)
}

type receiptOutput struct {
	BatchID           string   `json:"batch_id,omitempty"`
	NewlyFinalized    []string `json:"newly_finalized"`
	AlreadyFinalized  []string `json:"already_finalized"`
	Amount            string   `json:"amount"`
	PaymentMode       string   `json:"payment_mode"`
	SettlementChannel string   `json:"settlement_channel"`
	Operator          string   `json:"operator"`
}

func toReceiptOutput(r *models.Receipt) receiptOutput {
	return receiptOutput{
		BatchID:           r.BatchID,
		NewlyFinalized:    idStrings(r.NewlyFinalized),
		AlreadyFinalized:  idStrings(r.AlreadyFinalized),
		Amount:            r.Amount.String(),
		PaymentMode:       string(r.PaymentMode),
		SettlementChannel: string(r.SettlementChannel),
		Operator:          r.Operator,
	}
}

// WriteReceipt prints one finalize result.
func (f *OutputFormatter) WriteReceipt(r *models.Receipt) error {
	if f.JSON() {
		return f.WriteJSON(toReceiptOutput(r))
	}
	if !r.Committed() {
		f.Printf("nothing to finalize; already finalized: %s\n", joinIDs(r.AlreadyFinalized))
		return nil
	}
	f.Printf("batch %s: %d finalized by %s via %s (%s), amount %s\n",
		r.BatchID, len(r.NewlyFinalized), r.Operator, r.PaymentMode, r.SettlementChannel, r.Amount.String())
	f.Printf("  finalized: %s\n", joinIDs(r.NewlyFinalized))
	if len(r.AlreadyFinalized) > 0 {
		f.Printf("  already finalized: %s\n", joinIDs(r.AlreadyFinalized))
	}
	return nil
}

type rejectionOutput struct {
	Error      string             `json:"error"`
	Rejections []models.Rejection `json:"rejections"`
}

// WriteRejection prints why a batch was refused.
func (f *OutputFormatter) WriteRejection(batch *models.InvalidBatchError) error {
	if f.JSON() {
		return f.WriteJSON(rejectionOutput{Error: "invalid_batch", Rejections: batch.Rejections})
	}
	f.Printf("batch rejected, nothing finalized:\n")
	for _, r := range batch.Rejections {
		f.Printf("  %s: %s\n", r.ID, r.Reason)
	}
	return nil
}

func idStrings(ids []models.RegistrationID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func joinIDs(ids []models.RegistrationID) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(idStrings(ids), ", ")
}
