package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinalizeRequest asks the engine to commit payment for a set of registrations.
type FinalizeRequest struct {
	IDs          []RegistrationID
	PaymentMode  PaymentMode
	Operator     string
	ExpandGroups bool
	// Category, when set, restricts the batch to one category. A registration
	// of another category rejects the whole batch.
	Category Category
}

// FinalizedBatch is what the registration store committed in one call.
type FinalizedBatch struct {
	BatchID           string
	IDs               []RegistrationID
	Amount            decimal.Decimal
	PaymentMode       PaymentMode
	SettlementChannel SettlementChannel
	Operator          string
	FinalizedAt       time.Time
}

// Receipt is the result of a finalize call. A receipt with no newly finalized
// ids is a valid outcome, e.g. a duplicate submission.
type Receipt struct {
	BatchID           string
	NewlyFinalized    []RegistrationID
	AlreadyFinalized  []RegistrationID
	Amount            decimal.Decimal
	PaymentMode       PaymentMode
	SettlementChannel SettlementChannel
	Operator          string
	FinalizedAt       time.Time
}

// Committed reports whether the call finalized anything.
func (r *Receipt) Committed() bool {
	return len(r.NewlyFinalized) > 0
}
