package models

import (
	"fmt"
	"strings"

	dErrors "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/domain-errors"
)

// RejectionReason explains why an id made a batch invalid.
type RejectionReason string

const (
	RejectUnknown          RejectionReason = "unknown"
	RejectExempt           RejectionReason = "exempt"
	RejectAlreadyFinalized RejectionReason = "already_finalized"
	RejectCategoryMismatch RejectionReason = "category_mismatch"
)

// Rejection names one offending id.
type Rejection struct {
	ID     RegistrationID  `json:"id"`
	Reason RejectionReason `json:"reason"`
}

// InvalidBatchError rejects a whole finalize batch. Nothing was committed.
type InvalidBatchError struct {
	Rejections []Rejection
}

func (e *InvalidBatchError) Error() string {
	parts := make([]string, 0, len(e.Rejections))
	for _, r := range e.Rejections {
		parts = append(parts, fmt.Sprintf("%s (%s)", r.ID, r.Reason))
	}
	return "invalid batch: " + strings.Join(parts, ", ")
}

// Unwrap exposes the coded domain error so dErrors.HasCode matches.
func (e *InvalidBatchError) Unwrap() error {
	return dErrors.New(dErrors.CodeInvalidBatch, "finalize batch rejected")
}

// RejectedIDs lists the offending ids in rejection order.
func (e *InvalidBatchError) RejectedIDs() []RegistrationID {
	ids := make([]RegistrationID, 0, len(e.Rejections))
	for _, r := range e.Rejections {
		ids = append(ids, r.ID)
	}
	return ids
}
