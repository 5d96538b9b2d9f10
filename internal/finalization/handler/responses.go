package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/group"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/httputil"
)

// ReceiptResponse is the HTTP response for POST /finalizations.
type ReceiptResponse struct {
	BatchID           string          `json:"batch_id,omitempty"`
	NewlyFinalized    []string        `json:"newly_finalized"`
	AlreadyFinalized  []string        `json:"already_finalized"`
	Amount            decimal.Decimal `json:"amount"`
	PaymentMode       string          `json:"payment_mode"`
	SettlementChannel string          `json:"settlement_channel"`
	Operator          string          `json:"operator"`
	FinalizedAt       *time.Time      `json:"finalized_at,omitempty"`
}

// FromReceipt converts a service receipt to an HTTP response.
func FromReceipt(r *models.Receipt) *ReceiptResponse {
	resp := &ReceiptResponse{
		BatchID:           r.BatchID,
		NewlyFinalized:    idStrings(r.NewlyFinalized),
		AlreadyFinalized:  idStrings(r.AlreadyFinalized),
		Amount:            r.Amount,
		PaymentMode:       string(r.PaymentMode),
		SettlementChannel: string(r.SettlementChannel),
		Operator:          r.Operator,
	}
	if r.Committed() {
		at := r.FinalizedAt
		resp.FinalizedAt = &at
	}
	return resp
}

// RegistrationResponse is one registration in listings.
type RegistrationResponse struct {
	ID                string     `json:"id"`
	Category          string     `json:"category"`
	GroupID           string     `json:"group_id,omitempty"`
	Status            string     `json:"status"`
	Exempt            bool       `json:"exempt"`
	PaymentMode       string     `json:"payment_mode,omitempty"`
	SettlementChannel string     `json:"settlement_channel,omitempty"`
	FinalizedAt       *time.Time `json:"finalized_at,omitempty"`
	FinalizedBy       string     `json:"finalized_by,omitempty"`
	BatchID           string     `json:"batch_id,omitempty"`
}

func fromRegistration(r models.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:                string(r.ID),
		Category:          string(r.Category),
		GroupID:           r.GroupID,
		Status:            string(r.Status),
		Exempt:            r.Category.IsExempt(),
		PaymentMode:       string(r.PaymentMode),
		SettlementChannel: string(r.SettlementChannel),
		FinalizedAt:       r.FinalizedAt,
		FinalizedBy:       r.FinalizedBy,
		BatchID:           r.BatchID,
	}
}

// ListResponse wraps a registration listing.
type ListResponse struct {
	Count         int                    `json:"count"`
	Registrations []RegistrationResponse `json:"registrations"`
}

func fromRegistrations(regs []models.Registration) ListResponse {
	out := make([]RegistrationResponse, 0, len(regs))
	for _, r := range regs {
		out = append(out, fromRegistration(r))
	}
	return ListResponse{Count: len(out), Registrations: out}
}

// GroupsResponse lists group summaries.
type GroupsResponse struct {
	Count  int             `json:"count"`
	Groups []group.Summary `json:"groups"`
}

// GroupMembersResponse is a group summary with its members.
type GroupMembersResponse struct {
	group.Summary
	Registrations []RegistrationResponse `json:"registrations"`
}

// rejectedBatch exposes an invalid batch's rejections to httputil.WriteError.
type rejectedBatch struct {
	*models.InvalidBatchError
}

func (e rejectedBatch) RejectionList() []httputil.Rejection {
	out := make([]httputil.Rejection, 0, len(e.Rejections))
	for _, r := range e.Rejections {
		out = append(out, httputil.Rejection{ID: string(r.ID), Reason: string(r.Reason)})
	}
	return out
}

func idStrings(ids []models.RegistrationID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
