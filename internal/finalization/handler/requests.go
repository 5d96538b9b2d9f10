package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	dErrors "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/domain-errors"
)

const maxBatchIDs = 1000

// FinalizeRequest is the HTTP request body for POST /finalizations.
type FinalizeRequest struct {
	IDs          []string `json:"ids"`
	PaymentMode  string   `json:"payment_mode"`
	ExpandGroups bool     `json:"expand_groups"`
	Category     string   `json:"category,omitempty"`

	parsedIDs      []models.RegistrationID
	parsedMode     models.PaymentMode
	parsedCategory models.Category
}

// Validate validates and parses the request.
func (r *FinalizeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.IDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "ids is required")
	}
	if len(r.IDs) > maxBatchIDs {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d ids per request", maxBatchIDs))
	}

	r.parsedIDs = make([]models.RegistrationID, 0, len(r.IDs))
	for _, raw := range r.IDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			return dErrors.New(dErrors.CodeValidation, "ids must not contain empty values")
		}
		r.parsedIDs = append(r.parsedIDs, models.RegistrationID(id))
	}

	mode, err := models.ParsePaymentMode(strings.TrimSpace(r.PaymentMode))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "payment_mode is invalid")
	}
	r.parsedMode = mode

	if raw := strings.TrimSpace(r.Category); raw != "" {
		category, err := models.ParseCategory(raw)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "category is invalid")
		}
		r.parsedCategory = category
	}
	return nil
}

// ToModel builds the service request for operator.
func (r *FinalizeRequest) ToModel(operator string) models.FinalizeRequest {
	return models.FinalizeRequest{
		IDs:          r.parsedIDs,
		PaymentMode:  r.parsedMode,
		Operator:     operator,
		ExpandGroups: r.ExpandGroups,
		Category:     r.parsedCategory,
	}
}

// parseFilter reads listing filters from the query string.
func parseFilter(r *http.Request) (models.Filter, error) {
	q := r.URL.Query()
	filter := models.Filter{
		GroupID:     q.Get("group"),
		FinalizedBy: q.Get("finalized_by"),
	}
	if raw := q.Get("category"); raw != "" {
		c, err := models.ParseCategory(raw)
		if err != nil {
			return filter, dErrors.Wrap(err, dErrors.CodeValidation, "category is invalid")
		}
		filter.Category = c
	}
	if raw := q.Get("payment_mode"); raw != "" {
		m, err := models.ParsePaymentMode(raw)
		if err != nil {
			return filter, dErrors.Wrap(err, dErrors.CodeValidation, "payment_mode is invalid")
		}
		filter.PaymentMode = m
	}
	if raw := q.Get("channel"); raw != "" {
		ch := models.SettlementChannel(raw)
		if ch != models.ChannelExternal && ch != models.ChannelGateway {
			return filter, dErrors.New(dErrors.CodeValidation, "channel is invalid")
		}
		filter.SettlementChannel = ch
	}
	return filter, nil
}
