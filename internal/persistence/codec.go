package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
)

// record is the stored encoding of a registration for key-value backends.
type record struct {
	ID                string     `json:"id"`
	Category          string     `json:"category"`
	GroupID           string     `json:"group_id,omitempty"`
	Status            string     `json:"status"`
	PaymentMode       string     `json:"payment_mode,omitempty"`
	SettlementChannel string     `json:"settlement_channel,omitempty"`
	FinalizedAt       *time.Time `json:"finalized_at,omitempty"`
	FinalizedBy       string     `json:"finalized_by,omitempty"`
	BatchID           string     `json:"batch_id,omitempty"`
}

func encodeRegistration(reg models.Registration) (string, error) {
	b, err := json.Marshal(record{
		ID:                string(reg.ID),
		Category:          string(reg.Category),
		GroupID:           reg.GroupID,
		Status:            string(reg.Status),
		PaymentMode:       string(reg.PaymentMode),
		SettlementChannel: string(reg.SettlementChannel),
		FinalizedAt:       reg.FinalizedAt,
		FinalizedBy:       reg.FinalizedBy,
		BatchID:           reg.BatchID,
	})
	if err != nil {
		return "", fmt.Errorf("encode registration %s: %w", reg.ID, err)
	}
	return string(b), nil
}

func decodeRegistration(raw string) (models.Registration, error) {
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return models.Registration{}, fmt.Errorf("decode registration: %w", err)
	}
	return models.Registration{
		ID:                models.RegistrationID(rec.ID),
		Category:          models.Category(rec.Category),
		GroupID:           rec.GroupID,
		Status:            models.Status(rec.Status),
		PaymentMode:       models.PaymentMode(rec.PaymentMode),
		SettlementChannel: models.SettlementChannel(rec.SettlementChannel),
		FinalizedAt:       rec.FinalizedAt,
		FinalizedBy:       rec.FinalizedBy,
		BatchID:           rec.BatchID,
	}, nil
}
