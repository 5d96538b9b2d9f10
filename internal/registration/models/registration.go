package models

import (
	"fmt"
	"time"
)

// RegistrationID identifies one participant's registration. Ids come from the
// registration source and are never reused.
type RegistrationID string

// Category drives the tariff and whether a registration takes part in payment.
type Category string

const (
	CategoryMember    Category = "member"
	CategoryNonMember Category = "non_member"
	CategoryVIP       Category = "vip"
	CategorySpeaker   Category = "speaker"
	CategoryReferent  Category = "referent"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryMember,
	CategoryNonMember,
	CategoryVIP,
	CategorySpeaker,
	CategoryReferent,
}

// IsValid reports whether c belongs to the closed category set.
func (c Category) IsValid() bool {
	switch c {
	case CategoryMember, CategoryNonMember, CategoryVIP, CategorySpeaker, CategoryReferent:
		return true
	}
	return false
}

// IsExempt reports whether the category is exonerated from payment.
func (c Category) IsExempt() bool {
	switch c {
	case CategoryVIP, CategorySpeaker, CategoryReferent:
		return true
	}
	return false
}

// ParseCategory validates a raw category string.
func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	if !c.IsValid() {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return c, nil
}

// Status is the finalization state. Only pending -> finalized is legal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFinalized Status = "finalized"
)

// Registration is one participant's enrollment record.
type Registration struct {
	ID                RegistrationID
	Category          Category
	GroupID           string
	Status            Status
	PaymentMode       PaymentMode
	SettlementChannel SettlementChannel
	FinalizedAt       *time.Time
	FinalizedBy       string
	BatchID           string
}

// NewPending builds a pending registration as the registration source would.
func NewPending(id RegistrationID, category Category, groupID string) (Registration, error) {
	if id == "" {
		return Registration{}, fmt.Errorf("registration id is required")
	}
	if !category.IsValid() {
		return Registration{}, fmt.Errorf("registration %s: unknown category %q", id, category)
	}
	return Registration{
		ID:       id,
		Category: category,
		GroupID:  groupID,
		Status:   StatusPending,
	}, nil
}

// IsFinalized reports whether the registration has been committed.
func (r Registration) IsFinalized() bool {
	return r.Status == StatusFinalized
}

// IsPending reports whether the registration still awaits payment. Exempt
// registrations are never pending.
func (r Registration) IsPending() bool {
	return r.Status == StatusPending && !r.Category.IsExempt()
}

// Finalize returns a copy transitioned to finalized. The receiver is left
// untouched so callers can stage a batch before committing it.
func (r Registration) Finalize(mode PaymentMode, operator, batchID string, at time.Time) Registration {
	finalizedAt := at
	r.Status = StatusFinalized
	r.PaymentMode = mode
	r.SettlementChannel = ChannelFor(mode)
	r.FinalizedAt = &finalizedAt
	r.FinalizedBy = operator
	r.BatchID = batchID
	return r
}

// Validate checks the record-level invariants: payment fields are set exactly
// when the registration is finalized and the channel matches the mode.
func (r Registration) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("registration id is required")
	}
	if !r.Category.IsValid() {
		return fmt.Errorf("registration %s: unknown category %q", r.ID, r.Category)
	}
	switch r.Status {
	case StatusPending:
		if r.PaymentMode != "" || r.SettlementChannel != "" || r.FinalizedAt != nil || r.FinalizedBy != "" {
			return fmt.Errorf("registration %s: pending record carries payment fields", r.ID)
		}
	case StatusFinalized:
		if r.Category.IsExempt() {
			return fmt.Errorf("registration %s: exempt category %q cannot be finalized", r.ID, r.Category)
		}
		if !r.PaymentMode.IsValid() || r.FinalizedAt == nil {
			return fmt.Errorf("registration %s: finalized record misses payment fields", r.ID)
		}
		if r.SettlementChannel != ChannelFor(r.PaymentMode) {
			return fmt.Errorf("registration %s: channel %q does not match mode %q", r.ID, r.SettlementChannel, r.PaymentMode)
		}
	default:
		return fmt.Errorf("registration %s: unknown status %q", r.ID, r.Status)
	}
	return nil
}

// Snapshot is a consistent cut of the registration store.
type Snapshot struct {
	Pending   []Registration
	Finalized []Registration
	Exempt    []Registration
}
