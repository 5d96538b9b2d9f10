package models

// Filter narrows registration listings. Zero fields match everything.
type Filter struct {
	Category          Category
	GroupID           string
	PaymentMode       PaymentMode
	SettlementChannel SettlementChannel
	FinalizedBy       string
}

// Matches reports whether r satisfies every set field of f.
func (f Filter) Matches(r Registration) bool {
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.GroupID != "" && r.GroupID != f.GroupID {
		return false
	}
	if f.PaymentMode != "" && r.PaymentMode != f.PaymentMode {
		return false
	}
	if f.SettlementChannel != "" && r.SettlementChannel != f.SettlementChannel {
		return false
	}
	if f.FinalizedBy != "" && r.FinalizedBy != f.FinalizedBy {
		return false
	}
	return true
}
