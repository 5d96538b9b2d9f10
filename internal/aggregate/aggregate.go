// Package aggregate derives the reconciliation figures shown to operators:
// pending and finalized totals, breakdowns per category, payment mode and
// settlement channel, and the recovery rate. Everything here is a pure
// function of a store snapshot.
package aggregate

import (
	"github.com/shopspring/decimal"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/tariff"
)

const recoveryRatePlaces = 4

// Bucket is a count of registrations and the tariff amount they carry.
type Bucket struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

func (b Bucket) add(amount decimal.Decimal) Bucket {
	return Bucket{Count: b.Count + 1, Amount: b.Amount.Add(amount)}
}

// CategoryBreakdown splits one category across payment states.
type CategoryBreakdown struct {
	Pending   Bucket `json:"pending"`
	Finalized Bucket `json:"finalized"`
	Exempt    int    `json:"exempt"`
}

// Summary is the full set of aggregates for one snapshot. Every known
// category, mode and channel has an entry, zero when unused.
type Summary struct {
	Pending       Bucket                                `json:"pending"`
	Finalized     Bucket                                `json:"finalized"`
	Exempt        int                                   `json:"exempt"`
	ByCategory    map[models.Category]CategoryBreakdown `json:"by_category"`
	ByPaymentMode map[models.PaymentMode]Bucket         `json:"by_payment_mode"`
	ByChannel     map[models.SettlementChannel]Bucket   `json:"by_settlement_channel"`
	RecoveryRate  decimal.Decimal                       `json:"recovery_rate"`
}

// Total is pending plus finalized. It does not change when registrations
// are finalized.
func (s Summary) Total() Bucket {
	return Bucket{
		Count:  s.Pending.Count + s.Finalized.Count,
		Amount: s.Pending.Amount.Add(s.Finalized.Amount),
	}
}

// Compute derives a Summary from snap.
func Compute(snap models.Snapshot, tariffs *tariff.Resolver) Summary {
	sum := Summary{
		Pending:       Bucket{Amount: decimal.Zero},
		Finalized:     Bucket{Amount: decimal.Zero},
		ByCategory:    make(map[models.Category]CategoryBreakdown, len(models.Categories)),
		ByPaymentMode: make(map[models.PaymentMode]Bucket, len(models.PaymentModes)),
		ByChannel:     make(map[models.SettlementChannel]Bucket, len(models.SettlementChannels)),
		RecoveryRate:  decimal.Zero,
	}
	for _, c := range models.Categories {
		sum.ByCategory[c] = CategoryBreakdown{
			Pending:   Bucket{Amount: decimal.Zero},
			Finalized: Bucket{Amount: decimal.Zero},
		}
	}
	for _, m := range models.PaymentModes {
		sum.ByPaymentMode[m] = Bucket{Amount: decimal.Zero}
	}
	for _, c := range models.SettlementChannels {
		sum.ByChannel[c] = Bucket{Amount: decimal.Zero}
	}

	for _, reg := range snap.Pending {
		amount := tariffs.Resolve(reg.Category)
		sum.Pending = sum.Pending.add(amount)
		cat := sum.ByCategory[reg.Category]
		cat.Pending = cat.Pending.add(amount)
		sum.ByCategory[reg.Category] = cat
	}
	for _, reg := range snap.Finalized {
		amount := tariffs.Resolve(reg.Category)
		sum.Finalized = sum.Finalized.add(amount)
		cat := sum.ByCategory[reg.Category]
		cat.Finalized = cat.Finalized.add(amount)
		sum.ByCategory[reg.Category] = cat
		sum.ByPaymentMode[reg.PaymentMode] = sum.ByPaymentMode[reg.PaymentMode].add(amount)
		sum.ByChannel[reg.SettlementChannel] = sum.ByChannel[reg.SettlementChannel].add(amount)
	}
	for _, reg := range snap.Exempt {
		sum.Exempt++
		cat := sum.ByCategory[reg.Category]
		cat.Exempt++
		sum.ByCategory[reg.Category] = cat
	}

	sum.RecoveryRate = RecoveryRate(sum.Finalized.Amount, sum.Pending.Amount)
	return sum
}

// RecoveryRate is finalized / (finalized + pending), rounded to four places.
// It is zero when nothing is owed at all.
func RecoveryRate(finalized, pending decimal.Decimal) decimal.Decimal {
	total := finalized.Add(pending)
	if total.IsZero() {
		return decimal.Zero
	}
	return finalized.Div(total).Round(recoveryRatePlaces)
}
