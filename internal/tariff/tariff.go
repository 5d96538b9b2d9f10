// Package tariff maps a registration category to the amount it owes.
package tariff

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
)

// Default amounts in XOF.
var (
	DefaultMember    = decimal.NewFromInt(350000)
	DefaultNonMember = decimal.NewFromInt(400000)
)

// Schedule holds the payable tariffs. Exempt categories are always zero.
type Schedule struct {
	Member    decimal.Decimal
	NonMember decimal.Decimal
}

// DefaultSchedule returns the conference's standard tariffs.
func DefaultSchedule() Schedule {
	return Schedule{Member: DefaultMember, NonMember: DefaultNonMember}
}

// Resolver is a pure, stateless category -> amount mapping.
type Resolver struct {
	schedule Schedule
}

// New builds a Resolver, rejecting negative amounts.
func New(schedule Schedule) (*Resolver, error) {
	if schedule.Member.IsNegative() || schedule.NonMember.IsNegative() {
		return nil, fmt.Errorf("tariff amounts must not be negative")
	}
	return &Resolver{schedule: schedule}, nil
}

// Default builds a Resolver over DefaultSchedule.
func Default() *Resolver {
	return &Resolver{schedule: DefaultSchedule()}
}

// Resolve returns the amount owed for category. Unknown categories are a
// programming error and panic.
func (r *Resolver) Resolve(category models.Category) decimal.Decimal {
	switch category {
	case models.CategoryMember:
		return r.schedule.Member
	case models.CategoryNonMember:
		return r.schedule.NonMember
	case models.CategoryVIP, models.CategorySpeaker, models.CategoryReferent:
		return decimal.Zero
	}
	panic(fmt.Sprintf("tariff: unknown category %q", category))
}

// Sum adds up the tariff of every registration.
func (r *Resolver) Sum(regs []models.Registration) decimal.Decimal {
	total := decimal.Zero
	for _, reg := range regs {
		total = total.Add(r.Resolve(reg.Category))
	}
	return total
}
