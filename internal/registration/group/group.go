// Package group resolves registration groups for the group-payment flow.
package group

import (
	"github.com/shopspring/decimal"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/tariff"
)

// Directory is the read side of the registration store the resolver needs.
type Directory interface {
	Get(id models.RegistrationID) (models.Registration, bool)
	GroupMembers(groupID string) []models.Registration
	GroupIDs() []string
}

// Summary describes one group as shown to the group-payment operator.
type Summary struct {
	GroupID     string                  `json:"group_id"`
	Members     int                     `json:"members"`
	Pending     []models.RegistrationID `json:"pending"`
	Finalized   int                     `json:"finalized"`
	Exempt      int                     `json:"exempt"`
	Outstanding decimal.Decimal         `json:"outstanding"`
}

// Filter narrows Groups.
type Filter struct {
	// OutstandingOnly keeps groups with at least one pending payable member.
	OutstandingOnly bool
}

// Resolver answers group membership questions against a Directory.
type Resolver struct {
	dir     Directory
	tariffs *tariff.Resolver
}

// New builds a resolver.
func New(dir Directory, tariffs *tariff.Resolver) *Resolver {
	return &Resolver{dir: dir, tariffs: tariffs}
}

// MembersOf returns every member id of id's group, or just id when the
// registration is ungrouped or unknown.
func (r *Resolver) MembersOf(id models.RegistrationID) []models.RegistrationID {
	reg, ok := r.dir.Get(id)
	if !ok || reg.GroupID == "" {
		return []models.RegistrationID{id}
	}
	members := r.dir.GroupMembers(reg.GroupID)
	out := make([]models.RegistrationID, 0, len(members))
	for _, m := range members {
		out = append(out, m.ID)
	}
	return out
}

// Expand replaces every id with its group, keeping first-seen order and
// dropping duplicates.
func (r *Resolver) Expand(ids []models.RegistrationID) []models.RegistrationID {
	seen := make(map[models.RegistrationID]struct{}, len(ids))
	out := make([]models.RegistrationID, 0, len(ids))
	for _, id := range ids {
		for _, member := range r.MembersOf(id) {
			if _, ok := seen[member]; ok {
				continue
			}
			seen[member] = struct{}{}
			out = append(out, member)
		}
	}
	return out
}

// Summarize describes a single group. ok is false for unknown groups.
func (r *Resolver) Summarize(groupID string) (Summary, bool) {
	members := r.dir.GroupMembers(groupID)
	if len(members) == 0 {
		return Summary{}, false
	}
	sum := Summary{
		GroupID:     groupID,
		Members:     len(members),
		Pending:     []models.RegistrationID{},
		Outstanding: decimal.Zero,
	}
	for _, m := range members {
		switch {
		case m.Category.IsExempt():
			sum.Exempt++
		case m.IsFinalized():
			sum.Finalized++
		default:
			sum.Pending = append(sum.Pending, m.ID)
			sum.Outstanding = sum.Outstanding.Add(r.tariffs.Resolve(m.Category))
		}
	}
	return sum, true
}

// Groups lists group summaries in intake order.
func (r *Resolver) Groups(filter Filter) []Summary {
	out := make([]Summary, 0)
	for _, id := range r.dir.GroupIDs() {
		sum, ok := r.Summarize(id)
		if !ok {
			continue
		}
		if filter.OutstandingOnly && len(sum.Pending) == 0 {
			continue
		}
		out = append(out, sum)
	}
	return out
}
