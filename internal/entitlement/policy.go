// Package entitlement decides whether an account may create another
// document. The policy half is pure functions over a subscription snapshot;
// the store half (store.go) owns fetching and caching that snapshot.
package entitlement

import (
	"time"

	"github.com/sakif/docuflow/internal/model"
)

// FreeTierDocumentLimit is the free-plan ceiling. The bound is exclusive: a
// user holding exactly this many documents is denied the next create.
const FreeTierDocumentLimit = 5

// Snapshot is a point-in-time copy of one account's subscription facts. It
// is a cache, never a source of truth: DocumentCount equals the
// authoritative count as of the last refresh, nothing stronger.
type Snapshot struct {
	Tier          model.Tier `json:"tier"`
	PeriodStart   *time.Time `json:"periodStart,omitempty"`
	PeriodEnd     *time.Time `json:"periodEnd,omitempty"`
	DocumentCount int        `json:"documentCount"`
}

// SnapshotFromProfile copies the subscription facts out of a profile row.
func SnapshotFromProfile(p *model.Profile) *Snapshot {
	if p == nil {
		return nil
	}
	return &Snapshot{
		Tier:          p.SubscriptionTier,
		PeriodStart:   p.SubscriptionStart,
		PeriodEnd:     p.SubscriptionEnd,
		DocumentCount: p.DocumentCount,
	}
}

// Expired reports whether the subscription period has ended: PeriodEnd is
// set and strictly before now. A nil snapshot or an unset PeriodEnd is
// never expired.
func (s *Snapshot) Expired(now time.Time) bool {
	if s == nil || s.PeriodEnd == nil {
		return false
	}
	return s.PeriodEnd.Before(now)
}

// PremiumActive reports whether the account currently enjoys premium
// benefits: premium tier and not expired.
func (s *Snapshot) PremiumActive(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.Tier == model.TierPremium && !s.Expired(now)
}

// CanCreateDocument is the creation entitlement.
//
// An absent snapshot denies creation: with no facts to go on, the safe
// degradation is "no". Active premium is unlimited. Everyone else,
// including expired premium, falls through to the free-tier ceiling.
func (s *Snapshot) CanCreateDocument(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.PremiumActive(now) {
		return true
	}
	return s.DocumentCount < FreeTierDocumentLimit
}
