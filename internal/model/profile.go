package model

import "time"

// Tier is the subscription class of an account. It decides the quota policy
// applied to document creation.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Valid reports whether t is one of the known subscription tiers.
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPremium
}

// Profile is a user account row: identity plus the subscription facts the
// entitlement layer snapshots.
//
// DocumentCount is a maintained counter, not a source of truth. The
// repository keeps it equal to the authoritative COUNT of the user's
// documents inside the same transaction as every insert and delete, so a
// snapshot taken after a refresh always reflects the real count.
//
// SubscriptionStart and SubscriptionEnd are pointers because free accounts
// have no billing period; nil means "not set".
type Profile struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	FullName          string     `json:"fullName"`
	SubscriptionTier  Tier       `json:"subscriptionTier"`
	SubscriptionStart *time.Time `json:"subscriptionStart,omitempty"`
	SubscriptionEnd   *time.Time `json:"subscriptionEnd,omitempty"`
	DocumentCount     int        `json:"documentCount"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}
