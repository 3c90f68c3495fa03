package models

import (
	"encoding/json"
	"time"
)

// User represents a user account as returned by the identity endpoint.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Username         string    `json:"username"`
	FullName         string    `json:"full_name,omitempty"`
	CreditsBalance   int       `json:"credits_balance"`
	SubscriptionTier Tier      `json:"subscription_tier"`
	IsActive         bool      `json:"is_active"`
	IsAdmin          bool      `json:"is_admin"`
	PasswordHash     string    `json:"-"` // Never expose this to the client
	CreatedAt        time.Time `json:"created_at"`
}

// DisplayName returns the full name, falling back to the username.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Equal reports whether u and o describe the same account state. CreatedAt
// is compared as an instant, not by its location.
func (u User) Equal(o User) bool {
	return u.ID == o.ID &&
		u.Email == o.Email &&
		u.Username == o.Username &&
		u.FullName == o.FullName &&
		u.CreditsBalance == o.CreditsBalance &&
		u.SubscriptionTier == o.SubscriptionTier &&
		u.IsActive == o.IsActive &&
		u.IsAdmin == o.IsAdmin &&
		u.CreatedAt.Equal(o.CreatedAt)
}

// Tier is a subscription level. Unknown values decode to TierUnknown.
type Tier string

const (
	TierFree    Tier = "free"
	TierStarter Tier = "starter"
	TierPro     Tier = "pro"
	TierAgency  Tier = "agency"
	TierUnknown Tier = "unknown"
)

// ParseTier maps a wire value onto the closed set of tiers.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierFree, TierStarter, TierPro, TierAgency:
		return Tier(s)
	default:
		return TierUnknown
	}
}

// Label returns the human readable badge text for the tier.
func (t Tier) Label() string {
	switch t {
	case TierFree:
		return "Free"
	case TierStarter:
		return "Starter"
	case TierPro:
		return "Pro"
	case TierAgency:
		return "Agency"
	default:
		return "Unknown plan"
	}
}

// MonthlyCredits returns the credit allotment that comes with the tier.
func (t Tier) MonthlyCredits() int {
	switch t {
	case TierFree:
		return 50
	case TierStarter:
		return 500
	case TierPro:
		return 2000
	case TierAgency:
		return 10000
	default:
		return 0
	}
}

// UnmarshalJSON decodes a tier, mapping unrecognised values to TierUnknown.
func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseTier(s)
	return nil
}
