package domain

import "time"

type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

func ParseTier(s string) (Tier, bool) {
	switch Tier(s) {
	case TierFree, TierBasic, TierPremium:
		return Tier(s), true
	default:
		return "", false
	}
}

func (t Tier) rank() int {
	switch t {
	case TierBasic:
		return 1
	case TierPremium:
		return 2
	default:
		return 0
	}
}

// AtLeast reports whether t grants everything other does. The tier
// order is total: free < basic < premium.
func (t Tier) AtLeast(other Tier) bool {
	return t.rank() >= other.rank()
}

// TierForProduct maps a one-time-payment product identifier to the
// membership tier it purchases.
func TierForProduct(product string) (Tier, bool) {
	switch product {
	case "yearly_basic":
		return TierBasic, true
	case "yearly_premium":
		return TierPremium, true
	default:
		return "", false
	}
}

// MembershipProfile is the entitlement record mutated exclusively by
// webhook reconciliation. PurchasedHubs grows monotonically; hub
// purchases are never revoked here.
type MembershipProfile struct {
	UserID           string     `json:"user_id"`
	Tier             Tier       `json:"tier"`
	MembershipStart  *time.Time `json:"membership_start,omitempty"`
	MembershipExpiry *time.Time `json:"membership_expiry,omitempty"`
	StripeCustomerID string     `json:"stripe_customer_id,omitempty"`
	PurchasedHubs    []string   `json:"purchased_hubs"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// HasHub reports whether the profile already owns the given add-on hub.
func (p *MembershipProfile) HasHub(slug string) bool {
	for _, h := range p.PurchasedHubs {
		if h == slug {
			return true
		}
	}
	return false
}
