package domain

// SessionType describes one bookable offering. Duration and price here
// are authoritative; anything a client submits is ignored.
type SessionType struct {
	ID              string `json:"id"`
	Label           string `json:"label"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	RequiresPayment bool   `json:"requires_payment"`
	PremiumCredit   bool   `json:"premium_credit"`
}

// Catalog is the session-type reference data, keyed by identifier.
// Injected rather than read from package state so tests can substitute
// alternate catalogs.
type Catalog map[string]SessionType

func (c Catalog) Lookup(id string) (SessionType, bool) {
	st, ok := c[id]
	return st, ok
}

func DefaultCatalog() Catalog {
	return Catalog{
		"discovery": {
			ID:              "discovery",
			Label:           "Discovery Call",
			DurationMinutes: 30,
			PriceCents:      0,
		},
		"one_on_one": {
			ID:              "one_on_one",
			Label:           "1:1 Coaching Session",
			DurationMinutes: 60,
			PriceCents:      10700,
			RequiresPayment: true,
		},
		"family": {
			ID:              "family",
			Label:           "Family Session",
			DurationMinutes: 90,
			PriceCents:      12700,
			RequiresPayment: true,
		},
		"endometriosis_support": {
			ID:              "endometriosis_support",
			Label:           "Endometriosis Support Session",
			DurationMinutes: 180,
			PriceCents:      14700,
			RequiresPayment: true,
		},
		"premium_consultation": {
			ID:              "premium_consultation",
			Label:           "Premium Consultation",
			DurationMinutes: 60,
			PriceCents:      8700,
			RequiresPayment: true,
			PremiumCredit:   true,
		},
	}
}
