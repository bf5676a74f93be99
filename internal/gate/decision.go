// Package gate implements the traffic-gating core: the pure decision engine,
// the JavaScript response synthesizer, and the HTTP edge handler that ties
// them to the configuration store and the audit log.
package gate

import "github.com/clowiza/backend/internal/visitor"

// Outcome is the binary routing result of one evaluation.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeBlock Outcome = "block"
)

// Classification is the specific reason code behind an outcome. It is kept
// distinct from Outcome because the dashboard analytics and the audit log
// both need the cause, not just the result.
type Classification string

const (
	ClassAllow       Classification = "allow"
	ClassBlockGeo    Classification = "block_geo"
	ClassBlockDevice Classification = "block_device"
)

// Config is one merchant's protection rule as stored in clowiza_links.
// Read-only from the service's perspective; the dashboard owns its lifecycle.
type Config struct {
	ID        string `json:"id"`
	OfferPage string `json:"offer_page"`
	SafePage  string `json:"safe_page"`
	IsActive  bool   `json:"is_active"`
}

// Policy holds the service-wide gating constants. The values are fixed by
// product policy rather than configurable per gate, but they are named and
// overridable here so a deployment can tune them without touching code.
type Policy struct {
	// AllowedCountry is the single country code that passes the geo check.
	AllowedCountry string
	// MobileTokens is the user-agent substring set that passes the device check.
	MobileTokens []string
	// IDPrefix is the literal tag stripped from the id query parameter
	// before the configuration lookup.
	IDPrefix string
}

// DefaultPolicy returns the shipped gating constants.
func DefaultPolicy() Policy {
	return Policy{
		AllowedCountry: "AO",
		MobileTokens:   visitor.DefaultMobileTokens,
		IDPrefix:       "kwzw_",
	}
}

// Decision is the output of one evaluation.
type Decision struct {
	Outcome        Outcome
	Classification Classification
	Destination    string
}

// Decide evaluates a visitor profile against a gate configuration. Pure and
// deterministic: same inputs always produce the same decision.
//
// The rules run in a fixed order and the first match wins. Geography is
// checked before device class so that a desktop visitor from outside the
// allowed country is reported under block_geo, not block_device — operators
// expect foreign traffic and desktop scraping as separate buckets. Swapping
// the order would change the logged classification for visitors failing both
// checks, so it must stay as is.
func Decide(profile visitor.Profile, cfg Config, pol Policy) Decision {
	if !cfg.IsActive {
		return Decision{OutcomeAllow, ClassAllow, cfg.OfferPage}
	}
	if profile.Country != pol.AllowedCountry {
		return Decision{OutcomeBlock, ClassBlockGeo, cfg.SafePage}
	}
	if !profile.IsMobile {
		return Decision{OutcomeBlock, ClassBlockDevice, cfg.SafePage}
	}
	return Decision{OutcomeAllow, ClassAllow, cfg.OfferPage}
}
