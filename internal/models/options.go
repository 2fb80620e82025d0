package models

import "time"

// OptionType distinguishes calls from puts.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// Moneyness classifies a strike relative to spot.
type Moneyness string

const (
	ITM Moneyness = "ITM"
	ATM Moneyness = "ATM"
	OTM Moneyness = "OTM"
)

// Greeks holds option price sensitivities. Theta is reported per
// calendar day, vega per one percentage point of volatility.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
}

// OptionQuote is an immutable priced contract, one per strike and type.
type OptionQuote struct {
	Symbol        string // e.g. BTC-4H-50000-C
	Type          OptionType
	Strike        float64
	ExpiryMinutes int
	ExpiryLabel   string
	PremiumUSD    float64 // per contract, scaled by contract size
	PremiumBTC    float64
	Greeks        Greeks // scaled by contract size
	ImpliedVol    float64
	Moneyness     Moneyness
}

// Intrinsic returns the per-unit intrinsic value of an option.
func Intrinsic(typ OptionType, spot, strike float64) float64 {
	var v float64
	if typ == Call {
		v = spot - strike
	} else {
		v = strike - spot
	}
	if v < 0 {
		return 0
	}
	return v
}

// OptionChain is an immutable snapshot of quotes for one expiry.
type OptionChain struct {
	UnderlyingPrice float64
	GeneratedAt     time.Time
	ExpiryMinutes   int
	ExpiryLabel     string
	Calls           []OptionQuote
	Puts            []OptionQuote
	VolatilityUsed  float64
	AlphaAdjusted   bool
}

// NearestQuote returns the quote whose strike is closest to the given
// strike, or nil if the side is empty or no strike is within maxDist.
func (c *OptionChain) NearestQuote(typ OptionType, strike, maxDist float64) *OptionQuote {
	quotes := c.Calls
	if typ == Put {
		quotes = c.Puts
	}
	var best *OptionQuote
	for i := range quotes {
		d := quotes[i].Strike - strike
		if d < 0 {
			d = -d
		}
		if d < maxDist {
			best = &quotes[i]
			maxDist = d
		}
	}
	return best
}
