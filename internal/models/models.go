// Package models defines the core domain types for the options desk.
package models

import "time"

// PriceTick represents a single reference-price update from a feed.
type PriceTick struct {
	Symbol string
	Price  float64
	Volume float64
	Time   time.Time
	Source string
}

// VolRegime labels the current volatility regime.
type VolRegime string

const (
	RegimeLow    VolRegime = "low"
	RegimeMedium VolRegime = "medium"
	RegimeHigh   VolRegime = "high"
)

// VolatilityMetrics summarizes the estimator's view of the market.
type VolatilityMetrics struct {
	CurrentVol float64   // realized vol over the default window
	EWMAVol    float64   // exponentially weighted vol
	RegimeVol  float64   // expiry-adjusted vol at the 1h baseline
	Regime     VolRegime // low, medium, high
	Confidence float64   // 0..1, data sufficiency
	Samples    int
}

// MarketData is the snapshot consumed by the hedge strategies.
type MarketData struct {
	Spot        float64
	RealizedVol float64
	ImpliedVol  float64
	Regime      VolRegime
	Confidence  float64
	// VenuePrices and FundingRate are optional; strategies that need
	// them self-decline when absent.
	VenuePrices map[string]float64
	FundingRate float64
}

// RiskAlert describes a single portfolio risk finding.
type RiskAlert struct {
	Severity string // "high", "critical"
	Type     string // "delta_limit", "liquidation_risk"
	Message  string
}

// RiskReport is the output of a risk analysis pass.
type RiskReport struct {
	DeltaExposure float64
	Alerts        []RiskAlert
	GeneratedAt   time.Time
}

// HedgeLeg is a single option leg of a hedge recommendation.
type HedgeLeg struct {
	Type          OptionType
	Strike        float64
	ExpiryMinutes int
	Quantity      float64
	Action        string // "buy", "sell"
	Premium       float64
}

// HedgeRecommendation is a ranked hedging proposal.
type HedgeRecommendation struct {
	Strategy       string
	Confidence     float64 // always in [0,1]
	Legs           []HedgeLeg
	ExpectedCost   float64
	ExpectedReturn float64
	MaxLoss        float64
	MaxLossOpen    bool // true when the downside is unbounded
	Reasoning      string
}

// Clamp01 bounds a score to [0,1]. Strategy sub-scores are clamped
// before weighting so composite confidence stays in range.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// TimeRemaining returns the non-negative duration until expiry.
func TimeRemaining(expiry, now time.Time) time.Duration {
	if now.After(expiry) {
		return 0
	}
	return expiry.Sub(now)
}
