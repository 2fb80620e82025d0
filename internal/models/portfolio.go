package models

import "time"

// PositionDetail is the per-position view inside a portfolio summary.
// MaxProfitOpen/MaxLossOpen flag outcomes with no upper bound (short
// calls on the loss side, long calls on the profit side).
type PositionDetail struct {
	PositionID    string
	Side          PositionSide
	Type          OptionType
	Strike        float64
	Quantity      float64
	EntryPremium  float64
	EntrySpot     float64
	CurrentValue  float64
	PnL           float64
	PnLPercent    float64
	Breakeven     float64
	MaxProfit     float64
	MaxProfitOpen bool
	MaxLoss       float64
	MaxLossOpen   bool
	TimeRemaining time.Duration
	ExpiryTime    time.Time
	Greeks        Greeks
}

// PortfolioSummary is a copy-on-read snapshot of one account.
type PortfolioSummary struct {
	AccountID      string
	BalanceBTC     float64
	BalanceUSD     float64
	PortfolioValue float64
	TotalPnL       float64
	NetDelta       float64
	Positions      []PositionDetail
	UpdatedAt      time.Time
}

// PlatformRisk aggregates exposure across every account.
type PlatformRisk struct {
	OpenPositions int
	TotalExposure float64
	NetDelta      float64
}
