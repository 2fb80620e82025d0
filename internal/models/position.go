package models

import "time"

// PositionSide represents the direction of an open option position.
type PositionSide string

const (
	Long  PositionSide = "long"
	Short PositionSide = "short"
)

// PositionStatus represents position lifecycle state. Open positions are
// re-marked every cycle; settled and closed are terminal.
type PositionStatus string

const (
	PositionOpen    PositionStatus = "open"
	PositionSettled PositionStatus = "settled"
	PositionClosed  PositionStatus = "closed"
)

// Position is a filled, live option contract held by one account.
// Quantity is always positive; direction is carried by Side. For short
// positions EntryPremium is stored negative (credit received), which
// lets both sides share one signed P&L subtraction.
type Position struct {
	ID            string
	AccountID     string
	Symbol        string
	Side          PositionSide
	Type          OptionType
	Strike        float64
	ExpiryMinutes int
	ExpiryTime    time.Time
	Quantity      float64
	EntryPremium  float64
	EntrySpot     float64
	Leverage      float64 // 1 for plain option positions
	MarkValue     float64
	PnL           float64
	Greeks        Greeks
	Status        PositionStatus
	OpenedAt      time.Time
}

// Expired reports whether the position's expiry has passed.
func (p *Position) Expired(now time.Time) bool {
	return !now.Before(p.ExpiryTime)
}

// AbsPremium returns the magnitude of the entry premium.
func (p *Position) AbsPremium() float64 {
	if p.EntryPremium < 0 {
		return -p.EntryPremium
	}
	return p.EntryPremium
}

// Account holds one user's balance and open positions. The balance is
// denominated in BTC; USD equivalents are derived at the current spot.
type Account struct {
	ID         string
	BalanceBTC float64
	Positions  []Position
	History    []Order
	CreatedAt  time.Time
}
