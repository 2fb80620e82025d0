package models

import "time"

// OrderSide represents the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus represents order lifecycle state. Transitions are
// monotone: pending moves to filled or rejected and never back.
type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderFilled   OrderStatus = "filled"
	OrderRejected OrderStatus = "rejected"
)

// Order is a request to buy or sell option contracts.
type Order struct {
	ID            string
	AccountID     string
	Symbol        string
	Side          OrderSide
	Type          OptionType
	Strike        float64
	ExpiryMinutes int
	Quantity      float64
	PremiumPer    float64 // quoted premium per contract at order time
	TotalPremium  float64
	Greeks        Greeks
	Status        OrderStatus
	Reason        string // populated on rejection
	PlacedAt      time.Time
}
