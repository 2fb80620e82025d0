package hedge

import (
	"fmt"
	"math"

	"atticus-desk/internal/models"
)

const (
	// Net delta past which the book counts as meaningfully directional.
	protectiveThreshold = 0.1

	protectiveExpiryMinutes = 240
)

// ProtectivePut buys downside protection when the book is net long.
type ProtectivePut struct {
	quoter Quoter
}

func (s *ProtectivePut) Name() string { return "protective_put" }

func (s *ProtectivePut) Analyze(md models.MarketData, pf *models.PortfolioSummary) (*models.HedgeRecommendation, error) {
	if pf == nil || md.Spot <= 0 {
		return nil, nil
	}
	if pf.NetDelta <= protectiveThreshold {
		return nil, nil
	}

	quote, err := s.quoter.Quote(models.Put, md.Spot, protectiveExpiryMinutes)
	if err != nil {
		return nil, err
	}
	qty := pf.NetDelta
	cost := quote.PremiumUSD * qty

	confidence := 0.8*0.7 + math.Min(pf.NetDelta/0.5, 1)*0.2 + md.Confidence*0.1

	return &models.HedgeRecommendation{
		Strategy:   s.Name(),
		Confidence: confidence,
		Legs: []models.HedgeLeg{{
			Type:          models.Put,
			Strike:        quote.Strike,
			ExpiryMinutes: protectiveExpiryMinutes,
			Quantity:      qty,
			Action:        "buy",
			Premium:       quote.PremiumUSD,
		}},
		ExpectedCost: cost,
		MaxLoss:      cost,
		Reasoning:    fmt.Sprintf("protect net long exposure of %.2f delta against downside", pf.NetDelta),
	}, nil
}

// ProtectiveCall buys upside protection when the book is net short.
type ProtectiveCall struct {
	quoter Quoter
}

func (s *ProtectiveCall) Name() string { return "protective_call" }

func (s *ProtectiveCall) Analyze(md models.MarketData, pf *models.PortfolioSummary) (*models.HedgeRecommendation, error) {
	if pf == nil || md.Spot <= 0 {
		return nil, nil
	}
	if pf.NetDelta >= -protectiveThreshold {
		return nil, nil
	}

	quote, err := s.quoter.Quote(models.Call, md.Spot, protectiveExpiryMinutes)
	if err != nil {
		return nil, err
	}
	qty := math.Abs(pf.NetDelta)
	cost := quote.PremiumUSD * qty

	confidence := 0.8*0.7 + math.Min(qty/0.5, 1)*0.2 + md.Confidence*0.1

	return &models.HedgeRecommendation{
		Strategy:   s.Name(),
		Confidence: confidence,
		Legs: []models.HedgeLeg{{
			Type:          models.Call,
			Strike:        quote.Strike,
			ExpiryMinutes: protectiveExpiryMinutes,
			Quantity:      qty,
			Action:        "buy",
			Premium:       quote.PremiumUSD,
		}},
		ExpectedCost: cost,
		MaxLoss:      cost,
		Reasoning:    fmt.Sprintf("protect net short exposure of %.2f delta against upside", pf.NetDelta),
	}, nil
}
