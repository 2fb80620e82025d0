package hedge

import (
	"fmt"
	"math"

	"atticus-desk/internal/models"
)

const (
	deltaTolerance     = 0.05
	deltaHedgeExpiry   = 360 // minutes; medium-term for hedge stability
	gammaScalpExpiry   = 240
	minScalpableGamma  = 0.01
	gammaTargetCeiling = 0.2
)

// netGreeks aggregates the book's greeks with long positive, short
// negative, the same sign convention as delta exposure.
func netGreeks(pf *models.PortfolioSummary) models.Greeks {
	var g models.Greeks
	for _, p := range pf.Positions {
		sign := 1.0
		if p.Side == models.Short {
			sign = -1
		}
		g.Delta += sign * p.Greeks.Delta * p.Quantity
		g.Gamma += sign * p.Greeks.Gamma * p.Quantity
		g.Theta += sign * p.Greeks.Theta * p.Quantity
		g.Vega += sign * p.Greeks.Vega * p.Quantity
	}
	return g
}

// DeltaNeutral neutralizes directional exposure with the cheaper of
// the two ATM legs pointing the right way: buying one side versus
// selling the other.
type DeltaNeutral struct {
	quoter Quoter
}

func (s *DeltaNeutral) Name() string { return "delta_neutral" }

func (s *DeltaNeutral) Analyze(md models.MarketData, pf *models.PortfolioSummary) (*models.HedgeRecommendation, error) {
	if pf == nil || md.Spot <= 0 {
		return nil, nil
	}
	deviation := math.Abs(pf.NetDelta)
	if deviation < deltaTolerance {
		return nil, nil
	}

	call, err := s.quoter.Quote(models.Call, md.Spot, deltaHedgeExpiry)
	if err != nil {
		return nil, err
	}
	put, err := s.quoter.Quote(models.Put, md.Spot, deltaHedgeExpiry)
	if err != nil {
		return nil, err
	}
	if call.Greeks.Delta <= 0 || put.Greeks.Delta >= 0 {
		return nil, fmt.Errorf("degenerate hedge deltas: call %.4f put %.4f", call.Greeks.Delta, put.Greeks.Delta)
	}

	hedgeNeeded := -pf.NetDelta

	var leg models.HedgeLeg
	var cost float64
	if hedgeNeeded > 0 {
		// Buy calls or sell puts; take the cheaper carry.
		buyQty := hedgeNeeded / call.Greeks.Delta
		sellQty := hedgeNeeded / -put.Greeks.Delta
		if buyQty*call.PremiumUSD < sellQty*put.PremiumUSD {
			leg = models.HedgeLeg{Type: models.Call, Strike: call.Strike, ExpiryMinutes: deltaHedgeExpiry,
				Quantity: buyQty, Action: "buy", Premium: call.PremiumUSD}
			cost = buyQty * call.PremiumUSD
		} else {
			leg = models.HedgeLeg{Type: models.Put, Strike: put.Strike, ExpiryMinutes: deltaHedgeExpiry,
				Quantity: sellQty, Action: "sell", Premium: put.PremiumUSD}
			cost = -sellQty * put.PremiumUSD
		}
	} else {
		buyQty := -hedgeNeeded / -put.Greeks.Delta
		sellQty := -hedgeNeeded / call.Greeks.Delta
		if buyQty*put.PremiumUSD < sellQty*call.PremiumUSD {
			leg = models.HedgeLeg{Type: models.Put, Strike: put.Strike, ExpiryMinutes: deltaHedgeExpiry,
				Quantity: buyQty, Action: "buy", Premium: put.PremiumUSD}
			cost = buyQty * put.PremiumUSD
		} else {
			leg = models.HedgeLeg{Type: models.Call, Strike: call.Strike, ExpiryMinutes: deltaHedgeExpiry,
				Quantity: sellQty, Action: "sell", Premium: call.PremiumUSD}
			cost = -sellQty * call.PremiumUSD
		}
	}

	urgency := math.Min(deviation/0.5, 1)
	costEfficiency := 1 - math.Min(math.Abs(cost)/(md.Spot*0.02), 1)
	confidence := 0.9*0.4 + urgency*0.3 + costEfficiency*0.3

	rec := &models.HedgeRecommendation{
		Strategy:     s.Name(),
		Confidence:   confidence,
		Legs:         []models.HedgeLeg{leg},
		ExpectedCost: math.Max(cost, 0),
		MaxLoss:      math.Abs(cost),
		Reasoning: fmt.Sprintf("%s %.4f %ss to offset net delta %.4f",
			leg.Action, leg.Quantity, leg.Type, pf.NetDelta),
	}
	if leg.Action == "sell" {
		rec.MaxLossOpen = leg.Type == models.Call
		if leg.Type == models.Put {
			rec.MaxLoss = leg.Strike*leg.Quantity - leg.Premium*leg.Quantity
		}
	}
	return rec, nil
}

// GammaScalp adds ATM straddles when the book already carries positive
// gamma worth scalping, sized toward a target gamma exposure.
type GammaScalp struct {
	quoter Quoter
}

func (s *GammaScalp) Name() string { return "gamma_scalping" }

func (s *GammaScalp) Analyze(md models.MarketData, pf *models.PortfolioSummary) (*models.HedgeRecommendation, error) {
	if pf == nil || md.Spot <= 0 {
		return nil, nil
	}
	bookGamma := netGreeks(pf).Gamma
	if bookGamma < minScalpableGamma {
		return nil, nil
	}

	call, err := s.quoter.Quote(models.Call, md.Spot, gammaScalpExpiry)
	if err != nil {
		return nil, err
	}
	put, err := s.quoter.Quote(models.Put, md.Spot, gammaScalpExpiry)
	if err != nil {
		return nil, err
	}

	straddleGamma := call.Greeks.Gamma + put.Greeks.Gamma
	if straddleGamma <= 0 {
		return nil, nil
	}
	straddleCost := call.PremiumUSD + put.PremiumUSD

	targetGamma := math.Max(0.1, bookGamma*1.5)
	contracts := (targetGamma - bookGamma) / straddleGamma
	if contracts <= 0 {
		return nil, nil
	}
	totalCost := straddleCost * contracts

	// Expected scalping P&L: gamma profit over assumed intraday moves
	// against the straddle's theta bleed.
	dailyVol := md.RealizedVol / math.Sqrt(365)
	movesPerDay := 8.0
	avgMove := dailyVol * md.Spot / math.Sqrt(movesPerDay)
	gammaProfit := 0.5 * straddleGamma * contracts * avgMove * avgMove * movesPerDay
	thetaCost := math.Abs(call.Greeks.Theta+put.Greeks.Theta) * contracts
	netDaily := gammaProfit - thetaCost

	efficiency := 0.0
	if thetaCost > 0 {
		efficiency = gammaProfit / thetaCost
	}
	confidence := math.Min(efficiency/1.2, 1)*0.4 +
		math.Min(md.RealizedVol, 1)*0.3 +
		math.Min(targetGamma/gammaTargetCeiling, 1)*0.3

	return &models.HedgeRecommendation{
		Strategy:   s.Name(),
		Confidence: confidence,
		Legs: []models.HedgeLeg{
			{Type: models.Call, Strike: call.Strike, ExpiryMinutes: gammaScalpExpiry,
				Quantity: contracts, Action: "buy", Premium: call.PremiumUSD},
			{Type: models.Put, Strike: put.Strike, ExpiryMinutes: gammaScalpExpiry,
				Quantity: contracts, Action: "buy", Premium: put.PremiumUSD},
		},
		ExpectedCost:   totalCost,
		ExpectedReturn: math.Max(netDaily, 0),
		MaxLoss:        totalCost,
		Reasoning: fmt.Sprintf("scalp %.2f ATM straddles toward %.3f gamma, est net daily $%.2f",
			contracts, targetGamma, netDaily),
	}, nil
}
