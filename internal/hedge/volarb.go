package hedge

import (
	"fmt"
	"math"

	"atticus-desk/internal/models"
)

const (
	// Minimum IV-vs-RV spread, as a fraction of realized vol, before
	// a volatility trade is worth the carry.
	minVolSpreadPct = 0.10

	volArbExpiry = 480

	calendarNearExpiry = 120
	calendarFarExpiry  = 720
	normalTermSpread   = 0.05
	minTermAnomaly     = 0.03
)

// VolArbitrage trades the spread between implied and realized vol:
// selling a strangle when options look rich, buying a straddle when
// they look cheap.
type VolArbitrage struct {
	quoter Quoter
}

func (s *VolArbitrage) Name() string { return "vol_arbitrage" }

func (s *VolArbitrage) Analyze(md models.MarketData, pf *models.PortfolioSummary) (*models.HedgeRecommendation, error) {
	if md.Spot <= 0 || md.RealizedVol <= 0 || md.ImpliedVol <= 0 {
		return nil, nil
	}

	spread := md.ImpliedVol - md.RealizedVol
	spreadPct := spread / md.RealizedVol
	if math.Abs(spreadPct) < minVolSpreadPct {
		return nil, nil
	}

	spreadScore := math.Min(math.Abs(spreadPct)/0.3, 1)

	if spread > 0 {
		// Options rich: sell a 5% OTM strangle.
		call, err := s.quoter.Quote(models.Call, md.Spot*1.05, volArbExpiry)
		if err != nil {
			return nil, err
		}
		put, err := s.quoter.Quote(models.Put, md.Spot*0.95, volArbExpiry)
		if err != nil {
			return nil, err
		}
		income := call.PremiumUSD + put.PremiumUSD

		return &models.HedgeRecommendation{
			Strategy:   s.Name(),
			Confidence: 0.7*0.6 + spreadScore*0.3 + md.Confidence*0.1,
			Legs: []models.HedgeLeg{
				{Type: models.Call, Strike: call.Strike, ExpiryMinutes: volArbExpiry,
					Quantity: 1, Action: "sell", Premium: call.PremiumUSD},
				{Type: models.Put, Strike: put.Strike, ExpiryMinutes: volArbExpiry,
					Quantity: 1, Action: "sell", Premium: put.PremiumUSD},
			},
			ExpectedCost:   -income,
			ExpectedReturn: income,
			MaxLossOpen:    true,
			Reasoning: fmt.Sprintf("sell vol: IV %.2f vs RV %.2f (%.0f%% rich)",
				md.ImpliedVol, md.RealizedVol, spreadPct*100),
		}, nil
	}

	// Options cheap: buy an ATM straddle.
	call, err := s.quoter.Quote(models.Call, md.Spot, volArbExpiry)
	if err != nil {
		return nil, err
	}
	put, err := s.quoter.Quote(models.Put, md.Spot, volArbExpiry)
	if err != nil {
		return nil, err
	}
	cost := call.PremiumUSD + put.PremiumUSD

	return &models.HedgeRecommendation{
		Strategy:   s.Name(),
		Confidence: 0.8*0.6 + spreadScore*0.3 + md.Confidence*0.1,
		Legs: []models.HedgeLeg{
			{Type: models.Call, Strike: call.Strike, ExpiryMinutes: volArbExpiry,
				Quantity: 1, Action: "buy", Premium: call.PremiumUSD},
			{Type: models.Put, Strike: put.Strike, ExpiryMinutes: volArbExpiry,
				Quantity: 1, Action: "buy", Premium: put.PremiumUSD},
		},
		ExpectedCost:   cost,
		ExpectedReturn: cost * math.Abs(spread) / md.ImpliedVol * 2,
		MaxLoss:        cost,
		Reasoning: fmt.Sprintf("buy vol: IV %.2f vs RV %.2f (%.0f%% cheap)",
			md.ImpliedVol, md.RealizedVol, math.Abs(spreadPct)*100),
	}, nil
}

// CalendarArbitrage trades anomalies in the vol term structure between
// the nearest and furthest listed expiries.
type CalendarArbitrage struct {
	quoter Quoter
}

func (s *CalendarArbitrage) Name() string { return "calendar_arbitrage" }

func (s *CalendarArbitrage) Analyze(md models.MarketData, pf *models.PortfolioSummary) (*models.HedgeRecommendation, error) {
	if md.Spot <= 0 {
		return nil, nil
	}

	nearVol := s.quoter.ExpiryVol(calendarNearExpiry)
	farVol := s.quoter.ExpiryVol(calendarFarExpiry)
	if nearVol <= 0 || farVol <= 0 {
		return nil, nil
	}

	anomaly := (nearVol - farVol) - normalTermSpread
	if math.Abs(anomaly) < minTermAnomaly {
		return nil, nil
	}

	near, err := s.quoter.Quote(models.Call, md.Spot, calendarNearExpiry)
	if err != nil {
		return nil, err
	}
	far, err := s.quoter.Quote(models.Call, md.Spot, calendarFarExpiry)
	if err != nil {
		return nil, err
	}

	var legs []models.HedgeLeg
	var netCost float64
	var direction string
	if anomaly > 0 {
		// Near vol too rich: sell near, buy far.
		legs = []models.HedgeLeg{
			{Type: models.Call, Strike: near.Strike, ExpiryMinutes: calendarNearExpiry,
				Quantity: 1, Action: "sell", Premium: near.PremiumUSD},
			{Type: models.Call, Strike: far.Strike, ExpiryMinutes: calendarFarExpiry,
				Quantity: 1, Action: "buy", Premium: far.PremiumUSD},
		}
		netCost = far.PremiumUSD - near.PremiumUSD
		direction = "sell near, buy far"
	} else {
		legs = []models.HedgeLeg{
			{Type: models.Call, Strike: near.Strike, ExpiryMinutes: calendarNearExpiry,
				Quantity: 1, Action: "buy", Premium: near.PremiumUSD},
			{Type: models.Call, Strike: far.Strike, ExpiryMinutes: calendarFarExpiry,
				Quantity: 1, Action: "sell", Premium: far.PremiumUSD},
		}
		netCost = near.PremiumUSD - far.PremiumUSD
		direction = "buy near, sell far"
	}

	expectedReturn := math.Abs(anomaly) * md.Spot * 0.1

	return &models.HedgeRecommendation{
		Strategy:       s.Name(),
		Confidence:     math.Min(math.Abs(anomaly)/0.1*0.7+0.2, 0.9),
		Legs:           legs,
		ExpectedCost:   math.Max(netCost, 0),
		ExpectedReturn: expectedReturn,
		MaxLoss:        math.Abs(netCost) + expectedReturn*0.5,
		Reasoning: fmt.Sprintf("term structure %s: near vol %.2f vs far vol %.2f, anomaly %.3f",
			direction, nearVol, farVol, anomaly),
	}, nil
}
