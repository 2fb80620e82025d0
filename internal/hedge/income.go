package hedge

import (
	"fmt"
	"math"

	"atticus-desk/internal/models"
)

// ThetaFarm sells an ATM straddle to harvest time decay. Higher
// volatility pushes the expiry shorter so the premium is captured
// before the regime can turn.
type ThetaFarm struct {
	quoter Quoter
}

func (s *ThetaFarm) Name() string { return "theta_farming" }

func (s *ThetaFarm) Analyze(md models.MarketData, pf *models.PortfolioSummary) (*models.HedgeRecommendation, error) {
	if md.Spot <= 0 || md.RealizedVol <= 0 {
		return nil, nil
	}

	expiry := 720
	switch {
	case md.RealizedVol > 1.0:
		expiry = 240
	case md.RealizedVol > 0.7:
		expiry = 480
	}

	call, err := s.quoter.Quote(models.Call, md.Spot, expiry)
	if err != nil {
		return nil, err
	}
	put, err := s.quoter.Quote(models.Put, md.Spot, expiry)
	if err != nil {
		return nil, err
	}

	premium := call.PremiumUSD + put.PremiumUSD
	if premium <= 0 {
		return nil, nil
	}
	totalTheta := math.Abs(call.Greeks.Theta + put.Greeks.Theta)

	thetaEfficiency := totalTheta / premium
	stability := 1 - math.Min(md.RealizedVol/1.5, 1)
	confidence := math.Min(thetaEfficiency/0.05, 1)*0.5 + stability*0.3 + md.Confidence*0.2

	return &models.HedgeRecommendation{
		Strategy:   s.Name(),
		Confidence: confidence,
		Legs: []models.HedgeLeg{
			{Type: models.Call, Strike: call.Strike, ExpiryMinutes: expiry,
				Quantity: 1, Action: "sell", Premium: call.PremiumUSD},
			{Type: models.Put, Strike: put.Strike, ExpiryMinutes: expiry,
				Quantity: 1, Action: "sell", Premium: put.PremiumUSD},
		},
		ExpectedCost:   -premium,
		ExpectedReturn: premium,
		MaxLossOpen:    true, // short call side is uncapped
		Reasoning: fmt.Sprintf("sell ATM straddle at %dm expiry for $%.2f premium, daily theta $%.2f",
			expiry, premium, totalTheta),
	}, nil
}
