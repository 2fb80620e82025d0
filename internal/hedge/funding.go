package hedge

import (
	"fmt"
	"math"

	"atticus-desk/internal/models"
)

const (
	minFundingRate    = 0.0001
	venueFeeRate      = 0.001
	venueTransferCost = 50.0
	minVenueMargin    = 0.001
)

// FundingArbitrage looks for carry outside the options book: a price
// gap between venues, or a perp funding rate worth collecting. Both
// inputs are optional market data; without either the strategy
// declines.
type FundingArbitrage struct{}

func (s *FundingArbitrage) Name() string { return "funding_arbitrage" }

func (s *FundingArbitrage) Analyze(md models.MarketData, pf *models.PortfolioSummary) (*models.HedgeRecommendation, error) {
	if md.Spot <= 0 {
		return nil, nil
	}
	if len(md.VenuePrices) >= 2 {
		if rec := s.crossVenue(md); rec != nil {
			return rec, nil
		}
	}
	return s.fundingCarry(md), nil
}

func (s *FundingArbitrage) crossVenue(md models.MarketData) *models.HedgeRecommendation {
	var bestBuy, bestSell string
	var bestProfit float64

	for buyVenue, buyPrice := range md.VenuePrices {
		for sellVenue, sellPrice := range md.VenuePrices {
			if buyVenue == sellVenue || buyPrice <= 0 {
				continue
			}
			net := (sellPrice - buyPrice) - buyPrice*venueFeeRate - sellPrice*venueFeeRate - venueTransferCost
			if net <= bestProfit || net/buyPrice <= minVenueMargin {
				continue
			}
			bestProfit = net
			bestBuy = buyVenue
			bestSell = sellVenue
		}
	}
	if bestBuy == "" {
		return nil
	}

	buyPrice := md.VenuePrices[bestBuy]
	margin := bestProfit / buyPrice
	confidence := math.Min(margin/0.01, 1)*0.4 + math.Min(bestProfit/100, 1)*0.3 + 0.85*0.3

	return &models.HedgeRecommendation{
		Strategy:       s.Name(),
		Confidence:     confidence,
		ExpectedCost:   buyPrice,
		ExpectedReturn: bestProfit,
		MaxLoss:        buyPrice * 0.02,
		Reasoning: fmt.Sprintf("buy on %s at %.2f, sell on %s at %.2f, net $%.2f after fees",
			bestBuy, buyPrice, bestSell, md.VenuePrices[bestSell], bestProfit),
	}
}

func (s *FundingArbitrage) fundingCarry(md models.MarketData) *models.HedgeRecommendation {
	if math.Abs(md.FundingRate) < minFundingRate {
		return nil
	}

	direction := "short perp, long spot"
	if md.FundingRate < 0 {
		direction = "long perp, short spot"
	}

	// Funding settles every 8 hours.
	dailyRate := math.Abs(md.FundingRate) * 3
	dailyIncome := dailyRate * md.Spot

	confidence := math.Min(math.Abs(md.FundingRate)/0.005, 1)*0.5 +
		math.Min(dailyRate*365/0.5, 1)*0.2 + 0.6*0.3

	return &models.HedgeRecommendation{
		Strategy:       s.Name(),
		Confidence:     confidence,
		ExpectedCost:   md.Spot,
		ExpectedReturn: dailyIncome,
		MaxLoss:        md.Spot * 0.005,
		Reasoning: fmt.Sprintf("%s to collect %.4f%% funding, est $%.2f/day",
			direction, md.FundingRate*100, dailyIncome),
	}
}
