// Package pricing produces Black-Scholes option chains with greeks.
package pricing

import (
	"math"

	"atticus-desk/internal/models"
)

const (
	sigmaFloorTrigger = 1e-6
	sigmaFloor        = 1e-4
	timeFloor         = 1e-9
	premiumFloor      = 1e-8
)

func stdNormCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func stdNormPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// BlackScholes prices a European option and computes its greeks.
// Degenerate inputs are absorbed rather than raised: non-positive
// S, K or T yield a zero premium with zero greeks; sigma and T are
// floored for stability; if sigma*sqrt(T) still vanishes the intrinsic
// value is returned with a moneyness-determined delta. Theta is per
// calendar day, vega per one percentage point of volatility. The
// premium is floored at 1e-8.
func BlackScholes(S, K, T, r, sigma float64, typ models.OptionType) (float64, models.Greeks) {
	if S <= 0 || K <= 0 || T <= 0 {
		return 0, models.Greeks{}
	}

	if sigma <= sigmaFloorTrigger {
		sigma = sigmaFloor
	}
	if T < timeFloor {
		T = timeFloor
	}

	sigSqrtT := sigma * math.Sqrt(T)
	if sigSqrtT == 0 {
		premium := models.Intrinsic(typ, S, K)
		var delta float64
		if typ == models.Call && S > K {
			delta = 1
		} else if typ == models.Put && K > S {
			delta = -1
		}
		return premium, models.Greeks{Delta: delta}
	}

	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / sigSqrtT
	d2 := d1 - sigSqrtT

	pdfD1 := stdNormPDF(d1)
	discount := K * math.Exp(-r*T)

	var premium, delta, thetaCarry float64
	if typ == models.Call {
		premium = S*stdNormCDF(d1) - discount*stdNormCDF(d2)
		delta = stdNormCDF(d1)
		thetaCarry = -r * discount * stdNormCDF(d2)
	} else {
		premium = discount*stdNormCDF(-d2) - S*stdNormCDF(-d1)
		delta = stdNormCDF(d1) - 1
		thetaCarry = r * discount * stdNormCDF(-d2)
	}

	gamma := pdfD1 / (S * sigSqrtT)
	thetaAnnual := -(S*pdfD1*sigma)/(2*math.Sqrt(T)) + thetaCarry
	vega := S * pdfD1 * math.Sqrt(T)

	if premium < premiumFloor {
		premium = premiumFloor
	}

	return premium, models.Greeks{
		Delta: delta,
		Gamma: gamma,
		Theta: thetaAnnual / 365.25,
		Vega:  vega / 100,
	}
}
