package risk

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	"atticus-desk/internal/config"
	"atticus-desk/internal/models"
)

// fakeBook serves a fixed open book to the engine.
type fakeBook struct {
	positions []models.Position
}

func (b *fakeBook) OpenPositions() []models.Position {
	return b.positions
}

func newTestEngine(positions []models.Position) *Engine {
	return NewEngine(config.Default(), &fakeBook{positions: positions}, zerolog.Nop())
}

func TestAnalyzeEmptyBook(t *testing.T) {
	report := newTestEngine(nil).Analyze(50000)

	if report.DeltaExposure != 0 {
		t.Errorf("delta exposure = %f, want 0", report.DeltaExposure)
	}
	if len(report.Alerts) != 0 {
		t.Errorf("alerts = %d, want 0", len(report.Alerts))
	}
	if report.GeneratedAt.IsZero() {
		t.Error("report missing timestamp")
	}
}

func TestAnalyzeDeltaExposureSignsBySide(t *testing.T) {
	e := newTestEngine([]models.Position{
		{ID: "p1", Side: models.Long, Quantity: 2, Greeks: models.Greeks{Delta: 0.05}, Leverage: 1},
		{ID: "p2", Side: models.Short, Quantity: 1, Greeks: models.Greeks{Delta: 0.04}, Leverage: 1},
	})

	report := e.Analyze(50000)

	want := 0.05*2 - 0.04*1
	if math.Abs(report.DeltaExposure-want) > 1e-12 {
		t.Errorf("delta exposure = %f, want %f", report.DeltaExposure, want)
	}
	if len(report.Alerts) != 0 {
		t.Errorf("alerts = %d, want 0 below limit", len(report.Alerts))
	}
}

func TestAnalyzeDeltaLimitAlert(t *testing.T) {
	e := newTestEngine([]models.Position{
		{ID: "p1", Side: models.Long, Quantity: 1, Greeks: models.Greeks{Delta: 0.5}, Leverage: 1},
	})

	report := e.Analyze(50000)

	if len(report.Alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(report.Alerts))
	}
	alert := report.Alerts[0]
	if alert.Type != "delta_limit" {
		t.Errorf("alert type = %s, want delta_limit", alert.Type)
	}
	if alert.Severity != "high" {
		t.Errorf("alert severity = %s, want high", alert.Severity)
	}
}

func TestLiquidationPrice(t *testing.T) {
	e := newTestEngine(nil)

	tests := []struct {
		name string
		pos  models.Position
		want float64
	}{
		{
			name: "unleveraged long never liquidates",
			pos:  models.Position{Side: models.Long, EntrySpot: 50000, Leverage: 1},
			want: 0,
		},
		{
			name: "10x long",
			pos:  models.Position{Side: models.Long, EntrySpot: 50000, Leverage: 10},
			want: 50000 * (1 - 0.1 + 0.005),
		},
		{
			name: "10x short",
			pos:  models.Position{Side: models.Short, EntrySpot: 50000, Leverage: 10},
			want: 50000 * (1 + 0.1 - 0.005),
		},
		{
			name: "2x long",
			pos:  models.Position{Side: models.Long, EntrySpot: 40000, Leverage: 2},
			want: 40000 * (1 - 0.5 + 0.005),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.LiquidationPrice(&tt.pos)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("LiquidationPrice() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestAnalyzeLiquidationAlerts(t *testing.T) {
	longPos := models.Position{
		ID: "lev_long", Side: models.Long, EntrySpot: 50000, Leverage: 10,
		Quantity: 1, Greeks: models.Greeks{Delta: 0.01},
	}
	shortPos := models.Position{
		ID: "lev_short", Side: models.Short, EntrySpot: 50000, Leverage: 10,
		Quantity: 1, Greeks: models.Greeks{Delta: 0.01},
	}
	e := newTestEngine([]models.Position{longPos, shortPos})

	// Spot between the two liquidation bands: no alerts.
	report := e.Analyze(50000)
	for _, a := range report.Alerts {
		if a.Type == "liquidation_risk" {
			t.Errorf("unexpected liquidation alert at safe spot: %s", a.Message)
		}
	}

	// Below the long's band: only the long trips.
	report = e.Analyze(45000)
	if n := countLiquidations(report); n != 1 {
		t.Errorf("liquidation alerts at 45000 = %d, want 1", n)
	}

	// Above the short's band: only the short trips.
	report = e.Analyze(56000)
	if n := countLiquidations(report); n != 1 {
		t.Errorf("liquidation alerts at 56000 = %d, want 1", n)
	}

	// Zero spot skips the liquidation scan entirely.
	report = e.Analyze(0)
	if n := countLiquidations(report); n != 0 {
		t.Errorf("liquidation alerts at zero spot = %d, want 0", n)
	}
}

func countLiquidations(r models.RiskReport) int {
	n := 0
	for _, a := range r.Alerts {
		if a.Type == "liquidation_risk" {
			if a.Severity != "critical" {
				return -1
			}
			n++
		}
	}
	return n
}
