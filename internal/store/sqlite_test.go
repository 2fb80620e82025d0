package store

import (
	"path/filepath"
	"testing"
	"time"

	"atticus-desk/internal/models"
)

func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLiteJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewSQLiteJournal() error = %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func testFill() (models.Order, models.Position) {
	now := time.Now().UTC()
	order := models.Order{
		ID:            "ord_1",
		AccountID:     "u1",
		Symbol:        "BTC-4H-50000-C",
		Side:          models.OrderSideBuy,
		Type:          models.Call,
		Strike:        50000,
		ExpiryMinutes: 240,
		Quantity:      2,
		PremiumPer:    3.5,
		TotalPremium:  7.0,
		Status:        models.OrderFilled,
		PlacedAt:      now,
	}
	position := models.Position{
		ID:           "pos_1",
		AccountID:    "u1",
		Symbol:       order.Symbol,
		Side:         models.Long,
		Type:         models.Call,
		Strike:       50000,
		Quantity:     2,
		EntryPremium: 7.0,
		EntrySpot:    50000,
	}
	return order, position
}

func TestRecordFillRoundTrip(t *testing.T) {
	j := newTestJournal(t)
	order, position := testFill()

	if err := j.RecordFill(order, position); err != nil {
		t.Fatalf("RecordFill() error = %v", err)
	}

	var (
		accountID, side, optionType string
		strike, total               float64
	)
	row := j.db.QueryRow(
		`SELECT account_id, side, option_type, strike, total_premium FROM fills WHERE order_id = ?`,
		order.ID)
	if err := row.Scan(&accountID, &side, &optionType, &strike, &total); err != nil {
		t.Fatalf("fill row missing: %v", err)
	}
	if accountID != "u1" || side != "buy" || optionType != "call" {
		t.Errorf("row = %s/%s/%s, want u1/buy/call", accountID, side, optionType)
	}
	if strike != 50000 || total != 7.0 {
		t.Errorf("strike/premium = %f/%f, want 50000/7", strike, total)
	}
}

func TestRecordFillIsIdempotentPerOrder(t *testing.T) {
	j := newTestJournal(t)
	order, position := testFill()

	if err := j.RecordFill(order, position); err != nil {
		t.Fatalf("RecordFill() error = %v", err)
	}
	order.TotalPremium = 9.0
	if err := j.RecordFill(order, position); err != nil {
		t.Fatalf("second RecordFill() error = %v", err)
	}

	var count int
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM fills`).Scan(&count); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 1 {
		t.Errorf("fill rows = %d, want 1 after replay", count)
	}

	var total float64
	if err := j.db.QueryRow(`SELECT total_premium FROM fills WHERE order_id = ?`, order.ID).Scan(&total); err != nil {
		t.Fatalf("row query error = %v", err)
	}
	if total != 9.0 {
		t.Errorf("total premium = %f, want latest write 9", total)
	}
}

func TestRecordSettlement(t *testing.T) {
	j := newTestJournal(t)
	_, position := testFill()
	position.PnL = 3.0

	if err := j.RecordSettlement(position, 10.0); err != nil {
		t.Fatalf("RecordSettlement() error = %v", err)
	}

	var (
		settlementUSD, pnl float64
		side               string
	)
	row := j.db.QueryRow(
		`SELECT settlement_usd, pnl, side FROM settlements WHERE position_id = ?`,
		position.ID)
	if err := row.Scan(&settlementUSD, &pnl, &side); err != nil {
		t.Fatalf("settlement row missing: %v", err)
	}
	if settlementUSD != 10.0 || pnl != 3.0 || side != "long" {
		t.Errorf("row = %f/%f/%s, want 10/3/long", settlementUSD, pnl, side)
	}
}

func TestSchemaSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.db")

	j, err := NewSQLiteJournal(path)
	if err != nil {
		t.Fatalf("NewSQLiteJournal() error = %v", err)
	}
	order, position := testFill()
	if err := j.RecordFill(order, position); err != nil {
		t.Fatalf("RecordFill() error = %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	j, err = NewSQLiteJournal(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer j.Close()

	var count int
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM fills`).Scan(&count); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 1 {
		t.Errorf("fill rows after reopen = %d, want 1", count)
	}
}
