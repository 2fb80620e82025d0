package ledger

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"atticus-desk/internal/config"
	derrors "atticus-desk/internal/errors"
	"atticus-desk/internal/models"
	"atticus-desk/internal/pricing"
	"atticus-desk/internal/volatility"
)

const testSpot = 50000.0

func newTestLedger(t *testing.T) (*Ledger, *config.Config) {
	t.Helper()
	cfg := config.Default()
	vol := volatility.NewEstimator(cfg.Volatility)
	pricer := pricing.NewEngine(cfg, vol, pricing.NewSignalGenerator(), zerolog.Nop())
	pricer.UpdateMarketData(testSpot, 1)
	return NewLedger(cfg, pricer, zerolog.Nop()), cfg
}

func buyOrder(accountID string, strike float64, qty float64) *models.Order {
	return &models.Order{
		AccountID:     accountID,
		Side:          models.OrderSideBuy,
		Type:          models.Call,
		Strike:        strike,
		ExpiryMinutes: 240,
		Quantity:      qty,
	}
}

func TestExecuteRejectsNonPositiveQuantity(t *testing.T) {
	l, _ := newTestLedger(t)
	acct := l.CreateAccount("u1", 1.0)

	order := buyOrder("u1", testSpot, 0)
	_, err := l.Execute(order)

	var verr *derrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if order.Status != models.OrderRejected {
		t.Errorf("order status = %s, want rejected", order.Status)
	}
	if order.Reason == "" {
		t.Error("rejected order missing reason")
	}

	after := l.CreateAccount("u1", 0)
	if after.BalanceBTC != acct.BalanceBTC {
		t.Errorf("balance mutated on rejection: %f -> %f", acct.BalanceBTC, after.BalanceBTC)
	}
	if len(after.Positions) != 0 {
		t.Errorf("positions created on rejection: %d", len(after.Positions))
	}
}

func TestExecuteRejectsUnknownSideAndType(t *testing.T) {
	l, _ := newTestLedger(t)
	before := l.CreateAccount("u1", 1.0)

	badSide := buyOrder("u1", testSpot, 1)
	badSide.Side = "banana"
	badType := buyOrder("u1", testSpot, 1)
	badType.Type = "banana"

	for _, order := range []*models.Order{badSide, badType} {
		_, err := l.Execute(order)
		var verr *derrors.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("error = %v, want ValidationError", err)
		}
		if order.Status != models.OrderRejected {
			t.Errorf("order status = %s, want rejected", order.Status)
		}
	}

	after := l.CreateAccount("u1", 0)
	if after.BalanceBTC != before.BalanceBTC {
		t.Errorf("balance mutated on rejection: %f -> %f", before.BalanceBTC, after.BalanceBTC)
	}
	if len(after.Positions) != 0 {
		t.Errorf("positions created on rejection: %d", len(after.Positions))
	}
}

func TestExecuteRejectsUnknownExpiry(t *testing.T) {
	l, _ := newTestLedger(t)
	l.CreateAccount("u1", 1.0)

	order := buyOrder("u1", testSpot, 1)
	order.ExpiryMinutes = 90
	if _, err := l.Execute(order); err == nil {
		t.Fatal("expected rejection for unlisted expiry")
	}
}

func TestExecuteBuyDebitsPremium(t *testing.T) {
	l, _ := newTestLedger(t)
	l.CreateAccount("u1", 1.0)

	order := buyOrder("u1", testSpot, 1)
	pos, err := l.Execute(order)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if order.Status != models.OrderFilled {
		t.Errorf("order status = %s, want filled", order.Status)
	}
	if order.TotalPremium <= 0 {
		t.Fatalf("total premium = %f, want positive", order.TotalPremium)
	}
	if pos.Side != models.Long {
		t.Errorf("position side = %s, want long", pos.Side)
	}
	if pos.EntryPremium != order.TotalPremium {
		t.Errorf("entry premium = %f, want %f", pos.EntryPremium, order.TotalPremium)
	}
	if pos.EntrySpot != testSpot {
		t.Errorf("entry spot = %f, want %f", pos.EntrySpot, testSpot)
	}

	wantExpiry := time.Now().Add(240 * time.Minute)
	if pos.ExpiryTime.Before(wantExpiry.Add(-time.Minute)) || pos.ExpiryTime.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("expiry time = %v, want ~%v", pos.ExpiryTime, wantExpiry)
	}

	acct := l.CreateAccount("u1", 0)
	wantBalance := 1.0 - order.TotalPremium/testSpot
	if math.Abs(acct.BalanceBTC-wantBalance) > 1e-12 {
		t.Errorf("balance = %f, want %f", acct.BalanceBTC, wantBalance)
	}
	if len(acct.Positions) != 1 {
		t.Fatalf("open positions = %d, want 1", len(acct.Positions))
	}
	if len(acct.History) != 1 {
		t.Errorf("order history = %d, want 1", len(acct.History))
	}
}

func TestExecuteInsufficientBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	l.CreateAccount("poor", 1e-9)

	_, err := l.Execute(buyOrder("poor", testSpot, 10))

	var berr *derrors.InsufficientBalanceError
	if !errors.As(err, &berr) {
		t.Fatalf("error = %v, want InsufficientBalanceError", err)
	}
	if berr.Required <= berr.Available {
		t.Errorf("required %f should exceed available %f", berr.Required, berr.Available)
	}
	if len(l.OpenPositions()) != 0 {
		t.Error("position created despite insufficient balance")
	}
}

func TestExecuteShortStoresNegativePremium(t *testing.T) {
	l, cfg := newTestLedger(t)
	l.CreateAccount("writer", 1.0)

	order := buyOrder("writer", testSpot, 1)
	order.Side = models.OrderSideSell
	pos, err := l.Execute(order)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if pos.Side != models.Short {
		t.Errorf("side = %s, want short", pos.Side)
	}
	if pos.EntryPremium >= 0 {
		t.Errorf("short entry premium = %f, want negative", pos.EntryPremium)
	}
	if pos.AbsPremium() != order.TotalPremium {
		t.Errorf("abs premium = %f, want %f", pos.AbsPremium(), order.TotalPremium)
	}

	// Seller is credited the premium.
	acct := l.CreateAccount("writer", 0)
	wantBalance := 1.0 + order.TotalPremium/testSpot
	if math.Abs(acct.BalanceBTC-wantBalance) > 1e-12 {
		t.Errorf("balance = %f, want %f", acct.BalanceBTC, wantBalance)
	}

	// A margin-starved account cannot write the same contract.
	margin := testSpot * 1 * cfg.Pricing.ContractSizeBTC * cfg.Ledger.NakedSellMarginRate / testSpot
	l.CreateAccount("thin", margin/2)
	short := buyOrder("thin", testSpot, 1)
	short.Side = models.OrderSideSell
	var berr *derrors.InsufficientBalanceError
	if _, err := l.Execute(short); !errors.As(err, &berr) {
		t.Fatalf("error = %v, want InsufficientBalanceError for margin", err)
	}
}

func TestCloseFullRoundTrip(t *testing.T) {
	l, _ := newTestLedger(t)
	l.CreateAccount("u1", 1.0)

	order := buyOrder("u1", 49000, 1) // ITM call, intrinsic 1000 in strike space
	pos, err := l.Execute(order)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	msg, err := l.Close("u1", pos.ID, 0)
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if msg == "" {
		t.Error("expected close message")
	}
	if len(l.OpenPositions()) != 0 {
		t.Fatal("position still open after full close")
	}

	// Credited the intrinsic: 1000 * contract size 0.01 = $10 in BTC.
	acct := l.CreateAccount("u1", 0)
	wantBalance := 1.0 - order.TotalPremium/testSpot + 1000*0.01/testSpot
	if math.Abs(acct.BalanceBTC-wantBalance) > 1e-12 {
		t.Errorf("balance = %f, want %f", acct.BalanceBTC, wantBalance)
	}

	if _, err := l.Close("u1", pos.ID, 0); !errors.Is(err, derrors.ErrPositionNotFound) {
		t.Errorf("second close error = %v, want ErrPositionNotFound", err)
	}
}

func TestClosePartialRescalesEntryPremium(t *testing.T) {
	l, _ := newTestLedger(t)
	l.CreateAccount("u1", 1.0)

	order := buyOrder("u1", testSpot, 4)
	pos, err := l.Execute(order)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	originalPremium := pos.EntryPremium

	if _, err := l.Close("u1", pos.ID, 1); err != nil {
		t.Fatalf("partial Close() error = %v", err)
	}

	open := l.OpenPositions()
	if len(open) != 1 {
		t.Fatalf("open positions = %d, want 1", len(open))
	}
	if open[0].Quantity != 3 {
		t.Errorf("remaining quantity = %f, want 3", open[0].Quantity)
	}
	wantPremium := originalPremium * 3 / 4
	if math.Abs(open[0].EntryPremium-wantPremium) > 1e-9 {
		t.Errorf("rescaled premium = %f, want %f", open[0].EntryPremium, wantPremium)
	}
}

func TestCloseRejectsOversizedPartial(t *testing.T) {
	l, _ := newTestLedger(t)
	l.CreateAccount("u1", 1.0)

	pos, err := l.Execute(buyOrder("u1", testSpot, 1))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var verr *derrors.ValidationError
	if _, err := l.Close("u1", pos.ID, 2); !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(l.OpenPositions()) != 1 {
		t.Error("position mutated by rejected close")
	}
}

func TestCloseUnknownAccountAndPosition(t *testing.T) {
	l, _ := newTestLedger(t)
	l.CreateAccount("u1", 1.0)

	if _, err := l.Close("ghost", "pos_x", 0); !errors.Is(err, derrors.ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound", err)
	}
	if _, err := l.Close("u1", "pos_x", 0); !errors.Is(err, derrors.ErrPositionNotFound) {
		t.Errorf("error = %v, want ErrPositionNotFound", err)
	}
}

func TestSettleExpiredIsIdempotent(t *testing.T) {
	l, _ := newTestLedger(t)
	l.CreateAccount("u1", 1.0)

	order := buyOrder("u1", 49000, 1)
	pos, err := l.Execute(order)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// Nothing expires yet.
	if settled := l.SettleExpired(testSpot); len(settled) != 0 {
		t.Fatalf("settled %d positions before expiry", len(settled))
	}

	// Force expiry in the past.
	l.mu.RLock()
	acct := l.accounts["u1"]
	l.mu.RUnlock()
	acct.mu.Lock()
	acct.positions[pos.ID].ExpiryTime = time.Now().Add(-time.Minute)
	acct.mu.Unlock()

	settled := l.SettleExpired(testSpot)
	if len(settled) != 1 {
		t.Fatalf("settled = %d, want 1", len(settled))
	}
	if settled[0].Status != models.PositionSettled {
		t.Errorf("status = %s, want settled", settled[0].Status)
	}
	// ITM call at 49000, spot 50000: intrinsic $10 per contract.
	if math.Abs(settled[0].MarkValue-10) > 1e-9 {
		t.Errorf("settlement value = %f, want 10", settled[0].MarkValue)
	}

	after := l.CreateAccount("u1", 0)
	wantBalance := 1.0 - order.TotalPremium/testSpot + 10/testSpot
	if math.Abs(after.BalanceBTC-wantBalance) > 1e-12 {
		t.Errorf("balance = %f, want %f", after.BalanceBTC, wantBalance)
	}

	if again := l.SettleExpired(testSpot); len(again) != 0 {
		t.Fatalf("second settle pass settled %d positions", len(again))
	}
	final := l.CreateAccount("u1", 0)
	if final.BalanceBTC != after.BalanceBTC {
		t.Error("second settle pass moved the balance")
	}
}

func TestSettleExpiredDebitsShort(t *testing.T) {
	l, _ := newTestLedger(t)
	l.CreateAccount("writer", 1.0)

	order := buyOrder("writer", 49000, 1)
	order.Side = models.OrderSideSell
	pos, err := l.Execute(order)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	credited := l.CreateAccount("writer", 0).BalanceBTC

	l.mu.RLock()
	acct := l.accounts["writer"]
	l.mu.RUnlock()
	acct.mu.Lock()
	acct.positions[pos.ID].ExpiryTime = time.Now().Add(-time.Minute)
	acct.mu.Unlock()

	settled := l.SettleExpired(testSpot)
	if len(settled) != 1 {
		t.Fatalf("settled = %d, want 1", len(settled))
	}

	after := l.CreateAccount("writer", 0)
	wantBalance := credited - 10/testSpot
	if math.Abs(after.BalanceBTC-wantBalance) > 1e-12 {
		t.Errorf("balance = %f, want %f", after.BalanceBTC, wantBalance)
	}
	if settled[0].PnL != order.TotalPremium-10 {
		t.Errorf("short pnl = %f, want %f", settled[0].PnL, order.TotalPremium-10)
	}
}

func TestMarkToMarketValuesTimeDecay(t *testing.T) {
	l, cfg := newTestLedger(t)
	l.CreateAccount("u1", 1.0)

	pos, err := l.Execute(buyOrder("u1", 49000, 2))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	l.MarkToMarket(testSpot)

	open := l.OpenPositions()
	if len(open) != 1 {
		t.Fatalf("open positions = %d, want 1", len(open))
	}
	marked := open[0]

	intrinsic := 1000 * cfg.Pricing.ContractSizeBTC
	hoursLeft := time.Until(pos.ExpiryTime).Hours()
	wantValue := (intrinsic + intrinsic*cfg.Ledger.TimeValueRate*hoursLeft) * 2
	if math.Abs(marked.MarkValue-wantValue) > wantValue*0.01 {
		t.Errorf("mark value = %f, want ~%f", marked.MarkValue, wantValue)
	}
	if math.Abs(marked.PnL-(marked.MarkValue-pos.EntryPremium)) > 1e-9 {
		t.Errorf("pnl = %f, want value minus entry", marked.PnL)
	}
}

func TestPortfolioSummary(t *testing.T) {
	l, cfg := newTestLedger(t)
	l.CreateAccount("u1", 1.0)

	if _, err := l.Execute(buyOrder("u1", 49000, 1)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	sellOrder := buyOrder("u1", 51000, 1)
	sellOrder.Type = models.Put
	sellOrder.Side = models.OrderSideSell
	if _, err := l.Execute(sellOrder); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	pf, err := l.Portfolio("u1", testSpot)
	if err != nil {
		t.Fatalf("Portfolio() error = %v", err)
	}

	if len(pf.Positions) != 2 {
		t.Fatalf("positions = %d, want 2", len(pf.Positions))
	}
	if pf.BalanceUSD != pf.BalanceBTC*testSpot {
		t.Errorf("BalanceUSD = %f, want %f", pf.BalanceUSD, pf.BalanceBTC*testSpot)
	}

	var wantDelta, wantPnL float64
	for _, p := range pf.Positions {
		if p.Side == models.Long {
			wantDelta += p.Greeks.Delta * p.Quantity
		} else {
			wantDelta -= p.Greeks.Delta * p.Quantity
		}
		wantPnL += p.PnL

		if p.Type == models.Call {
			wantBE := p.Strike + math.Abs(p.EntryPremium)/(p.Quantity*cfg.Pricing.ContractSizeBTC)
			if math.Abs(p.Breakeven-wantBE) > 1e-9 {
				t.Errorf("call breakeven = %f, want %f", p.Breakeven, wantBE)
			}
		}
		if p.Side == models.Long && p.Type == models.Call && !p.MaxProfitOpen {
			t.Error("long call should have open-ended max profit")
		}
		if p.Side == models.Short && p.Type == models.Put {
			if p.MaxLossOpen {
				t.Error("short put max loss should be bounded")
			}
			if p.MaxLoss <= 0 {
				t.Errorf("short put max loss = %f, want positive", p.MaxLoss)
			}
		}
	}
	if math.Abs(pf.NetDelta-wantDelta) > 1e-12 {
		t.Errorf("net delta = %f, want %f", pf.NetDelta, wantDelta)
	}
	if math.Abs(pf.TotalPnL-wantPnL) > 1e-12 {
		t.Errorf("total pnl = %f, want %f", pf.TotalPnL, wantPnL)
	}
	if math.Abs(pf.PortfolioValue-(pf.BalanceUSD+pf.TotalPnL)) > 1e-9 {
		t.Errorf("portfolio value = %f, want balance plus pnl", pf.PortfolioValue)
	}

	if _, err := l.Portfolio("ghost", testSpot); !errors.Is(err, derrors.ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound", err)
	}
}
