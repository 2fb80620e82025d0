package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"atticus-desk/internal/models"
)

func TestLatestPriceEmpty(t *testing.T) {
	var l LatestPrice

	if _, ok := l.Get(); ok {
		t.Error("empty cache reported a tick")
	}
	if age := l.Age(time.Now()); age >= 0 {
		t.Errorf("empty cache age = %v, want negative", age)
	}
}

func TestLatestPriceSetAndAge(t *testing.T) {
	var l LatestPrice
	now := time.Now().UTC()

	l.Set(models.PriceTick{Symbol: "BTC-USD", Price: 50000, Time: now})

	tick, ok := l.Get()
	if !ok {
		t.Fatal("cache empty after Set")
	}
	if tick.Price != 50000 {
		t.Errorf("price = %f, want 50000", tick.Price)
	}
	if age := l.Age(now.Add(3 * time.Second)); age != 3*time.Second {
		t.Errorf("age = %v, want 3s", age)
	}

	// A newer tick replaces the old one.
	l.Set(models.PriceTick{Symbol: "BTC-USD", Price: 50100, Time: now.Add(time.Second)})
	tick, _ = l.Get()
	if tick.Price != 50100 {
		t.Errorf("price after replace = %f, want 50100", tick.Price)
	}
}

func TestSimulatedWalkStaysPositive(t *testing.T) {
	s := NewSimulated(50000, 0.001, 42)
	ctx := context.Background()

	prev := 50000.0
	for i := 0; i < 1000; i++ {
		price, volume, err := s.Price(ctx)
		if err != nil {
			t.Fatalf("Price() error = %v", err)
		}
		if price <= 0 {
			t.Fatalf("price = %f at step %d, want positive", price, i)
		}
		if volume <= 0 {
			t.Fatalf("volume = %f at step %d, want positive", volume, i)
		}
		// Multiplicative steps at this vol stay near the previous price.
		if price < prev*0.9 || price > prev*1.1 {
			t.Fatalf("step %d jumped %f -> %f", i, prev, price)
		}
		prev = price
	}
	if !s.Healthy() {
		t.Error("simulated source reported unhealthy")
	}
}

func TestSimulatedDeterministicPerSeed(t *testing.T) {
	ctx := context.Background()
	a := NewSimulated(50000, 0.001, 7)
	b := NewSimulated(50000, 0.001, 7)

	for i := 0; i < 10; i++ {
		pa, _, _ := a.Price(ctx)
		pb, _, _ := b.Price(ctx)
		if pa != pb {
			t.Fatalf("seeded walks diverged at step %d: %f vs %f", i, pa, pb)
		}
	}
}

func TestSimulatedRespectsContext(t *testing.T) {
	s := NewSimulated(50000, 0.001, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := s.Price(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
