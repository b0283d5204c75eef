package observability

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1_000_000_000_000_000_000))
}

func TestEngineMetricsObserve(t *testing.T) {
	m := NewEngineMetrics("test")

	m.ObserveCreation()
	m.ObserveCreation()
	m.ObserveTrade(true, ether(2), ether(1))
	m.ObserveTrade(false, ether(1), new(uint256.Int))
	m.ObserveGraduation(ether(80), ether(4))
	m.ObserveRejection("buy", "paused")

	if got := testutil.ToFloat64(m.AssetsCreated); got != 2 {
		t.Fatalf("assets created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Trades.WithLabelValues("buy")); got != 1 {
		t.Fatalf("buy trades = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TradeVolume.WithLabelValues("buy")); got != 2 {
		t.Fatalf("buy volume = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Fees.WithLabelValues("graduation")); got != 4 {
		t.Fatalf("graduation fees = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.ActivePools); got != 1 {
		t.Fatalf("active pools = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GraduatedPools); got != 1 {
		t.Fatalf("graduated pools = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Rejections.WithLabelValues("buy", "paused")); got != 1 {
		t.Fatalf("rejections = %v, want 1", got)
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *EngineMetrics
	m.ObserveCreation()
	m.ObserveTrade(true, ether(1), ether(1))
	m.ObserveGraduation(ether(1), ether(1))
	m.ObserveRejection("sell", "paused")
	m.ObserveReentrancy()
}

func TestUnits(t *testing.T) {
	half := new(uint256.Int).Div(ether(1), uint256.NewInt(2))
	if got := Units(half); got != 0.5 {
		t.Fatalf("units = %v, want 0.5", got)
	}
}
