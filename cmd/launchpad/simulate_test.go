package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"launchpad/internal/config"
	"launchpad/internal/curve"
	"launchpad/internal/engine"
	"launchpad/internal/observability"
	"launchpad/internal/storage"
	"launchpad/internal/storage/postgres"
)

const (
	alice = "0x00000000000000000000000000000000000000a1"
	bob   = "0x00000000000000000000000000000000000000b2"
)

func testSimulateConfig(t *testing.T) config.SimulateConfig {
	t.Helper()
	cfg := config.SimulateConfig{
		ChainID:           31337,
		Engine:            "0x00000000000000000000000000000000000e0e01",
		Migrator:          "0x00000000000000000000000000000000000e0e02",
		FeeRate:           100,
		GraduationFeeRate: 100,
		Accounts:          []string{alice, bob},
	}
	cfg.InitVirtualEth.Mul(uint256.NewInt(30), curve.WAD)
	cfg.StartBalance.Mul(uint256.NewInt(1000), curve.WAD)
	return cfg
}

func TestSimulatorReplaysJournal(t *testing.T) {
	out := filepath.Join(t.TempDir(), "logs.jsonl")
	sink := storage.NewJsonlStorage(out)
	metrics := observability.NewEngineMetrics("test")

	sim, err := newSimulator(testSimulateConfig(t), engine.NewManualClock(1_700_000_000, 1), sink, metrics, zap.NewNop())
	if err != nil {
		t.Fatalf("new simulator: %v", err)
	}

	journal := strings.Join([]string{
		`{"op":"create","caller":"` + alice + `","name":"Pepe","symbol":"PEP","value":"0","amount":"0"}`,
		`{"op":"buy","caller":"` + bob + `","asset":"PEP","value":"1eth","amount":"1eth"}`,
		`{"op":"approve","caller":"` + bob + `","asset":"PEP","amount":"1000eth"}`,
		`{"op":"sell","caller":"` + bob + `","asset":"PEP","amount":"1000eth"}`,
		`{"op":"sell","caller":"` + alice + `","asset":"PEP","amount":"1eth"}`,
		`not json`,
		``,
		`{"op":"hold","caller":"` + alice + `"}`,
		`{"op":"pause","caller":"` + bob + `","paused":true}`,
		`{"op":"pause","caller":"` + alice + `","paused":true}`,
		`{"op":"buy","caller":"` + bob + `","asset":"PEP","value":"1eth","amount":"1eth"}`,
	}, "\n")

	if err := sim.run(context.Background(), strings.NewReader(journal)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sim.total != 10 || sim.applied != 5 || sim.rejected != 5 {
		t.Fatalf("total=%d applied=%d rejected=%d", sim.total, sim.applied, sim.rejected)
	}
	if sim.written != 3 {
		t.Fatalf("written logs = %d, want 3", sim.written)
	}

	stats := sim.engine.Ledger().Stats()
	if stats.TotalAssetsCreated != 1 || stats.TotalTrades != 2 {
		t.Fatalf("stats: %+v", stats)
	}
	if !sim.engine.Config().Paused {
		t.Fatalf("engine should be paused")
	}
	if sim.journal.Len() != 0 {
		t.Fatalf("journal holds %d entries after the run", sim.journal.Len())
	}

	input, err := os.Open(out)
	if err != nil {
		t.Fatalf("open logs: %v", err)
	}
	defer input.Close()

	dir := t.TempDir()
	typed, err := newJSONLWriter(filepath.Join(dir, "typed.jsonl"), false)
	if err != nil {
		t.Fatalf("typed writer: %v", err)
	}
	errs, err := newJSONLWriter(filepath.Join(dir, "errors.jsonl"), false)
	if err != nil {
		t.Fatalf("errors writer: %v", err)
	}
	counts, err := decodeLogs(input, typed, errs)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := typed.Close(); err != nil {
		t.Fatalf("close typed: %v", err)
	}
	if err := errs.Close(); err != nil {
		t.Fatalf("close errors: %v", err)
	}
	if counts.total != 3 || counts.decoded != 3 || counts.failed != 0 {
		t.Fatalf("decode counts: %+v", counts)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "typed.jsonl"))
	if err != nil {
		t.Fatalf("read typed: %v", err)
	}
	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))
	if len(lines) != 3 || !bytes.Contains(lines[0], []byte(`"event_name":"TokenCreated"`)) {
		t.Fatalf("unexpected typed events:\n%s", raw)
	}
}

func TestDecodeLogsRecordsFailures(t *testing.T) {
	dir := t.TempDir()
	typed, _ := newJSONLWriter(filepath.Join(dir, "typed.jsonl"), false)
	errs, _ := newJSONLWriter(filepath.Join(dir, "errors.jsonl"), false)

	input := strings.Join([]string{
		`{"block_number":1,"topics":[]}`,
		`{"block_number":2,"topics":["0x0000000000000000000000000000000000000000000000000000000000000001"]}`,
		`{broken`,
	}, "\n")
	counts, err := decodeLogs(strings.NewReader(input), typed, errs)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	typed.Close()
	errs.Close()

	if counts.total != 3 || counts.failed != 2 || counts.skipped != 1 || counts.decoded != 0 {
		t.Fatalf("decode counts: %+v", counts)
	}
	raw, _ := os.ReadFile(filepath.Join(dir, "errors.jsonl"))
	if !bytes.Contains(raw, []byte("missing topic0")) {
		t.Fatalf("errors file missing topic0 failure:\n%s", raw)
	}
}

func TestNewSimulatorRequiresOwner(t *testing.T) {
	cfg := testSimulateConfig(t)
	cfg.Accounts = nil
	if _, err := newSimulator(cfg, nil, storage.NewJsonlStorage(filepath.Join(t.TempDir(), "x")), nil, zap.NewNop()); err == nil {
		t.Fatalf("expected error without owner or accounts")
	}
}

type memorySnapshotStore struct {
	schemaCalls int
	runs        map[string]postgres.Snapshot
	err         error
}

func (m *memorySnapshotStore) EnsureSchema(context.Context) error {
	m.schemaCalls++
	return nil
}

func (m *memorySnapshotStore) SaveSnapshot(_ context.Context, snap postgres.Snapshot) error {
	if m.err != nil {
		return m.err
	}
	if err := snap.Validate(); err != nil {
		return err
	}
	if m.runs == nil {
		m.runs = make(map[string]postgres.Snapshot)
	}
	m.runs[snap.Run] = snap
	return nil
}

func replay(t *testing.T, cfg config.SimulateConfig, lines ...string) *simulator {
	t.Helper()
	sink := storage.NewJsonlStorage(filepath.Join(t.TempDir(), "logs.jsonl"))
	sim, err := newSimulator(cfg, engine.NewManualClock(1_700_000_000, 1), sink, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("new simulator: %v", err)
	}
	if err := sim.run(context.Background(), strings.NewReader(strings.Join(lines, "\n"))); err != nil {
		t.Fatalf("run: %v", err)
	}
	return sim
}

func TestPersistKeepsRowsConsistentAcrossReplays(t *testing.T) {
	create := `{"op":"create","caller":"` + alice + `","name":"Pepe","symbol":"PEP","value":"0","amount":"0"}`
	buy := `{"op":"buy","caller":"` + bob + `","asset":"PEP","value":"1eth","amount":"1eth"}`

	store := &memorySnapshotStore{}
	cfg := testSimulateConfig(t)
	cfg.In = "data/requests.jsonl"
	cfg.Run = "requests.jsonl"

	// The same run replayed with a longer journal replaces the earlier rows.
	for _, n := range []int{1, 3} {
		lines := []string{create}
		for i := 0; i < n; i++ {
			lines = append(lines, buy)
		}
		sim := replay(t, cfg, lines...)
		snap, err := sim.snapshot(cfg)
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if err := persist(context.Background(), store, snap, zap.NewNop()); err != nil {
			t.Fatalf("persist: %v", err)
		}
	}

	// A different run starts its own sequence at zero.
	other := cfg
	other.Run = "other.jsonl"
	sim := replay(t, other, create, buy)
	snap, err := sim.snapshot(other)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := persist(context.Background(), store, snap, zap.NewNop()); err != nil {
		t.Fatalf("persist other: %v", err)
	}

	if store.schemaCalls != 3 || len(store.runs) != 2 {
		t.Fatalf("schema calls=%d runs=%d", store.schemaCalls, len(store.runs))
	}
	got := store.runs["requests.jsonl"]
	if len(got.Trades) != 3 || got.Stats.TotalTrades != 3 {
		t.Fatalf("trades=%d stats=%d", len(got.Trades), got.Stats.TotalTrades)
	}
	for i, trade := range got.Trades {
		if trade.Seq != uint64(i) || !trade.IsBuy {
			t.Fatalf("trade %d: %+v", i, trade)
		}
	}
	if len(got.Pools) != 1 || len(got.Assets) != 1 || got.Input != "data/requests.jsonl" {
		t.Fatalf("pools=%d assets=%d input=%q", len(got.Pools), len(got.Assets), got.Input)
	}
	if first := store.runs["other.jsonl"]; len(first.Trades) != 1 || first.Trades[0].Seq != 0 {
		t.Fatalf("other run trades: %+v", first.Trades)
	}
}

func TestPersistReportsStoreFailure(t *testing.T) {
	cfg := testSimulateConfig(t)
	cfg.Run = "broken"
	sim := replay(t, cfg)
	snap, err := sim.snapshot(cfg)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	boom := errors.New("connection reset")
	err = persist(context.Background(), &memorySnapshotStore{err: boom}, snap, zap.NewNop())
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "save run broken") {
		t.Fatalf("persist error = %v", err)
	}

	snap.Run = ""
	if err := persist(context.Background(), &memorySnapshotStore{}, snap, zap.NewNop()); !errors.Is(err, postgres.ErrInconsistentSnapshot) {
		t.Fatalf("expected inconsistent snapshot, got %v", err)
	}
}
