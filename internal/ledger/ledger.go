// Package ledger is the append-only activity log of the engine.
//
// Records live in dense append-order tables; per-asset and per-participant
// lists hold positions into the trade table. Nothing is reordered or removed
// once an operation commits. Only the configured writer may append.
package ledger

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"launchpad/internal/model"
	"launchpad/internal/state"
)

var (
	// ErrUnauthorized is returned when anyone but the writer tries to append.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDuplicate is returned when an asset is created or graduated twice.
	ErrDuplicate = errors.New("already recorded")
	// ErrNotFound is returned for unknown assets or out-of-range positions.
	ErrNotFound = errors.New("not found")
)

type pairKey struct {
	participant common.Address
	asset       common.Address
}

// Ledger stores trades, asset listings and graduation records.
type Ledger struct {
	writer  common.Address
	journal *state.Journal

	trades             []model.Trade
	byAsset            map[common.Address][]int
	byParticipant      map[common.Address][]int
	byParticipantAsset map[pairKey][]int
	assetsTraded       map[common.Address][]common.Address

	assets      []model.AssetInfo
	assetIndex  map[common.Address]int
	graduations []model.GraduationRecord
	gradIndex   map[common.Address]int

	stats model.LedgerStats
}

// New creates a ledger that accepts writes only from writer.
func New(writer common.Address, journal *state.Journal) *Ledger {
	if journal == nil {
		journal = state.NewJournal()
	}
	return &Ledger{
		writer:             writer,
		journal:            journal,
		byAsset:            make(map[common.Address][]int),
		byParticipant:      make(map[common.Address][]int),
		byParticipantAsset: make(map[pairKey][]int),
		assetsTraded:       make(map[common.Address][]common.Address),
		assetIndex:         make(map[common.Address]int),
		gradIndex:          make(map[common.Address]int),
	}
}

// Writer returns the only address allowed to append.
func (l *Ledger) Writer() common.Address {
	return l.writer
}

func (l *Ledger) authorize(caller common.Address) error {
	if caller != l.writer {
		return fmt.Errorf("ledger write by %s: %w", caller.Hex(), ErrUnauthorized)
	}
	return nil
}

// RecordCreation appends an asset to the created listing.
func (l *Ledger) RecordCreation(caller common.Address, info model.AssetInfo) error {
	if err := l.authorize(caller); err != nil {
		return err
	}
	if _, ok := l.assetIndex[info.Asset]; ok {
		return fmt.Errorf("creation of %s: %w", info.Asset.Hex(), ErrDuplicate)
	}

	prevStats := l.stats
	l.assetIndex[info.Asset] = len(l.assets)
	l.assets = append(l.assets, info)
	l.stats.TotalAssetsCreated++

	l.journal.Append(func() {
		l.assets = l.assets[:len(l.assets)-1]
		delete(l.assetIndex, info.Asset)
		l.stats = prevStats
	})
	return nil
}

// RecordTrade appends a trade and updates every index. It returns the trade's
// position in the ledger.
func (l *Ledger) RecordTrade(caller common.Address, trade model.Trade) (int, error) {
	if err := l.authorize(caller); err != nil {
		return 0, err
	}

	prevStats := l.stats
	seq := len(l.trades)
	key := pairKey{participant: trade.Participant, asset: trade.Asset}
	_, seenPair := l.byParticipantAsset[key]

	l.trades = append(l.trades, trade)
	l.byAsset[trade.Asset] = append(l.byAsset[trade.Asset], seq)
	l.byParticipant[trade.Participant] = append(l.byParticipant[trade.Participant], seq)
	l.byParticipantAsset[key] = append(l.byParticipantAsset[key], seq)
	if !seenPair {
		l.assetsTraded[trade.Participant] = append(l.assetsTraded[trade.Participant], trade.Asset)
	}
	l.stats.TotalVolume.Add(&l.stats.TotalVolume, trade.CurrencyAmount())
	l.stats.TotalTrades++

	l.journal.Append(func() {
		l.trades = l.trades[:seq]
		l.byAsset[trade.Asset] = truncateIndex(l.byAsset, trade.Asset)
		l.byParticipant[trade.Participant] = truncateIndex(l.byParticipant, trade.Participant)
		if seenPair {
			l.byParticipantAsset[key] = l.byParticipantAsset[key][:len(l.byParticipantAsset[key])-1]
		} else {
			delete(l.byParticipantAsset, key)
			traded := l.assetsTraded[trade.Participant]
			l.assetsTraded[trade.Participant] = traded[:len(traded)-1]
		}
		l.stats = prevStats
	})
	return seq, nil
}

// RecordGraduation appends a graduation record and adds its currency amount
// to the bootstrapped liquidity total.
func (l *Ledger) RecordGraduation(caller common.Address, rec model.GraduationRecord) error {
	if err := l.authorize(caller); err != nil {
		return err
	}
	if _, ok := l.gradIndex[rec.Asset]; ok {
		return fmt.Errorf("graduation of %s: %w", rec.Asset.Hex(), ErrDuplicate)
	}

	prevStats := l.stats
	l.gradIndex[rec.Asset] = len(l.graduations)
	l.graduations = append(l.graduations, rec)
	l.stats.TotalLiquidityBootstrapped.Add(&l.stats.TotalLiquidityBootstrapped, &rec.CurrencyAmount)
	l.stats.TotalAssetsGraduated++

	l.journal.Append(func() {
		l.graduations = l.graduations[:len(l.graduations)-1]
		delete(l.gradIndex, rec.Asset)
		l.stats = prevStats
	})
	return nil
}

func truncateIndex(m map[common.Address][]int, key common.Address) []int {
	idx := m[key]
	return idx[:len(idx)-1]
}

// Stats returns the running totals.
func (l *Ledger) Stats() model.LedgerStats {
	return l.stats
}

// TradeCount returns the number of recorded trades.
func (l *Ledger) TradeCount() int {
	return len(l.trades)
}

// Trade returns the trade at position seq.
func (l *Ledger) Trade(seq int) (model.Trade, error) {
	if seq < 0 || seq >= len(l.trades) {
		return model.Trade{}, fmt.Errorf("trade %d: %w", seq, ErrNotFound)
	}
	return l.trades[seq], nil
}

// Asset returns the listing entry of a created asset.
func (l *Ledger) Asset(asset common.Address) (model.AssetInfo, error) {
	i, ok := l.assetIndex[asset]
	if !ok {
		return model.AssetInfo{}, fmt.Errorf("asset %s: %w", asset.Hex(), ErrNotFound)
	}
	return l.assets[i], nil
}

// Graduation returns the graduation record of an asset.
func (l *Ledger) Graduation(asset common.Address) (model.GraduationRecord, error) {
	i, ok := l.gradIndex[asset]
	if !ok {
		return model.GraduationRecord{}, fmt.Errorf("graduation %s: %w", asset.Hex(), ErrNotFound)
	}
	return l.graduations[i], nil
}

// AssetsCreated lists created assets in creation order.
func (l *Ledger) AssetsCreated() []model.AssetInfo {
	return append([]model.AssetInfo(nil), l.assets...)
}

// AssetsGraduated lists graduation records in graduation order.
func (l *Ledger) AssetsGraduated() []model.GraduationRecord {
	return append([]model.GraduationRecord(nil), l.graduations...)
}

// AssetsTradedBy lists the distinct assets a participant traded, in first-trade order.
func (l *Ledger) AssetsTradedBy(participant common.Address) []common.Address {
	return append([]common.Address(nil), l.assetsTraded[participant]...)
}

// TradeIndicesByAsset returns the ledger positions of an asset's trades in append order.
func (l *Ledger) TradeIndicesByAsset(asset common.Address) []int {
	return append([]int(nil), l.byAsset[asset]...)
}

// TradeIndicesByParticipant returns the ledger positions of a participant's trades in append order.
func (l *Ledger) TradeIndicesByParticipant(participant common.Address) []int {
	return append([]int(nil), l.byParticipant[participant]...)
}
