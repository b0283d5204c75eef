package ledger

import (
	"github.com/ethereum/go-ethereum/common"

	"launchpad/internal/model"
)

// Page selects a window of results, newest first. A zero Limit means no limit.
type Page struct {
	Offset int
	Limit  int
}

// Bounds returns the [start, end) slice of a newest-first view over n items.
func (p Page) Bounds(n int) (int, int) {
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= n {
		return 0, 0
	}
	end := n - offset
	start := 0
	if p.Limit > 0 && end-p.Limit > 0 {
		start = end - p.Limit
	}
	return start, end
}

// Trades returns all trades, newest first.
func (l *Ledger) Trades(p Page) []model.Trade {
	start, end := p.Bounds(len(l.trades))
	out := make([]model.Trade, 0, end-start)
	for i := end - 1; i >= start; i-- {
		out = append(out, l.trades[i])
	}
	return out
}

// TradesByAsset returns an asset's trades, newest first.
func (l *Ledger) TradesByAsset(asset common.Address, p Page) []model.Trade {
	return l.collect(l.byAsset[asset], p)
}

// TradesByParticipant returns a participant's trades, newest first.
func (l *Ledger) TradesByParticipant(participant common.Address, p Page) []model.Trade {
	return l.collect(l.byParticipant[participant], p)
}

// TradesByParticipantAsset returns a participant's trades on one asset, newest first.
func (l *Ledger) TradesByParticipantAsset(participant, asset common.Address, p Page) []model.Trade {
	return l.collect(l.byParticipantAsset[pairKey{participant: participant, asset: asset}], p)
}

func (l *Ledger) collect(index []int, p Page) []model.Trade {
	start, end := p.Bounds(len(index))
	out := make([]model.Trade, 0, end-start)
	for i := end - 1; i >= start; i-- {
		out = append(out, l.trades[index[i]])
	}
	return out
}

// Volume folds every trade.
func (l *Ledger) Volume() model.Volume {
	var v model.Volume
	for _, t := range l.trades {
		v.Add(t)
	}
	return v
}

// VolumeByAsset folds an asset's trades.
func (l *Ledger) VolumeByAsset(asset common.Address) model.Volume {
	return l.fold(l.byAsset[asset])
}

// VolumeByParticipant folds a participant's trades.
func (l *Ledger) VolumeByParticipant(participant common.Address) model.Volume {
	return l.fold(l.byParticipant[participant])
}

// VolumeByParticipantAsset folds a participant's trades on one asset.
func (l *Ledger) VolumeByParticipantAsset(participant, asset common.Address) model.Volume {
	return l.fold(l.byParticipantAsset[pairKey{participant: participant, asset: asset}])
}

func (l *Ledger) fold(index []int) model.Volume {
	var v model.Volume
	for _, i := range index {
		v.Add(l.trades[i])
	}
	return v
}
