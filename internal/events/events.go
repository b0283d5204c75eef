// Package events defines the engine's event log and its ABI encoding.
package events

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"launchpad/internal/model"
)

// Event is one engine event.
type Event interface {
	EventName() string
}

// TokenCreated is emitted when an asset and its pool are created.
type TokenCreated struct {
	Asset       common.Address
	Creator     common.Address
	Name        string
	Symbol      string
	Description string
	Price       uint256.Int
	McapInEth   uint256.Int
}

// Trade is emitted for every swap, including the initial buy at creation.
type Trade struct {
	Asset             common.Address
	Participant       common.Address
	IsBuy             bool
	AmountIn          uint256.Int
	AmountOut         uint256.Int
	Fee               uint256.Int
	EthReserve        uint256.Int
	TokenReserve      uint256.Int
	VirtualEthReserve uint256.Int
	Price             uint256.Int
}

// Graduated is emitted once when a pool migrates.
type Graduated struct {
	Asset          common.Address
	Headmaster     common.Address
	PoolID         common.Address
	CurrencyAmount uint256.Int
	TokenAmount    uint256.Int
	Fee            uint256.Int
}

func (TokenCreated) EventName() string { return "TokenCreated" }
func (Trade) EventName() string        { return "Trade" }
func (Graduated) EventName() string    { return "Graduated" }

// Envelope places an event within the operation that produced it.
type Envelope struct {
	Emitter     common.Address
	BlockNumber uint64
	Timestamp   uint64
	TxHash      common.Hash
	LogIndex    uint64
	Event       Event
}

// Encode converts an envelope into an ABI-encoded log record.
func Encode(chainID uint64, env Envelope) (model.LogRecord, error) {
	engineABI, err := EngineABI()
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("parse engine abi: %w", err)
	}

	name := env.Event.EventName()
	event, ok := engineABI.Events[name]
	if !ok {
		return model.LogRecord{}, fmt.Errorf("unknown event: %s", name)
	}

	var indexed []common.Address
	var values []interface{}
	switch ev := env.Event.(type) {
	case TokenCreated:
		indexed = []common.Address{ev.Asset, ev.Creator}
		values = []interface{}{ev.Name, ev.Symbol, ev.Description, ev.Price.ToBig(), ev.McapInEth.ToBig()}
	case Trade:
		indexed = []common.Address{ev.Asset, ev.Participant}
		values = []interface{}{
			ev.IsBuy, ev.AmountIn.ToBig(), ev.AmountOut.ToBig(), ev.Fee.ToBig(),
			ev.EthReserve.ToBig(), ev.TokenReserve.ToBig(), ev.VirtualEthReserve.ToBig(), ev.Price.ToBig(),
		}
	case Graduated:
		indexed = []common.Address{ev.Asset, ev.Headmaster}
		values = []interface{}{ev.PoolID, ev.CurrencyAmount.ToBig(), ev.TokenAmount.ToBig(), ev.Fee.ToBig()}
	default:
		return model.LogRecord{}, fmt.Errorf("unsupported event type %T", env.Event)
	}

	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("pack %s: %w", name, err)
	}

	topics := make([]string, 0, len(indexed)+1)
	topics = append(topics, event.ID.Hex())
	for _, addr := range indexed {
		topics = append(topics, common.BytesToHash(addr.Bytes()).Hex())
	}

	return model.LogRecord{
		ChainID:     chainID,
		BlockNumber: env.BlockNumber,
		TxHash:      env.TxHash.Hex(),
		LogIndex:    env.LogIndex,
		Address:     env.Emitter.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(data),
		Timestamp:   env.Timestamp,
	}, nil
}
