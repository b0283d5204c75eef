package events

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"launchpad/internal/model"
)

var (
	emitter     = common.HexToAddress("0xe000000000000000000000000000000000000001")
	asset       = common.HexToAddress("0x1111111111111111111111111111111111111111")
	participant = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func envelope(ev Event) Envelope {
	return Envelope{
		Emitter:     emitter,
		BlockNumber: 12345,
		Timestamp:   1700000000,
		TxHash:      crypto.Keccak256Hash([]byte("tx")),
		LogIndex:    1,
		Event:       ev,
	}
}

func TestEncodeDecodeTrade(t *testing.T) {
	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	rec, err := Encode(31337, envelope(Trade{
		Asset:             asset,
		Participant:       participant,
		IsBuy:             true,
		AmountIn:          *uint256.NewInt(1_000),
		AmountOut:         *uint256.MustFromDecimal("987654321987654321987654321"),
		Fee:               *uint256.NewInt(10),
		EthReserve:        *uint256.NewInt(990),
		TokenReserve:      *uint256.NewInt(5),
		VirtualEthReserve: *uint256.NewInt(30_990),
		Price:             *uint256.NewInt(77),
	}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if rec.ChainID != 31337 || rec.Address != emitter.Hex() || len(rec.Topics) != 3 {
		t.Fatalf("record mismatch: %+v", rec)
	}

	engineABI, _ := EngineABI()
	if rec.Topic0() != engineABI.Events["Trade"].ID.Hex() {
		t.Fatalf("topic0 mismatch")
	}
	if !decoder.CanDecode(rec.Topic0()) {
		t.Fatalf("decoder should accept trade topic")
	}

	event, err := decoder.Decode(rec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	trade, ok := event.Decoded.(model.TradeEventData)
	if !ok {
		t.Fatalf("decoded type mismatch: %T", event.Decoded)
	}
	if trade.AmountIn != "1000" || trade.AmountOut != "987654321987654321987654321" || !trade.IsBuy {
		t.Fatalf("trade mismatch: %+v", trade)
	}
	if trade.Asset != asset.Hex() || trade.Participant != participant.Hex() {
		t.Fatalf("address mismatch")
	}
	if event.EventName != "Trade" || event.BlockNumber != 12345 || event.LogIndex != 1 {
		t.Fatalf("envelope mismatch: %+v", event)
	}
}

func TestEncodeDecodeTokenCreated(t *testing.T) {
	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	rec, err := Encode(1, envelope(TokenCreated{
		Asset:       asset,
		Creator:     participant,
		Name:        "Frog",
		Symbol:      "FROG",
		Description: "ribbit",
		Price:       *uint256.NewInt(27958993476),
		McapInEth:   *uint256.NewInt(27),
	}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	event, err := decoder.Decode(rec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	created, ok := event.Decoded.(model.TokenCreatedEventData)
	if !ok {
		t.Fatalf("decoded type mismatch: %T", event.Decoded)
	}
	if created.Symbol != "FROG" || created.Description != "ribbit" || created.Price != "27958993476" {
		t.Fatalf("created mismatch: %+v", created)
	}
}

func TestEncodeDecodeGraduated(t *testing.T) {
	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	pool := common.HexToAddress("0x4444444444444444444444444444444444444444")
	headmaster := common.HexToAddress("0x3333333333333333333333333333333333333333")

	rec, err := Encode(1, envelope(Graduated{
		Asset:          asset,
		Headmaster:     headmaster,
		PoolID:         pool,
		CurrencyAmount: *uint256.NewInt(80),
		TokenAmount:    *uint256.NewInt(206_900_000),
		Fee:            *uint256.NewInt(5),
	}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	event, err := decoder.Decode(rec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	grad, ok := event.Decoded.(model.GraduatedEventData)
	if !ok {
		t.Fatalf("decoded type mismatch: %T", event.Decoded)
	}
	if grad.PoolID != pool.Hex() || grad.Headmaster != headmaster.Hex() || grad.TokenAmount != "206900000" {
		t.Fatalf("graduated mismatch: %+v", grad)
	}
}

func TestDecodeRejectsUnknownTopic(t *testing.T) {
	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	rec := model.LogRecord{Topics: []string{
		crypto.Keccak256Hash([]byte("Nope()")).Hex(),
		common.Hash{}.Hex(),
		common.Hash{}.Hex(),
	}, Data: "0x"}
	if decoder.CanDecode(rec.Topic0()) {
		t.Fatalf("unknown topic should not be decodable")
	}
	if _, err := decoder.Decode(rec); err == nil {
		t.Fatalf("expected error for unknown topic")
	}
}
