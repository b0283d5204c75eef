package events

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"launchpad/internal/model"
)

// Decoder turns engine log records back into typed events.
type Decoder struct {
	engineABI   abi.ABI
	topicToName map[string]string
}

// NewDecoder builds a decoder for the engine ABI.
func NewDecoder() (*Decoder, error) {
	engineABI, err := EngineABI()
	if err != nil {
		return nil, err
	}
	topicToName := make(map[string]string, len(engineABI.Events))
	for name, event := range engineABI.Events {
		topicToName[strings.ToLower(event.ID.Hex())] = name
	}
	return &Decoder{engineABI: engineABI, topicToName: topicToName}, nil
}

// CanDecode checks if the topic0 is an engine event.
func (d *Decoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a TypedEvent.
func (d *Decoder) Decode(log model.LogRecord) (*model.TypedEvent, error) {
	if len(log.Topics) != 3 {
		return nil, fmt.Errorf("unexpected topic count: %d", len(log.Topics))
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	event := d.engineABI.Events[name]

	first, err := topicAddress(log.Topics[1])
	if err != nil {
		return nil, err
	}
	second, err := topicAddress(log.Topics[2])
	if err != nil {
		return nil, err
	}

	data, err := hexutil.Decode(log.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", name, err)
	}

	var decoded interface{}
	switch name {
	case "TokenCreated":
		decoded, err = decodeTokenCreated(first, second, values)
	case "Trade":
		decoded, err = decodeTrade(first, second, values)
	case "Graduated":
		decoded, err = decodeGraduated(first, second, values)
	default:
		err = fmt.Errorf("unsupported event name: %s", name)
	}
	if err != nil {
		return nil, err
	}

	return &model.TypedEvent{
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		EventName:   name,
		Timestamp:   log.Timestamp,
		Decoded:     decoded,
	}, nil
}

func decodeTokenCreated(asset, creator common.Address, values []interface{}) (model.TokenCreatedEventData, error) {
	if len(values) != 5 {
		return model.TokenCreatedEventData{}, fmt.Errorf("unexpected TokenCreated values: %d", len(values))
	}
	strs := make([]string, 3)
	for i := range strs {
		s, ok := values[i].(string)
		if !ok {
			return model.TokenCreatedEventData{}, fmt.Errorf("unexpected string type %T", values[i])
		}
		strs[i] = s
	}
	nums, err := bigStrings(values[3:])
	if err != nil {
		return model.TokenCreatedEventData{}, err
	}
	return model.TokenCreatedEventData{
		Asset:       asset.Hex(),
		Creator:     creator.Hex(),
		Name:        strs[0],
		Symbol:      strs[1],
		Description: strs[2],
		Price:       nums[0],
		McapInEth:   nums[1],
	}, nil
}

func decodeTrade(asset, participant common.Address, values []interface{}) (model.TradeEventData, error) {
	if len(values) != 8 {
		return model.TradeEventData{}, fmt.Errorf("unexpected Trade values: %d", len(values))
	}
	isBuy, ok := values[0].(bool)
	if !ok {
		return model.TradeEventData{}, fmt.Errorf("unexpected bool type %T", values[0])
	}
	nums, err := bigStrings(values[1:])
	if err != nil {
		return model.TradeEventData{}, err
	}
	return model.TradeEventData{
		Asset:             asset.Hex(),
		Participant:       participant.Hex(),
		IsBuy:             isBuy,
		AmountIn:          nums[0],
		AmountOut:         nums[1],
		Fee:               nums[2],
		EthReserve:        nums[3],
		TokenReserve:      nums[4],
		VirtualEthReserve: nums[5],
		Price:             nums[6],
	}, nil
}

func decodeGraduated(asset, headmaster common.Address, values []interface{}) (model.GraduatedEventData, error) {
	if len(values) != 4 {
		return model.GraduatedEventData{}, fmt.Errorf("unexpected Graduated values: %d", len(values))
	}
	poolID, ok := values[0].(common.Address)
	if !ok {
		return model.GraduatedEventData{}, fmt.Errorf("unexpected address type %T", values[0])
	}
	nums, err := bigStrings(values[1:])
	if err != nil {
		return model.GraduatedEventData{}, err
	}
	return model.GraduatedEventData{
		Asset:          asset.Hex(),
		Headmaster:     headmaster.Hex(),
		PoolID:         poolID.Hex(),
		CurrencyAmount: nums[0],
		TokenAmount:    nums[1],
		Fee:            nums[2],
	}, nil
}

func topicAddress(topic string) (common.Address, error) {
	data, err := hexutil.Decode(topic)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid topic: %w", err)
	}
	if len(data) != common.HashLength {
		return common.Address{}, fmt.Errorf("invalid topic length: %d", len(data))
	}
	return common.BytesToAddress(data), nil
}

func bigStrings(values []interface{}) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, value := range values {
		v, ok := value.(*big.Int)
		if !ok {
			return nil, fmt.Errorf("unexpected int type %T", value)
		}
		out = append(out, v.String())
	}
	return out, nil
}
