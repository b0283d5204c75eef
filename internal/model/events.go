package model

// TokenCreatedEventData is the decoded TokenCreated payload.
type TokenCreatedEventData struct {
	Asset       string `json:"asset"`
	Creator     string `json:"creator"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Price       string `json:"price"`
	McapInEth   string `json:"mcap_in_eth"`
}

// TradeEventData is the decoded Trade payload.
type TradeEventData struct {
	Asset             string `json:"asset"`
	Participant       string `json:"participant"`
	IsBuy             bool   `json:"is_buy"`
	AmountIn          string `json:"amount_in"`
	AmountOut         string `json:"amount_out"`
	Fee               string `json:"fee"`
	EthReserve        string `json:"eth_reserve"`
	TokenReserve      string `json:"token_reserve"`
	VirtualEthReserve string `json:"virtual_eth_reserve"`
	Price             string `json:"price"`
}

// GraduatedEventData is the decoded Graduated payload.
type GraduatedEventData struct {
	Asset          string `json:"asset"`
	Headmaster     string `json:"headmaster"`
	PoolID         string `json:"pool_id"`
	CurrencyAmount string `json:"currency_amount"`
	TokenAmount    string `json:"token_amount"`
	Fee            string `json:"fee"`
}

// TypedEvent is a decoded engine event.
type TypedEvent struct {
	BlockNumber uint64      `json:"block_number"`
	TxHash      string      `json:"tx_hash"`
	LogIndex    uint64      `json:"log_index"`
	Address     string      `json:"address"`
	EventName   string      `json:"event_name"`
	Timestamp   uint64      `json:"timestamp"`
	Decoded     interface{} `json:"decoded"`
}
