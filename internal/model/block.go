package model

// BlockTime is the timestamp and height an operation executes at.
type BlockTime struct {
	Timestamp uint64
	Number    uint64
}
