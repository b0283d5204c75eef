package model

// Request is one line of a simulation journal. Amounts are decimal strings in
// base units; unused fields are ignored for the given Op.
type Request struct {
	Op           string `json:"op"`
	Caller       string `json:"caller"`
	Asset        string `json:"asset,omitempty"`
	Symbol       string `json:"symbol,omitempty"`
	Name         string `json:"name,omitempty"`
	Description  string `json:"description,omitempty"`
	Value        string `json:"value,omitempty"`
	Amount       string `json:"amount,omitempty"`
	AmountOutMin string `json:"amount_out_min,omitempty"`
	Recipient    string `json:"recipient,omitempty"`
	Deadline     uint64 `json:"deadline,omitempty"`
	Paused       bool   `json:"paused,omitempty"`
}
