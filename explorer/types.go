package explorer

type AddressState struct {
	Address      string `json:"address"`
	Balance      string `json:"balance"`
	Nonce        string `json:"nonce"`
	Transactions []Tx   `json:"transactions"`
}

type Tx struct {
	AddressFrom     string   `json:"addressFrom"`
	SignerAddress   string   `json:"signerAddress,omitempty"`
	Fee             string   `json:"fee"`
	Nonce           string   `json:"nonce"`
	TransactionHash string   `json:"transactionHash"`
	AddressesTo     []string `json:"addressesTo"`
	Amounts         []string `json:"amounts"`
	TotalAmount     string   `json:"totalAmount,omitempty"`
	Block           *Block   `json:"block,omitempty"`
}

func (t Tx) IsConfirmed() bool {
	return t.Block != nil && t.Block.HeaderHash != ""
}

type Block struct {
	HeaderHash  string `json:"headerHash"`
	BlockNumber uint64 `json:"blockNumber"`
	Timestamp   string `json:"timestamp"`
}

// BroadcastResult mirrors the node reply to a broadcast. A non-zero Error
// means the transfer was rejected.
type BroadcastResult struct {
	Error           int    `json:"error"`
	ErrorMessage    string `json:"errorMessage"`
	TransactionHash string `json:"transactionHash"`
}

func (r BroadcastResult) Err() error {
	if r.Error == 0 {
		return nil
	}
	return &RejectedError{Code: r.Error, Message: r.ErrorMessage}
}
