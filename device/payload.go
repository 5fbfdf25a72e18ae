package device

import (
	"encoding/binary"
	"fmt"

	"github.com/qrlwallet/go-bridge/types"
	"github.com/shopspring/decimal"
)

// TransferPayload is the transfer in the binary form the device app
// expects: raw address bytes and big-endian uint64 amounts.
type TransferPayload struct {
	SourceAddress []byte
	Fee           []byte
	AddressesTo   [][]byte
	Amounts       [][]byte
	OTSIndex      *uint32
}

func EncodeTransfer(tx types.TransferTx) (*TransferPayload, error) {
	if len(tx.AddressesTo) == 0 {
		return nil, fmt.Errorf("transfer has no recipient")
	}
	if len(tx.AddressesTo) != len(tx.Amounts) {
		return nil, fmt.Errorf(
			"got %d recipients and %d amounts", len(tx.AddressesTo), len(tx.Amounts),
		)
	}

	source, err := types.DecodeAddress(tx.SourceAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid source address: %w", err)
	}
	fee, err := encodeAmount(tx.Fee)
	if err != nil {
		return nil, fmt.Errorf("invalid fee: %w", err)
	}

	payload := &TransferPayload{
		SourceAddress: source,
		Fee:           fee,
		AddressesTo:   make([][]byte, 0, len(tx.AddressesTo)),
		Amounts:       make([][]byte, 0, len(tx.Amounts)),
		OTSIndex:      tx.OTSIndex,
	}
	for i, addr := range tx.AddressesTo {
		to, err := types.DecodeAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient %d: %w", i, err)
		}
		amount, err := encodeAmount(tx.Amounts[i])
		if err != nil {
			return nil, fmt.Errorf("invalid amount %d: %w", i, err)
		}
		payload.AddressesTo = append(payload.AddressesTo, to)
		payload.Amounts = append(payload.Amounts, amount)
	}
	return payload, nil
}

func encodeAmount(amount decimal.Decimal) ([]byte, error) {
	if !amount.IsInteger() {
		return nil, fmt.Errorf("%s is not an integer amount of shor", amount)
	}
	n := amount.BigInt()
	if !n.IsUint64() {
		return nil, fmt.Errorf("%s does not fit in uint64", amount)
	}
	return binary.BigEndian.AppendUint64(nil, n.Uint64()), nil
}
