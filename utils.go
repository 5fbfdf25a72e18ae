package qrlbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/qrlwallet/go-bridge/explorer"
	"github.com/qrlwallet/go-bridge/internal/utils"
	"github.com/qrlwallet/go-bridge/types"
	"github.com/shopspring/decimal"
)

// startStream runs fn in its own goroutine and forwards what it emits on an
// unbuffered channel closed when fn returns. emit reports false once the
// stream is cancelled, fn must then return without further calls.
// A send racing with cancel may still be delivered: readers discard what
// they receive after calling cancel.
func startStream[T any](
	parent context.Context, fn func(ctx context.Context, emit func(T) bool),
) (<-chan T, func()) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan T)

	go func() {
		defer close(ch)
		defer cancel()

		fn(ctx, func(ev T) bool {
			if ctx.Err() != nil {
				return false
			}
			select {
			case ch <- ev:
				return ctx.Err() == nil
			case <-ctx.Done():
				return false
			}
		})
	}()

	return ch, cancel
}

func parseBalance(address, value string) (decimal.Decimal, error) {
	balance, err := utils.ParseAPIValue(value)
	if err != nil || balance.IsNegative() {
		return decimal.Zero, &InvalidBalanceError{Address: address, Value: value}
	}
	return balance, nil
}

func txsToOperations(
	account types.Account, txs []explorer.Tx, syncTime time.Time,
) ([]types.Operation, error) {
	ops := make([]types.Operation, 0, len(txs))
	for _, tx := range txs {
		op, err := txToOperation(account, tx, syncTime)
		if err != nil {
			return nil, fmt.Errorf("tx %s: %w", tx.TransactionHash, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// txToOperation projects a chain transaction on the account. Outgoing values
// include the fee. Unconfirmed transactions are dated at syncTime.
func txToOperation(
	account types.Account, tx explorer.Tx, syncTime time.Time,
) (types.Operation, error) {
	if tx.TransactionHash == "" {
		return types.Operation{}, fmt.Errorf("missing transaction hash")
	}

	opType := types.OperationIn
	if tx.AddressFrom == account.FreshAddress {
		opType = types.OperationOut
	}

	value, err := txValue(tx)
	if err != nil {
		return types.Operation{}, err
	}
	fee, err := utils.ParseOptionalAPIValue(tx.Fee)
	if err != nil {
		return types.Operation{}, fmt.Errorf("invalid fee: %w", err)
	}
	if opType == types.OperationOut {
		value = value.Add(fee)
	}

	nonce, err := utils.ParseOptionalAPIValue(tx.Nonce)
	if err != nil {
		return types.Operation{}, fmt.Errorf("invalid nonce: %w", err)
	}
	seq, err := utils.ToUint64(nonce)
	if err != nil {
		return types.Operation{}, fmt.Errorf("invalid nonce: %w", err)
	}

	op := types.Operation{
		ID:                        types.OperationID(account.ID, tx.TransactionHash, opType),
		Hash:                      tx.TransactionHash,
		AccountID:                 account.ID,
		Type:                      opType,
		Value:                     value,
		Fee:                       fee,
		Senders:                   []string{tx.AddressFrom},
		Recipients:                append([]string{}, tx.AddressesTo...),
		Date:                      syncTime,
		TransactionSequenceNumber: seq,
		Extra:                     map[string]any{},
	}

	if tx.IsConfirmed() {
		date, err := utils.ParseTimestamp(tx.Block.Timestamp)
		if err != nil {
			return types.Operation{}, fmt.Errorf("invalid block timestamp: %w", err)
		}
		op.Date = date
		op.Block = &types.BlockRef{
			Hash:   tx.Block.HeaderHash,
			Height: tx.Block.BlockNumber,
		}
	}

	return op, nil
}

// txValue is the total amount, or the sum of the amounts when the node
// omits it.
func txValue(tx explorer.Tx) (decimal.Decimal, error) {
	if tx.TotalAmount != "" {
		value, err := utils.ParseAPIValue(tx.TotalAmount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid total amount: %w", err)
		}
		return value, nil
	}

	total := decimal.Zero
	for _, amount := range tx.Amounts {
		value, err := utils.ParseAPIValue(amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount: %w", err)
		}
		total = total.Add(value)
	}
	return total, nil
}
