package qrlbridge

import (
	"context"
	"fmt"

	"github.com/qrlwallet/go-bridge/device"
	"github.com/qrlwallet/go-bridge/history"
	"github.com/qrlwallet/go-bridge/internal/metrics"
	"github.com/qrlwallet/go-bridge/types"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

func (b *qrlBridge) SignAndBroadcast(
	ctx context.Context, account types.Account, t types.Transaction, deviceID string,
) (<-chan types.BroadcastEvent, func()) {
	return startStream(ctx, func(ctx context.Context, emit func(types.BroadcastEvent) bool) {
		err := b.signAndBroadcast(ctx, account, t, deviceID, emit)

		if ctx.Err() != nil {
			log.Debugf("broadcast: cancelled for account %s", account.ID)
			b.metrics.BroadcastDone(metrics.OutcomeCancelled)
			return
		}
		if err != nil {
			log.WithError(err).Warnf("broadcast: failed for account %s", account.ID)
			b.metrics.BroadcastDone(metrics.OutcomeFailure)
			emit(types.BroadcastEvent{Err: err})
			return
		}
		b.metrics.BroadcastDone(metrics.OutcomeSuccess)
	})
}

func (b *qrlBridge) signAndBroadcast(
	ctx context.Context, account types.Account, t types.Transaction, deviceID string,
	emit func(types.BroadcastEvent) bool,
) error {
	state := types.TxDraft
	fail := func(err error) error {
		return &PipelineError{State: state, Err: err}
	}
	advance := func(next types.TxState) {
		log.Debugf("broadcast: %s -> %s for account %s", state, next, account.ID)
		state = next
	}

	if err := b.CheckValidRecipient(account, t.Recipient); err != nil {
		return fail(err)
	}

	t, err := b.PrepareTransaction(ctx, account, t)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrFeeNotLoaded, err))
	}
	advance(types.TxPrepared)

	if t.Fee == nil {
		return fail(ErrFeeNotLoaded)
	}
	if err := b.CheckValidTransaction(account, t); err != nil {
		return fail(err)
	}
	advance(types.TxValidated)

	transfer := types.TransferTx{
		SourceAddress: account.FreshAddress,
		AddressesTo:   []string{t.Recipient},
		Amounts:       []decimal.Decimal{t.Amount},
		Fee:           *t.Fee,
		OTSIndex:      t.OTSIndex,
	}
	payload, err := device.EncodeTransfer(transfer)
	if err != nil {
		return fail(err)
	}
	dev, err := b.devices.Device(deviceID)
	if err != nil {
		return fail(err)
	}
	advance(types.TxAwaitingSignature)

	sig, err := dev.SignTransfer(ctx, account.FreshAddressPath, *payload)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err != nil {
		return fail(err)
	}
	advance(types.TxStateSigned)
	if !emit(types.BroadcastEvent{Type: types.TxSigned}) {
		return ctx.Err()
	}

	transfer.PublicKey = sig.PublicKey
	transfer.Signature = sig.Signature

	if err := ctx.Err(); err != nil {
		return err
	}
	advance(types.TxBroadcasting)

	res, err := b.explorer.BroadcastTransferTx(ctx, transfer)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err != nil {
		return fail(err)
	}
	if err := res.Err(); err != nil {
		return fail(err)
	}
	if res.TransactionHash == "" {
		return fail(fmt.Errorf("broadcast reply without transaction hash"))
	}
	advance(types.TxStateBroadcasted)

	op := b.pendingOperation(account, t, res.TransactionHash)
	b.recipients.InvalidateAccount(account.ID)
	emit(types.BroadcastEvent{Type: types.TxBroadcasted, Operation: &op})
	return nil
}

// pendingOperation builds the speculative outgoing operation of a broadcast
// transfer. Its sequence number is only a local guess, sync replaces the
// operation once the confirmed one is seen.
func (b *qrlBridge) pendingOperation(
	account types.Account, t types.Transaction, hash string,
) types.Operation {
	fee := feeOrZero(t)
	return types.Operation{
		ID:                        types.OperationID(account.ID, hash, types.OperationOut),
		Hash:                      hash,
		AccountID:                 account.ID,
		Type:                      types.OperationOut,
		Value:                     t.Amount.Add(fee),
		Fee:                       fee,
		Senders:                   []string{account.FreshAddress},
		Recipients:                []string{t.Recipient},
		Date:                      b.now(),
		TransactionSequenceNumber: history.NextSequenceNumber(account),
		Extra:                     map[string]any{},
	}
}
