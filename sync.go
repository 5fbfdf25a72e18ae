package qrlbridge

import (
	"context"
	"errors"

	"github.com/qrlwallet/go-bridge/explorer"
	"github.com/qrlwallet/go-bridge/history"
	"github.com/qrlwallet/go-bridge/internal/metrics"
	"github.com/qrlwallet/go-bridge/types"
	log "github.com/sirupsen/logrus"
)

func (b *qrlBridge) Sync(
	ctx context.Context, account types.Account,
) (<-chan types.SyncEvent, func()) {
	return startStream(ctx, func(ctx context.Context, emit func(types.SyncEvent) bool) {
		outcome, err := b.sync(ctx, account, func(patch types.Patch) bool {
			return emit(types.SyncEvent{Patch: patch})
		})

		if ctx.Err() != nil {
			log.Debugf("sync: cancelled for account %s", account.ID)
			b.metrics.SyncDone(metrics.OutcomeCancelled)
			return
		}
		if err != nil {
			log.WithError(err).Warnf("sync: failed for account %s", account.ID)
			b.metrics.SyncDone(metrics.OutcomeFailure)
			emit(types.SyncEvent{Err: err})
			return
		}
		b.metrics.SyncDone(outcome)
	})
}

// sync emits the balance patch before the operations patch. A failure after
// the balance patch does not undo it.
func (b *qrlBridge) sync(
	ctx context.Context, account types.Account, emit func(types.Patch) bool,
) (string, error) {
	height, err := b.explorer.GetHeight(ctx)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if height == account.BlockHeight {
		log.Debugf("sync: height unchanged at %d for account %s", height, account.ID)
		return metrics.OutcomeUnchanged, nil
	}

	state, err := b.explorer.GetAddressState(ctx, account.FreshAddress)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err != nil {
		// the address of a freshly created account has no history yet
		if !errors.Is(err, explorer.ErrAddressNotFound) {
			return "", err
		}
		state = &explorer.AddressState{Address: account.FreshAddress, Balance: "0"}
	}

	balance, err := parseBalance(account.FreshAddress, state.Balance)
	if err != nil {
		return "", err
	}
	if !emit(func(a types.Account) types.Account {
		a.Balance = balance
		return a
	}) {
		return "", ctx.Err()
	}

	syncTime := b.now()
	fetched, err := txsToOperations(account, state.Transactions, syncTime)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	log.Debugf(
		"sync: account %s at height %d, fetched %d operations",
		account.ID, height, len(fetched),
	)

	emit(func(a types.Account) types.Account {
		operations := history.Merge(a.Operations, fetched)
		a.PendingOperations = history.ReconcilePending(operations, a.PendingOperations)
		a.Operations = operations
		a.BlockHeight = height
		a.LastSyncDate = syncTime
		return a
	})
	return metrics.OutcomeSuccess, nil
}

// PullMoreOperations returns the identity patch: address state already
// carries the full history.
func (b *qrlBridge) PullMoreOperations(
	_ context.Context, _ types.Account,
) (types.Patch, error) {
	return types.IdentityPatch, nil
}
