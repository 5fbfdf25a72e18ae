package qrlbridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/qrlwallet/go-bridge/derivation"
	"github.com/qrlwallet/go-bridge/device"
	"github.com/qrlwallet/go-bridge/explorer"
	"github.com/qrlwallet/go-bridge/history"
	"github.com/qrlwallet/go-bridge/internal/metrics"
	"github.com/qrlwallet/go-bridge/types"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

func (b *qrlBridge) ScanAccountsOnDevice(
	ctx context.Context, currency types.Currency, deviceID string,
) (<-chan types.ScanEvent, func()) {
	return startStream(ctx, func(ctx context.Context, emit func(types.ScanEvent) bool) {
		err := b.scan(ctx, currency, deviceID, func(account types.Account) bool {
			if !emit(types.ScanEvent{Account: &account}) {
				return false
			}
			b.metrics.AccountDiscovered()
			return true
		})

		if ctx.Err() != nil {
			log.Debugf("scan: cancelled on device %s", deviceID)
			b.metrics.ScanDone(metrics.OutcomeCancelled)
			return
		}
		if err != nil {
			log.WithError(err).Warnf("scan: failed on device %s", deviceID)
			b.metrics.ScanDone(metrics.OutcomeFailure)
			emit(types.ScanEvent{Err: err})
			return
		}
		b.metrics.ScanDone(metrics.OutcomeSuccess)
	})
}

// scan walks every derivation mode of the currency and yields the accounts
// found. A path with no on-chain history ends the scan of its mode; in the
// default mode a placeholder account is yielded for it first.
func (b *qrlBridge) scan(
	ctx context.Context, currency types.Currency, deviceID string,
	yield func(types.Account) bool,
) error {
	dev, err := b.devices.Device(deviceID)
	if err != nil {
		return fmt.Errorf("failed to open device %s: %w", deviceID, err)
	}

	height, err := b.explorer.GetHeight(ctx)
	if err != nil {
		return err
	}

	for _, mode := range derivation.ModesForCurrency(currency) {
		stopAt := 1
		if derivation.IsIterable(mode) {
			stopAt = b.scanLimit
		}

		for index := 0; index < stopAt; index++ {
			if !derivation.SupportsIndex(mode, index) {
				continue
			}

			account, found, err := b.scanPath(ctx, dev, currency, mode, index, height)
			if err != nil {
				return err
			}
			if !found {
				if mode == derivation.ModeDefault && !yield(*account) {
					return nil
				}
				log.Debugf("scan: %s unused, stopping mode %q", account.FreshAddressPath, mode)
				break
			}
			if !yield(*account) {
				return nil
			}
		}
	}
	return nil
}

// scanPath returns the account at the given path. found is false when the
// address has no on-chain history, the account is then an empty placeholder.
func (b *qrlBridge) scanPath(
	ctx context.Context, dev device.Device, currency types.Currency,
	mode types.DerivationMode, index int, height uint64,
) (*types.Account, bool, error) {
	path := derivation.NewDescriptor(mode, index).Path(currency)

	address, err := dev.GetAddress(ctx, path)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	log.Debugf("scan: derived address %s at %s", address, path)

	var unit types.Unit
	if len(currency.Units) > 0 {
		unit = currency.Units[0]
	}

	account := &types.Account{
		ID:                derivation.AccountID(currency, address, mode),
		SeedIdentifier:    address,
		DerivationMode:    mode,
		Index:             index,
		FreshAddress:      address,
		FreshAddressPath:  path,
		Balance:           decimal.Zero,
		BlockHeight:       height,
		Currency:          currency,
		Unit:              unit,
		Operations:        []types.Operation{},
		PendingOperations: []types.Operation{},
		LastSyncDate:      b.now(),
	}

	state, err := b.explorer.GetAddressState(ctx, address)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, false, ctxErr
	}
	if errors.Is(err, explorer.ErrAddressNotFound) {
		account.Name = derivation.NewAccountPlaceholderName(currency, index, mode)
		return account, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	balance, err := parseBalance(address, state.Balance)
	if err != nil {
		return nil, false, err
	}
	ops, err := txsToOperations(*account, state.Transactions, account.LastSyncDate)
	if err != nil {
		return nil, false, err
	}

	account.Name = derivation.PlaceholderName(currency, index, mode)
	account.Balance = balance
	account.Operations = history.Merge(nil, ops)
	return account, true, nil
}
