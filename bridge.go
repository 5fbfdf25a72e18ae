package qrlbridge

import (
	"context"

	"github.com/qrlwallet/go-bridge/types"
	"github.com/shopspring/decimal"
)

// CurrencyBridge discovers accounts on a signing device.
type CurrencyBridge interface {
	// ScanAccountsOnDevice streams the accounts found on the device. The
	// stream ends with at most one event carrying an error. Cancelling ctx
	// or calling the returned func stops the scan without an error event.
	ScanAccountsOnDevice(
		ctx context.Context, currency types.Currency, deviceID string,
	) (<-chan types.ScanEvent, func())
}

// AccountBridge keeps an account in sync and drives its outgoing transfers.
// Accounts are never mutated: changes are returned as values or patches for
// the host to apply in order.
//
// Streams stop producing once cancelled. An event handed over while cancel
// runs may still be read; hosts drop events read after calling cancel.
type AccountBridge interface {
	// Sync streams a balance patch followed by an operations patch. Nothing
	// is emitted when the chain height did not change.
	Sync(ctx context.Context, account types.Account) (<-chan types.SyncEvent, func())
	PullMoreOperations(ctx context.Context, account types.Account) (types.Patch, error)

	CreateTransaction(account types.Account) types.Transaction
	EditTransactionAmount(
		account types.Account, t types.Transaction, amount decimal.Decimal,
	) types.Transaction
	GetTransactionAmount(account types.Account, t types.Transaction) decimal.Decimal
	EditTransactionRecipient(
		account types.Account, t types.Transaction, recipient string,
	) types.Transaction
	GetTransactionRecipient(account types.Account, t types.Transaction) string
	EditTransactionExtra(
		account types.Account, t types.Transaction, field string, value any,
	) (types.Transaction, error)
	GetTransactionExtra(account types.Account, t types.Transaction, field string) (any, error)
	ApplyTransactionExtras(
		account types.Account, t types.Transaction, extras map[string]any,
	) (types.Transaction, error)

	FetchTransactionNetworkInfo(
		ctx context.Context, account types.Account,
	) (*types.NetworkInfo, error)
	GetTransactionNetworkInfo(account types.Account, t types.Transaction) *types.NetworkInfo
	ApplyTransactionNetworkInfo(
		account types.Account, t types.Transaction, info types.NetworkInfo,
	) types.Transaction
	PrepareTransaction(
		ctx context.Context, account types.Account, t types.Transaction,
	) (types.Transaction, error)

	CheckValidRecipient(account types.Account, recipient string) error
	GetRecipientWarning(account types.Account, recipient string) error
	CheckValidTransaction(account types.Account, t types.Transaction) error
	GetTotalSpent(account types.Account, t types.Transaction) decimal.Decimal
	GetMaxAmount(account types.Account, t types.Transaction) decimal.Decimal

	// SignAndBroadcast streams TxSigned then TxBroadcasted with the
	// speculative operation the host must fold in with AddPendingOperation.
	// Once cancelled the transfer is not broadcast, even if the device
	// already signed it.
	SignAndBroadcast(
		ctx context.Context, account types.Account, t types.Transaction, deviceID string,
	) (<-chan types.BroadcastEvent, func())
	AddPendingOperation(account types.Account, op types.Operation) types.Account
}

type Bridge interface {
	CurrencyBridge
	AccountBridge

	// Family is the currency family served by the bridge.
	Family() string
}
