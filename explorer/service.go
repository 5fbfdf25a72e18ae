package explorer

import (
	"context"

	"github.com/qrlwallet/go-bridge/types"
)

// Explorer is the remote ledger API the bridge reads chain state from and
// submits signed transfers to. Numeric fields are returned as the wire
// encoded decimal strings, parsing is left to the caller.
type Explorer interface {
	// GetHeight returns the current chain height.
	GetHeight(ctx context.Context) (uint64, error)

	// GetAddressState returns balance and transactions of an address.
	// Unused addresses fail with ErrAddressNotFound.
	GetAddressState(ctx context.Context, address string) (*AddressState, error)

	// GetEstimatedNetworkFee returns the fee suggested by the node, in shor.
	GetEstimatedNetworkFee(ctx context.Context) (string, error)

	// BroadcastTransferTx submits a signed transfer. A rejection by the node
	// is reported through BroadcastResult.Error, not as a Go error.
	BroadcastTransferTx(ctx context.Context, tx types.TransferTx) (*BroadcastResult, error)

	// BaseUrl returns the base URL of the remote API.
	BaseUrl() string
}
