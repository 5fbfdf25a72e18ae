package qrlbridge

import (
	"fmt"
	"time"

	"github.com/qrlwallet/go-bridge/device"
	"github.com/qrlwallet/go-bridge/explorer"
	"github.com/qrlwallet/go-bridge/history"
	"github.com/qrlwallet/go-bridge/internal/metrics"
	"github.com/qrlwallet/go-bridge/types"
)

const defaultScanLimit = 1

type qrlBridge struct {
	explorer   explorer.Explorer
	devices    device.Provider
	scanLimit  int
	recipients *RecipientCache
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewBridge returns the QRL bridge reading chain state from explorerSvc and
// signing with the devices resolved by devices.
func NewBridge(
	explorerSvc explorer.Explorer, devices device.Provider, opts ...Option,
) (Bridge, error) {
	if explorerSvc == nil {
		return nil, fmt.Errorf("missing explorer")
	}
	if devices == nil {
		return nil, fmt.Errorf("missing device provider")
	}

	b := &qrlBridge{
		explorer:   explorerSvc,
		devices:    devices,
		scanLimit:  defaultScanLimit,
		recipients: NewRecipientCache(),
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *qrlBridge) Family() string {
	return types.FamilyQRL
}

func (b *qrlBridge) AddPendingOperation(
	account types.Account, op types.Operation,
) types.Account {
	return history.AddPendingOperation(account, op)
}
