package qrlbridge

import (
	"context"
	"testing"
	"time"

	"github.com/qrlwallet/go-bridge/device"
	"github.com/qrlwallet/go-bridge/explorer"
	"github.com/qrlwallet/go-bridge/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	addrDefault0 = types.EncodeAddress([3]byte{0x01, 0x06, 0x00}, [32]byte{0x10})
	addrDefault1 = types.EncodeAddress([3]byte{0x01, 0x06, 0x00}, [32]byte{0x11})
	addrLegacy0  = types.EncodeAddress([3]byte{0x01, 0x06, 0x00}, [32]byte{0x20})
	addrOther    = types.EncodeAddress([3]byte{0x01, 0x06, 0x00}, [32]byte{0x30})
)

type mockExplorer struct {
	mock.Mock
}

func (m *mockExplorer) GetHeight(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockExplorer) GetAddressState(
	ctx context.Context, address string,
) (*explorer.AddressState, error) {
	args := m.Called(ctx, address)
	state, _ := args.Get(0).(*explorer.AddressState)
	return state, args.Error(1)
}

func (m *mockExplorer) GetEstimatedNetworkFee(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockExplorer) BroadcastTransferTx(
	ctx context.Context, tx types.TransferTx,
) (*explorer.BroadcastResult, error) {
	args := m.Called(ctx, tx)
	res, _ := args.Get(0).(*explorer.BroadcastResult)
	return res, args.Error(1)
}

func (m *mockExplorer) BaseUrl() string {
	return "http://mock"
}

type mockDevice struct {
	mock.Mock
}

func (m *mockDevice) GetAddress(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

func (m *mockDevice) SignTransfer(
	ctx context.Context, path string, payload device.TransferPayload,
) (*device.Signature, error) {
	args := m.Called(ctx, path, payload)
	sig, _ := args.Get(0).(*device.Signature)
	return sig, args.Error(1)
}

func newTestBridge(
	t *testing.T, exp *mockExplorer, dev *mockDevice, opts ...Option,
) *qrlBridge {
	provider := device.ProviderFunc(func(deviceID string) (device.Device, error) {
		require.Equal(t, "dev1", deviceID)
		return dev, nil
	})
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	b, err := NewBridge(exp, provider, opts...)
	require.NoError(t, err)
	return b.(*qrlBridge)
}

func collect[T any](t *testing.T, ch <-chan T) []T {
	events := make([]T, 0)
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("stream did not complete")
		}
	}
}

func testAccount() types.Account {
	return types.Account{
		ID:               "qrljs:2:qrl:" + addrDefault0 + ":",
		SeedIdentifier:   addrDefault0,
		FreshAddress:     addrDefault0,
		FreshAddressPath: "44'/238'/0'/0/0",
		Currency:         types.QRL,
		Unit:             types.QRL.Units[0],
		BlockHeight:      100,
	}
}
