package qrlbridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qrlwallet/go-bridge/device"
	"github.com/qrlwallet/go-bridge/explorer"
	"github.com/qrlwallet/go-bridge/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fundedAccount() types.Account {
	account := testAccount()
	account.Balance = decimal.NewFromInt(1000)
	account.Operations = []types.Operation{{
		ID:                        account.ID + "-h1-IN",
		Hash:                      "h1",
		Type:                      types.OperationIn,
		Value:                     decimal.NewFromInt(1000),
		TransactionSequenceNumber: 4,
	}}
	account.PendingOperations = []types.Operation{{
		ID:                        account.ID + "-p1-OUT",
		Hash:                      "p1",
		TransactionSequenceNumber: 5,
	}}
	return account
}

func draft(b *qrlBridge, account types.Account, amount int64) types.Transaction {
	tx := b.CreateTransaction(account)
	tx = b.EditTransactionRecipient(account, tx, addrOther)
	return b.EditTransactionAmount(account, tx, decimal.NewFromInt(amount))
}

var testSignature = &device.Signature{PublicKey: "aa", Signature: "bb"}

func TestSignAndBroadcast(t *testing.T) {
	cache := NewRecipientCache()
	exp := &mockExplorer{}
	dev := &mockDevice{}
	exp.On("GetEstimatedNetworkFee", mock.Anything).Return("10", nil)
	dev.On("SignTransfer", mock.Anything, "44'/238'/0'/0/0", mock.Anything).
		Return(testSignature, nil)
	exp.On("BroadcastTransferTx", mock.Anything, mock.MatchedBy(func(tx types.TransferTx) bool {
		return tx.IsSigned() && tx.SourceAddress == addrDefault0 && tx.Fee.Equal(decimal.NewFromInt(10))
	})).Return(&explorer.BroadcastResult{TransactionHash: "h9"}, nil)

	b := newTestBridge(t, exp, dev, WithRecipientCache(cache))
	account := fundedAccount()
	tx := draft(b, account, 100)
	require.NoError(t, b.CheckValidRecipient(account, addrOther))

	ch, cancel := b.SignAndBroadcast(context.Background(), account, tx, "dev1")
	defer cancel()
	events := collect(t, ch)

	require.Len(t, events, 2)
	require.NoError(t, events[0].Err)
	require.Equal(t, types.TxSigned, events[0].Type)
	require.Equal(t, types.TxBroadcasted, events[1].Type)

	op := events[1].Operation
	require.NotNil(t, op)
	require.Equal(t, "h9", op.Hash)
	require.Equal(t, account.ID+"-h9-OUT", op.ID)
	require.Equal(t, types.OperationOut, op.Type)
	require.Equal(t, "110", op.Value.String())
	require.Equal(t, "10", op.Fee.String())
	require.Equal(t, uint64(5), op.TransactionSequenceNumber)
	require.Equal(t, testNow, op.Date)
	require.Nil(t, op.Block)

	updated := b.AddPendingOperation(account, *op)
	require.Len(t, updated.PendingOperations, 2)
	require.Equal(t, "h9", updated.PendingOperations[0].Hash)

	_, ok := cache.Get(account.ID, addrOther)
	require.False(t, ok)

	dev.AssertNumberOfCalls(t, "SignTransfer", 1)
	exp.AssertNumberOfCalls(t, "BroadcastTransferTx", 1)
}

func TestSignAndBroadcastCancelAfterSigned(t *testing.T) {
	exp := &mockExplorer{}
	dev := &mockDevice{}
	release := make(chan struct{})
	exp.On("BroadcastTransferTx", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&explorer.BroadcastResult{TransactionHash: "h9"}, nil)
	dev.On("SignTransfer", mock.Anything, mock.Anything, mock.Anything).
		Return(testSignature, nil)

	b := newTestBridge(t, exp, dev)
	account := fundedAccount()
	tx := draft(b, account, 100)
	tx.Fee = dec(1)

	ch, cancel := b.SignAndBroadcast(context.Background(), account, tx, "dev1")
	defer cancel()

	select {
	case ev := <-ch:
		require.Equal(t, types.TxSigned, ev.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("no signed event")
	}

	cancel()
	close(release)
	require.Empty(t, collect(t, ch))
}

func TestSignAndBroadcastCancelWhileSigning(t *testing.T) {
	exp := &mockExplorer{}
	dev := &mockDevice{}
	signing := make(chan struct{})
	release := make(chan struct{})
	dev.On("SignTransfer", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(signing)
			<-release
		}).
		Return(testSignature, nil)

	b := newTestBridge(t, exp, dev)
	account := fundedAccount()
	tx := draft(b, account, 100)
	tx.Fee = dec(1)

	ch, cancel := b.SignAndBroadcast(context.Background(), account, tx, "dev1")
	defer cancel()

	select {
	case <-signing:
	case <-time.After(5 * time.Second):
		t.Fatal("device was never asked to sign")
	}

	cancel()
	close(release)
	require.Empty(t, collect(t, ch))
	dev.AssertNumberOfCalls(t, "SignTransfer", 1)
	exp.AssertNotCalled(t, "BroadcastTransferTx", mock.Anything, mock.Anything)
}

func TestSignAndBroadcastFailures(t *testing.T) {
	tests := []struct {
		name  string
		tx    func(b *qrlBridge, account types.Account) types.Transaction
		setup func(exp *mockExplorer, dev *mockDevice)
		check func(t *testing.T, err error, exp *mockExplorer, dev *mockDevice)
	}{
		{
			name: "self send",
			tx: func(b *qrlBridge, account types.Account) types.Transaction {
				tx := draft(b, account, 1)
				return b.EditTransactionRecipient(account, tx, account.FreshAddress)
			},
			setup: func(*mockExplorer, *mockDevice) {},
			check: func(t *testing.T, err error, exp *mockExplorer, dev *mockDevice) {
				require.ErrorIs(t, err, ErrDestinationIsSource)
				var pipelineErr *PipelineError
				require.ErrorAs(t, err, &pipelineErr)
				require.Equal(t, types.TxDraft, pipelineErr.State)
				dev.AssertNotCalled(t, "SignTransfer", mock.Anything, mock.Anything, mock.Anything)
				exp.AssertNotCalled(t, "GetEstimatedNetworkFee", mock.Anything)
			},
		},
		{
			name: "fee unavailable",
			tx: func(b *qrlBridge, account types.Account) types.Transaction {
				return draft(b, account, 1)
			},
			setup: func(exp *mockExplorer, _ *mockDevice) {
				exp.On("GetEstimatedNetworkFee", mock.Anything).
					Return("", errors.New("offline"))
			},
			check: func(t *testing.T, err error, _ *mockExplorer, dev *mockDevice) {
				require.ErrorIs(t, err, ErrFeeNotLoaded)
				dev.AssertNotCalled(t, "SignTransfer", mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name: "fee above balance",
			tx: func(b *qrlBridge, account types.Account) types.Transaction {
				return draft(b, account, 600)
			},
			setup: func(exp *mockExplorer, _ *mockDevice) {
				exp.On("GetEstimatedNetworkFee", mock.Anything).Return("500", nil)
			},
			check: func(t *testing.T, err error, _ *mockExplorer, dev *mockDevice) {
				require.ErrorIs(t, err, ErrNotEnoughBalance)
				var pipelineErr *PipelineError
				require.ErrorAs(t, err, &pipelineErr)
				require.Equal(t, types.TxPrepared, pipelineErr.State)
				dev.AssertNotCalled(t, "SignTransfer", mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name: "device rejects",
			tx: func(b *qrlBridge, account types.Account) types.Transaction {
				tx := draft(b, account, 1)
				tx.Fee = dec(1)
				return tx
			},
			setup: func(_ *mockExplorer, dev *mockDevice) {
				dev.On("SignTransfer", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, errors.New("denied by user"))
			},
			check: func(t *testing.T, err error, exp *mockExplorer, _ *mockDevice) {
				require.ErrorContains(t, err, "denied by user")
				exp.AssertNotCalled(t, "BroadcastTransferTx", mock.Anything, mock.Anything)
			},
		},
		{
			name: "node rejects",
			tx: func(b *qrlBridge, account types.Account) types.Transaction {
				tx := draft(b, account, 1)
				tx.Fee = dec(1)
				return tx
			},
			setup: func(exp *mockExplorer, dev *mockDevice) {
				dev.On("SignTransfer", mock.Anything, mock.Anything, mock.Anything).
					Return(testSignature, nil)
				exp.On("BroadcastTransferTx", mock.Anything, mock.Anything).
					Return(&explorer.BroadcastResult{Error: 1, ErrorMessage: "rejected"}, nil)
			},
			check: func(t *testing.T, err error, _ *mockExplorer, _ *mockDevice) {
				var rejected *explorer.RejectedError
				require.ErrorAs(t, err, &rejected)
				require.Equal(t, "rejected", rejected.Error())
				require.Equal(t, 1, rejected.Code)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := &mockExplorer{}
			dev := &mockDevice{}
			tt.setup(exp, dev)

			b := newTestBridge(t, exp, dev)
			account := fundedAccount()

			ch, cancel := b.SignAndBroadcast(context.Background(), account, tt.tx(b, account), "dev1")
			defer cancel()
			events := collect(t, ch)

			last := events[len(events)-1]
			require.Error(t, last.Err)
			require.Nil(t, last.Operation)
			for _, ev := range events {
				require.NotEqual(t, types.TxBroadcasted, ev.Type)
			}
			tt.check(t, last.Err, exp, dev)
		})
	}
}

func TestSignAndBroadcastOTSIndex(t *testing.T) {
	exp := &mockExplorer{}
	dev := &mockDevice{}
	dev.On("SignTransfer", mock.Anything, mock.Anything, mock.MatchedBy(
		func(p device.TransferPayload) bool { return p.OTSIndex != nil && *p.OTSIndex == 42 },
	)).Return(testSignature, nil)
	exp.On("BroadcastTransferTx", mock.Anything, mock.Anything).
		Return(&explorer.BroadcastResult{TransactionHash: "h9"}, nil)

	b := newTestBridge(t, exp, dev)
	account := fundedAccount()
	tx, err := b.ApplyTransactionExtras(account, draft(b, account, 1), map[string]any{
		"fee": "1", "otsIndex": 42,
	})
	require.NoError(t, err)

	ch, cancel := b.SignAndBroadcast(context.Background(), account, tx, "dev1")
	defer cancel()
	events := collect(t, ch)
	require.Len(t, events, 2)
	require.NoError(t, events[1].Err)
}
