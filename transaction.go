package qrlbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/qrlwallet/go-bridge/internal/utils"
	"github.com/qrlwallet/go-bridge/types"
	"github.com/shopspring/decimal"
)

const (
	ExtraFee      = "fee"
	ExtraOTSIndex = "otsIndex"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

type transactionExtras struct {
	Fee      *decimal.Decimal `mapstructure:"fee"`
	OTSIndex *decimal.Decimal `mapstructure:"otsIndex"`
}

func (b *qrlBridge) CreateTransaction(_ types.Account) types.Transaction {
	return types.Transaction{Amount: decimal.Zero}
}

func (b *qrlBridge) EditTransactionAmount(
	_ types.Account, t types.Transaction, amount decimal.Decimal,
) types.Transaction {
	t.Amount = amount
	return t
}

func (b *qrlBridge) GetTransactionAmount(_ types.Account, t types.Transaction) decimal.Decimal {
	return t.Amount
}

func (b *qrlBridge) EditTransactionRecipient(
	_ types.Account, t types.Transaction, recipient string,
) types.Transaction {
	t.Recipient = recipient
	return t
}

func (b *qrlBridge) GetTransactionRecipient(_ types.Account, t types.Transaction) string {
	return t.Recipient
}

// EditTransactionExtra sets one of the fee or otsIndex extras. A nil value
// clears it.
func (b *qrlBridge) EditTransactionExtra(
	account types.Account, t types.Transaction, field string, value any,
) (types.Transaction, error) {
	return b.ApplyTransactionExtras(account, t, map[string]any{field: value})
}

func (b *qrlBridge) GetTransactionExtra(
	_ types.Account, t types.Transaction, field string,
) (any, error) {
	switch field {
	case ExtraFee:
		return t.Fee, nil
	case ExtraOTSIndex:
		return t.OTSIndex, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExtra, field)
	}
}

// ApplyTransactionExtras decodes a loosely typed map, as sent by a host UI,
// onto the draft. Numbers may be given as strings, numbers or decimals.
func (b *qrlBridge) ApplyTransactionExtras(
	_ types.Account, t types.Transaction, extras map[string]any,
) (types.Transaction, error) {
	for field := range extras {
		if field != ExtraFee && field != ExtraOTSIndex {
			return t, fmt.Errorf("%w: %s", ErrUnknownExtra, field)
		}
	}

	var decoded transactionExtras
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decimalDecodeHook,
		WeaklyTypedInput: true,
		Result:           &decoded,
	})
	if err != nil {
		return t, err
	}
	if err := decoder.Decode(extras); err != nil {
		return t, fmt.Errorf("invalid transaction extras: %w", err)
	}

	if _, ok := extras[ExtraFee]; ok {
		if decoded.Fee != nil && decoded.Fee.IsNegative() {
			return t, fmt.Errorf("%w: negative fee %s", ErrInvalidAmount, decoded.Fee)
		}
		t.Fee = decoded.Fee
	}
	if _, ok := extras[ExtraOTSIndex]; ok {
		t.OTSIndex = nil
		if decoded.OTSIndex != nil {
			index, err := parseOTSIndex(*decoded.OTSIndex)
			if err != nil {
				return t, err
			}
			t.OTSIndex = &index
		}
	}
	return t, nil
}

func (b *qrlBridge) FetchTransactionNetworkInfo(
	ctx context.Context, _ types.Account,
) (*types.NetworkInfo, error) {
	raw, err := b.explorer.GetEstimatedNetworkFee(ctx)
	if err != nil {
		return nil, err
	}
	fee, err := utils.ParseAPIValue(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid network fee: %w", err)
	}
	if fee.IsNegative() {
		return nil, fmt.Errorf("invalid network fee: %s", fee)
	}
	return &types.NetworkInfo{ServerFee: fee}, nil
}

func (b *qrlBridge) GetTransactionNetworkInfo(
	_ types.Account, t types.Transaction,
) *types.NetworkInfo {
	return t.NetworkInfo
}

// ApplyTransactionNetworkInfo attaches info and defaults the fee to the
// server fee when the user did not set one.
func (b *qrlBridge) ApplyTransactionNetworkInfo(
	_ types.Account, t types.Transaction, info types.NetworkInfo,
) types.Transaction {
	t.NetworkInfo = &info
	if t.Fee == nil {
		fee := info.ServerFee
		t.Fee = &fee
	}
	return t
}

// PrepareTransaction loads the network fee when none is set yet. Amount and
// recipient are left untouched.
func (b *qrlBridge) PrepareTransaction(
	ctx context.Context, account types.Account, t types.Transaction,
) (types.Transaction, error) {
	if t.Fee != nil {
		return t, nil
	}
	info, err := b.FetchTransactionNetworkInfo(ctx, account)
	if err != nil {
		return t, fmt.Errorf("failed to fetch network info: %w", err)
	}
	return b.ApplyTransactionNetworkInfo(account, t, *info), nil
}

func (b *qrlBridge) CheckValidRecipient(account types.Account, recipient string) error {
	if err, ok := b.recipients.Get(account.ID, recipient); ok {
		return err
	}
	err := checkRecipient(account, recipient)
	b.recipients.Set(account.ID, recipient, err)
	return err
}

func (b *qrlBridge) GetRecipientWarning(_ types.Account, _ string) error {
	return nil
}

// CheckValidTransaction accepts the draft when amount plus fee is covered
// by the balance. An unset fee counts as zero here; signing still requires
// one.
func (b *qrlBridge) CheckValidTransaction(account types.Account, t types.Transaction) error {
	if t.Amount.IsNegative() {
		return fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, t.Amount)
	}
	if t.Fee != nil && t.Fee.IsNegative() {
		return fmt.Errorf("%w: negative fee %s", ErrInvalidAmount, t.Fee)
	}
	if b.GetTotalSpent(account, t).GreaterThan(account.Balance) {
		return ErrNotEnoughBalance
	}
	return nil
}

func (b *qrlBridge) GetTotalSpent(_ types.Account, t types.Transaction) decimal.Decimal {
	return t.Amount.Add(feeOrZero(t))
}

// GetMaxAmount may be negative when the fee exceeds the balance.
func (b *qrlBridge) GetMaxAmount(account types.Account, t types.Transaction) decimal.Decimal {
	return account.Balance.Sub(feeOrZero(t))
}

func checkRecipient(account types.Account, recipient string) error {
	if recipient == account.FreshAddress {
		return ErrDestinationIsSource
	}
	if !types.IsValidAddress(recipient) {
		return &InvalidAddressError{CurrencyName: account.Currency.Name, Address: recipient}
	}
	return nil
}

func feeOrZero(t types.Transaction) decimal.Decimal {
	if t.Fee == nil {
		return decimal.Zero
	}
	return *t.Fee
}

func parseOTSIndex(value decimal.Decimal) (uint32, error) {
	index, err := utils.ToUint32(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidOTSIndex, err)
	}
	return index, nil
}

func decimalDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}

	switch v := data.(type) {
	case decimal.Decimal:
		return v, nil
	case *decimal.Decimal:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case string:
		return utils.ParseAPIValue(v)
	case json.Number:
		return utils.ParseAPIValue(v.String())
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case uint32:
		return decimal.NewFromInt(int64(v)), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return nil, fmt.Errorf("cannot decode %T into a decimal", data)
	}
}
