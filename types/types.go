package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	FamilyQRL = "qrl"

	MainNet = "mainnet"
	TestNet = "testnet"
)

// DerivationMode selects a derivation scheme. The empty mode is the
// currency default.
type DerivationMode string

type Unit struct {
	Name      string `json:"name"`
	Code      string `json:"code"`
	Magnitude int32  `json:"magnitude"`
}

type Currency struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Family          string           `json:"family"`
	Ticker          string           `json:"ticker"`
	CoinType        uint32           `json:"coin_type"`
	Network         string           `json:"network"`
	Units           []Unit           `json:"units"`
	DerivationModes []DerivationMode `json:"derivation_modes"`
}

// QRL is the mainnet currency descriptor. Amounts on the wire are in shor
// (1 QRL = 10^9 shor).
var QRL = Currency{
	ID:       "qrl",
	Name:     "QRL",
	Family:   FamilyQRL,
	Ticker:   "QRL",
	CoinType: 238,
	Network:  MainNet,
	Units: []Unit{
		{Name: "QRL", Code: "QRL", Magnitude: 9},
		{Name: "shor", Code: "shor", Magnitude: 0},
	},
	DerivationModes: []DerivationMode{""},
}

// QRLTestnet shares the mainnet address format and uses the BIP44 testnet
// coin type.
var QRLTestnet = Currency{
	ID:       "qrl_testnet",
	Name:     "QRL Testnet",
	Family:   FamilyQRL,
	Ticker:   "QRL",
	CoinType: 1,
	Network:  TestNet,
	Units: []Unit{
		{Name: "QRL", Code: "QRL", Magnitude: 9},
		{Name: "shor", Code: "shor", Magnitude: 0},
	},
	DerivationModes: []DerivationMode{""},
}

// CurrencyForNetwork returns the currency descriptor of network.
func CurrencyForNetwork(network string) (Currency, error) {
	switch network {
	case MainNet:
		return QRL, nil
	case TestNet:
		return QRLTestnet, nil
	default:
		return Currency{}, fmt.Errorf("unknown network %q", network)
	}
}

type Account struct {
	ID                string          `json:"id"`
	SeedIdentifier    string          `json:"seed_identifier"`
	DerivationMode    DerivationMode  `json:"derivation_mode"`
	Index             int             `json:"index"`
	Name              string          `json:"name"`
	FreshAddress      string          `json:"fresh_address"`
	FreshAddressPath  string          `json:"fresh_address_path"`
	Balance           decimal.Decimal `json:"balance"`
	BlockHeight       uint64          `json:"block_height"`
	Currency          Currency        `json:"currency"`
	Unit              Unit            `json:"unit"`
	Operations        []Operation     `json:"operations"`
	PendingOperations []Operation     `json:"pending_operations"`
	LastSyncDate      time.Time       `json:"last_sync_date"`
	Archived          bool            `json:"archived"`
}

func (a Account) String() string {
	// nolint
	b, _ := json.MarshalIndent(a, "", "  ")
	return string(b)
}

// Patch turns an account value into its updated version. Patches never
// mutate their input.
type Patch func(Account) Account

// IdentityPatch leaves the account untouched.
func IdentityPatch(a Account) Account {
	return a
}

const (
	OperationIn  OperationType = "IN"
	OperationOut OperationType = "OUT"
)

type OperationType string

type BlockRef struct {
	Hash   string `json:"hash"`
	Height uint64 `json:"height"`
}

// Operation is an immutable history entry. Two operations with the same ID
// are the same logical event.
type Operation struct {
	ID                        string          `json:"id"`
	Hash                      string          `json:"hash"`
	AccountID                 string          `json:"account_id"`
	Type                      OperationType   `json:"type"`
	Value                     decimal.Decimal `json:"value"`
	Fee                       decimal.Decimal `json:"fee"`
	Block                     *BlockRef       `json:"block,omitempty"`
	Senders                   []string        `json:"senders"`
	Recipients                []string        `json:"recipients"`
	Date                      time.Time       `json:"date"`
	TransactionSequenceNumber uint64          `json:"transaction_sequence_number"`
	Extra                     map[string]any  `json:"extra,omitempty"`
}

func (o Operation) IsConfirmed() bool {
	return o.Block != nil
}

// OperationID is unique across accounts and stable across re-projections of
// the same chain transaction.
func OperationID(accountID, hash string, opType OperationType) string {
	return fmt.Sprintf("%s-%s-%s", accountID, hash, opType)
}

// Transaction is the mutable draft the host builds before signing.
type Transaction struct {
	Amount      decimal.Decimal  `json:"amount"`
	Recipient   string           `json:"recipient"`
	Fee         *decimal.Decimal `json:"fee,omitempty"`
	OTSIndex    *uint32          `json:"ots_index,omitempty"`
	NetworkInfo *NetworkInfo     `json:"network_info,omitempty"`
}

type NetworkInfo struct {
	ServerFee decimal.Decimal `json:"server_fee"`
}

// TransferTx is the wire-level transfer handed to the device for signing and
// then to the remote API for broadcast.
type TransferTx struct {
	SourceAddress string            `json:"source_address"`
	AddressesTo   []string          `json:"addresses_to"`
	Amounts       []decimal.Decimal `json:"amounts"`
	Fee           decimal.Decimal   `json:"fee"`
	OTSIndex      *uint32           `json:"ots_index,omitempty"`
	PublicKey     string            `json:"public_key,omitempty"`
	Signature     string            `json:"signature,omitempty"`
}

func (t TransferTx) IsSigned() bool {
	return t.PublicKey != "" && t.Signature != ""
}
