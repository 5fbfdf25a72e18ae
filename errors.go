package qrlbridge

import (
	"errors"
	"fmt"

	"github.com/qrlwallet/go-bridge/types"
)

var (
	ErrInvalidAddress      = errors.New("invalid address")
	ErrDestinationIsSource = errors.New("invalid address: destination is also source")
	ErrNotEnoughBalance    = errors.New("not enough balance")
	ErrFeeNotLoaded        = errors.New("fee not loaded")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidOTSIndex     = errors.New("invalid ots index")
	ErrUnknownExtra        = errors.New("unknown transaction extra")
	ErrUnsupportedFamily   = errors.New("unsupported currency family")
)

type InvalidAddressError struct {
	CurrencyName string
	Address      string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid %s address %q", e.CurrencyName, e.Address)
}

func (e *InvalidAddressError) Unwrap() error {
	return ErrInvalidAddress
}

// InvalidBalanceError is returned when the remote API reports a balance that
// is not a finite non-negative decimal.
type InvalidBalanceError struct {
	Address string
	Value   string
}

func (e *InvalidBalanceError) Error() string {
	return fmt.Sprintf("invalid balance %q for address %s", e.Value, e.Address)
}

// PipelineError is the terminal error of a sign and broadcast attempt,
// State is the step that failed.
type PipelineError struct {
	State types.TxState
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.State, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
