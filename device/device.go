// Package device defines the channel to the hardware signing device. Key
// material never leaves the device: the bridge only asks for addresses and
// signatures.
package device

import (
	"context"
	"fmt"
)

type Device interface {
	// GetAddress returns the address derived by the device at path.
	GetAddress(ctx context.Context, path string) (string, error)

	// SignTransfer asks the device to sign the transfer. The call blocks
	// until the user confirms or rejects it on the device.
	SignTransfer(ctx context.Context, path string, payload TransferPayload) (*Signature, error)
}

// Provider resolves a device identifier to an open channel.
type Provider interface {
	Device(deviceID string) (Device, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(deviceID string) (Device, error)

func (f ProviderFunc) Device(deviceID string) (Device, error) {
	return f(deviceID)
}

// Signature is returned hex encoded.
type Signature struct {
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
}

// Error wraps a failure of a device command.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("device %s: %s", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
