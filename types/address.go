package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	AddressPrefix = "Q"
	// descriptor (3) + hash (32) + checksum (4)
	AddressSize = 39

	addressChecksumSize = 4
)

// DecodeAddress returns the raw bytes of a Q-prefixed hex address after
// verifying its checksum.
func DecodeAddress(addr string) ([]byte, error) {
	if !strings.HasPrefix(addr, AddressPrefix) {
		return nil, fmt.Errorf("address must start with %q", AddressPrefix)
	}
	buf, err := hex.DecodeString(addr[len(AddressPrefix):])
	if err != nil {
		return nil, fmt.Errorf("invalid address encoding: %w", err)
	}
	if len(buf) != AddressSize {
		return nil, fmt.Errorf("invalid address length: got %d bytes, want %d", len(buf), AddressSize)
	}

	body := buf[:AddressSize-addressChecksumSize]
	hash := sha256.Sum256(body)
	if !bytes.Equal(hash[len(hash)-addressChecksumSize:], buf[len(body):]) {
		return nil, fmt.Errorf("invalid address checksum")
	}
	return buf, nil
}

func IsValidAddress(addr string) bool {
	_, err := DecodeAddress(addr)
	return err == nil
}

// EncodeAddress builds a Q-prefixed address from a 3-byte descriptor and a
// 32-byte hash, appending the checksum.
func EncodeAddress(descriptor [3]byte, hash [32]byte) string {
	body := append(descriptor[:], hash[:]...)
	sum := sha256.Sum256(body)
	full := append(body, sum[len(sum)-addressChecksumSize:]...)
	return AddressPrefix + hex.EncodeToString(full)
}
