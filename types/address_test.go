package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddress(t *testing.T) {
	valid := EncodeAddress([3]byte{0x01, 0x06, 0x00}, [32]byte{0xaa, 0xbb})
	require.Len(t, valid, 1+2*AddressSize)

	t.Run("valid", func(t *testing.T) {
		buf, err := DecodeAddress(valid)
		require.NoError(t, err)
		require.Len(t, buf, AddressSize)
		require.True(t, IsValidAddress(valid))
	})

	tests := []struct {
		name string
		addr string
	}{
		{name: "missing prefix", addr: valid[1:]},
		{name: "not hex", addr: "Q" + strings.Repeat("zz", AddressSize)},
		{name: "short", addr: valid[:len(valid)-2]},
		{name: "bad checksum", addr: valid[:len(valid)-1] + flip(valid[len(valid)-1])},
		{name: "empty", addr: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAddress(tt.addr)
			require.Error(t, err)
			require.False(t, IsValidAddress(tt.addr))
		})
	}
}

func flip(c byte) string {
	if c == '0' {
		return "1"
	}
	return "0"
}
