package derivation

import (
	"testing"

	"github.com/qrlwallet/go-bridge/types"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip32"
)

func TestModesForCurrency(t *testing.T) {
	currency := types.QRL
	require.Equal(t, []types.DerivationMode{ModeDefault}, ModesForCurrency(currency))

	currency.DerivationModes = []types.DerivationMode{"", "legacy", "unknown"}
	require.Equal(
		t, []types.DerivationMode{ModeDefault, ModeLegacy}, ModesForCurrency(currency),
	)

	currency.DerivationModes = nil
	require.Equal(t, []types.DerivationMode{ModeDefault}, ModesForCurrency(currency))
}

func TestPath(t *testing.T) {
	tests := []struct {
		mode  types.DerivationMode
		index int
		path  string
	}{
		{mode: ModeDefault, index: 0, path: "44'/238'/0'/0/0"},
		{mode: ModeDefault, index: 3, path: "44'/238'/3'/0/0"},
		{mode: ModeLegacy, index: 0, path: "44'/238'/0'/0"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.path, NewDescriptor(tt.mode, tt.index).Path(types.QRL))
		})
	}
}

func TestSupportsIndex(t *testing.T) {
	require.True(t, SupportsIndex(ModeDefault, 0))
	require.True(t, SupportsIndex(ModeDefault, 7))
	require.True(t, SupportsIndex(ModeLegacy, 0))
	require.False(t, SupportsIndex(ModeLegacy, 1))
	require.False(t, SupportsIndex(ModeDefault, -1))
	require.False(t, SupportsIndex("unknown", 0))
}

func TestParsePath(t *testing.T) {
	h := uint32(bip32.FirstHardenedChild)

	t.Run("valid", func(t *testing.T) {
		indexes, err := ParsePath("m/44'/238'/1'/0/0")
		require.NoError(t, err)
		require.Equal(t, []uint32{h + 44, h + 238, h + 1, 0, 0}, indexes)

		indexes, err = ParsePath("44h/238h/0")
		require.NoError(t, err)
		require.Equal(t, []uint32{h + 44, h + 238, 0}, indexes)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, path := range []string{"", "m/", "44'/x/0", "44'/2147483648"} {
			_, err := ParsePath(path)
			require.Error(t, err, path)
		}
	})
}

func TestNames(t *testing.T) {
	require.Equal(
		t, "qrljs:2:qrl:Qabc:", AccountID(types.QRL, "Qabc", ModeDefault),
	)
	require.Equal(
		t, "qrljs:2:qrl:Qabc:legacy", AccountID(types.QRL, "Qabc", ModeLegacy),
	)
	require.Equal(t, "QRL 1", PlaceholderName(types.QRL, 0, ModeDefault))
	require.Equal(t, "QRL 2 (legacy)", PlaceholderName(types.QRL, 1, ModeLegacy))
	require.Equal(t, "New QRL 1", NewAccountPlaceholderName(types.QRL, 0, ModeDefault))
}
