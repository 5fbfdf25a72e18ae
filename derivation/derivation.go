// Package derivation maps a currency, a derivation mode and an account index
// to the key path the signing device derives the account address from.
package derivation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qrlwallet/go-bridge/types"
	"github.com/tyler-smith/go-bip32"
)

const (
	ModeDefault types.DerivationMode = ""
	ModeLegacy  types.DerivationMode = "legacy"

	coinTypeVar = "<coin_type>"
	accountVar  = "<account>"
)

// Schemes are templates where <coin_type> and <account> are replaced when
// the path is computed.
var schemes = map[types.DerivationMode]string{
	ModeDefault: "44'/<coin_type>'/<account>'/0/0",
	ModeLegacy:  "44'/<coin_type>'/0'/<account>",
}

// Only iterable modes are scanned past index 0.
var iterable = map[types.DerivationMode]bool{
	ModeDefault: true,
	ModeLegacy:  false,
}

// Descriptor is the input to a path computation.
type Descriptor struct {
	Mode   types.DerivationMode
	Scheme string
	Index  int
}

func NewDescriptor(mode types.DerivationMode, index int) Descriptor {
	return Descriptor{Mode: mode, Scheme: SchemeFor(mode), Index: index}
}

// Path returns the device path of the descriptor for the given currency.
func (d Descriptor) Path(currency types.Currency) string {
	return Run(d.Scheme, currency, d.Index)
}

// ModesForCurrency returns the derivation modes to scan, in protocol
// preference order. Unknown modes are skipped.
func ModesForCurrency(currency types.Currency) []types.DerivationMode {
	if len(currency.DerivationModes) == 0 {
		return []types.DerivationMode{ModeDefault}
	}
	modes := make([]types.DerivationMode, 0, len(currency.DerivationModes))
	for _, mode := range currency.DerivationModes {
		if _, ok := schemes[mode]; !ok {
			continue
		}
		modes = append(modes, mode)
	}
	return modes
}

// SchemeFor returns the path template of the mode, falling back to the
// default template for unknown modes.
func SchemeFor(mode types.DerivationMode) string {
	if scheme, ok := schemes[mode]; ok {
		return scheme
	}
	return schemes[ModeDefault]
}

func Run(scheme string, currency types.Currency, index int) string {
	return strings.NewReplacer(
		coinTypeVar, strconv.FormatUint(uint64(currency.CoinType), 10),
		accountVar, strconv.Itoa(index),
	).Replace(scheme)
}

func IsIterable(mode types.DerivationMode) bool {
	return iterable[mode]
}

func SupportsIndex(mode types.DerivationMode, index int) bool {
	if index < 0 {
		return false
	}
	if _, ok := schemes[mode]; !ok {
		return false
	}
	return index == 0 || IsIterable(mode)
}

// ParsePath converts a textual path like 44'/238'/0'/0/0 into child indexes,
// with hardened components offset by bip32.FirstHardenedChild.
func ParsePath(path string) ([]uint32, error) {
	path = strings.TrimPrefix(strings.TrimSpace(path), "m/")
	if path == "" {
		return nil, fmt.Errorf("empty derivation path")
	}

	parts := strings.Split(path, "/")
	indexes := make([]uint32, 0, len(parts))
	for _, part := range parts {
		hardened := strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h")
		part = strings.TrimRight(part, "'h")

		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid path component %q: %w", part, err)
		}
		if n >= uint64(bip32.FirstHardenedChild) {
			return nil, fmt.Errorf("path component %d out of range", n)
		}

		index := uint32(n)
		if hardened {
			index += bip32.FirstHardenedChild
		}
		indexes = append(indexes, index)
	}
	return indexes, nil
}

// AccountID is stable for the same currency, address and mode.
func AccountID(currency types.Currency, address string, mode types.DerivationMode) string {
	return fmt.Sprintf("qrljs:2:%s:%s:%s", currency.ID, address, mode)
}

func PlaceholderName(currency types.Currency, index int, mode types.DerivationMode) string {
	name := fmt.Sprintf("%s %d", currency.Name, index+1)
	if mode != ModeDefault {
		name = fmt.Sprintf("%s (%s)", name, mode)
	}
	return name
}

// NewAccountPlaceholderName names the empty account offered for creation.
func NewAccountPlaceholderName(currency types.Currency, index int, mode types.DerivationMode) string {
	return fmt.Sprintf("New %s", PlaceholderName(currency, index, mode))
}
