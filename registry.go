package qrlbridge

import (
	"fmt"
	"sync"

	"github.com/qrlwallet/go-bridge/types"
)

// Registry maps a currency family to the bridge serving it. Bridges are
// registered once at startup and looked up by currency or account.
type Registry struct {
	mu      *sync.RWMutex
	bridges map[string]Bridge
}

func NewRegistry(bridges ...Bridge) (*Registry, error) {
	r := &Registry{
		mu:      &sync.RWMutex{},
		bridges: make(map[string]Bridge),
	}
	for _, b := range bridges {
		if err := r.Register(b); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(b Bridge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	family := b.Family()
	if _, ok := r.bridges[family]; ok {
		return fmt.Errorf("bridge for family %s already registered", family)
	}
	r.bridges[family] = b
	return nil
}

func (r *Registry) ForCurrency(currency types.Currency) (Bridge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bridges[currency.Family]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFamily, currency.Family)
	}
	return b, nil
}

func (r *Registry) ForAccount(account types.Account) (Bridge, error) {
	return r.ForCurrency(account.Currency)
}
