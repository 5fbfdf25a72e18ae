package utils

import (
	"strings"
	"sync"
)

type Cache[V any] struct {
	mu   *sync.RWMutex
	data map[string]V
}

func NewCache[V any]() *Cache[V] {
	return &Cache[V]{
		mu:   &sync.RWMutex{},
		data: make(map[string]V),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// DeletePrefix drops every key starting with prefix and returns how many
// entries were removed.
func (c *Cache[V]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
			count++
		}
	}
	return count
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
