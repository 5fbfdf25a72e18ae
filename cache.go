package qrlbridge

import (
	"github.com/qrlwallet/go-bridge/internal/utils"
)

const recipientKeySep = "|"

// RecipientCache memoizes recipient checks per account. It is owned by the
// host and handed to the bridge, which drops the entries of an account after
// a successful broadcast from it.
type RecipientCache struct {
	cache *utils.Cache[error]
}

func NewRecipientCache() *RecipientCache {
	return &RecipientCache{cache: utils.NewCache[error]()}
}

func (c *RecipientCache) Get(accountID, recipient string) (error, bool) {
	return c.cache.Get(recipientKey(accountID, recipient))
}

func (c *RecipientCache) Set(accountID, recipient string, err error) {
	c.cache.Set(recipientKey(accountID, recipient), err)
}

// InvalidateAccount drops every cached check of the account.
func (c *RecipientCache) InvalidateAccount(accountID string) int {
	return c.cache.DeletePrefix(accountID + recipientKeySep)
}

func recipientKey(accountID, recipient string) string {
	return accountID + recipientKeySep + recipient
}
