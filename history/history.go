// Package history combines confirmed and speculative operations of an
// account. All functions are pure: inputs are never mutated.
package history

import (
	"sort"

	"github.com/qrlwallet/go-bridge/types"
)

// Merge returns existing plus every fetched operation whose id is not
// already known, newest first. Existing operations win on id conflicts,
// unless the existing one has no block and the fetched one does: a
// transaction seen in the mempool is then replaced by its confirmed form.
func Merge(existing, fetched []types.Operation) []types.Operation {
	ids := make(map[string]int, len(existing)+len(fetched))
	merged := make([]types.Operation, 0, len(existing)+len(fetched))
	for _, op := range existing {
		if _, ok := ids[op.ID]; ok {
			continue
		}
		ids[op.ID] = len(merged)
		merged = append(merged, op)
	}
	for _, op := range fetched {
		if i, ok := ids[op.ID]; ok {
			if merged[i].Block == nil && op.Block != nil {
				merged[i] = op
			}
			continue
		}
		ids[op.ID] = len(merged)
		merged = append(merged, op)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})
	return merged
}

// ReconcilePending keeps the pending operations that are still in flight
// with respect to a newest-first confirmed history: no confirmed operation
// shares the hash and the sequence number is above the head's.
// With an empty history every pending operation is kept.
func ReconcilePending(confirmed, pending []types.Operation) []types.Operation {
	hashes := make(map[string]struct{}, len(confirmed))
	for _, op := range confirmed {
		hashes[op.Hash] = struct{}{}
	}

	kept := make([]types.Operation, 0, len(pending))
	for _, op := range pending {
		if _, ok := hashes[op.Hash]; ok {
			continue
		}
		if len(confirmed) > 0 &&
			op.TransactionSequenceNumber <= confirmed[0].TransactionSequenceNumber {
			continue
		}
		kept = append(kept, op)
	}
	return kept
}

// AddPendingOperation prepends op to the pending list. An entry with the
// same id is replaced, entries sharing only the sequence number are kept.
func AddPendingOperation(account types.Account, op types.Operation) types.Account {
	pending := make([]types.Operation, 0, len(account.PendingOperations)+1)
	pending = append(pending, op)
	for _, p := range account.PendingOperations {
		if p.ID == op.ID {
			continue
		}
		pending = append(pending, p)
	}
	account.PendingOperations = pending
	return account
}

// NextSequenceNumber predicts the sequence number of the next outgoing
// operation from local state. It is only a placeholder until the confirmed
// operation is observed.
func NextSequenceNumber(account types.Account) uint64 {
	var head uint64
	if len(account.Operations) > 0 {
		head = account.Operations[0].TransactionSequenceNumber
	}
	return head + uint64(len(account.PendingOperations))
}
