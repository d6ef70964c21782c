package stock

import (
	"fmt"
	"math"
)

// balanceEpsilon absorbs float accumulation noise when comparing replayed
// and stored balances.
const balanceEpsilon = 1e-6

// Replay folds a key's ordered ledger entries into the final on-hand
// quantity, starting from an empty level. It is the reference semantics
// the stored balances must agree with.
func Replay(entries []LedgerEntry) float64 {
	var balance float64
	for _, entry := range entries {
		balance += entry.Delta
	}
	return balance
}

// VerifyRunningBalance checks that every entry's stored balance equals the
// previous balance plus its delta. The entries must belong to a single
// (product, warehouse) key in creation order.
func VerifyRunningBalance(entries []LedgerEntry) error {
	var balance float64
	for i, entry := range entries {
		balance += entry.Delta
		if math.Abs(entry.Balance-balance) > balanceEpsilon {
			return fmt.Errorf("stock: ledger entry %d (id %d) stores balance %.6f, replay gives %.6f", i, entry.ID, entry.Balance, balance)
		}
	}
	return nil
}
