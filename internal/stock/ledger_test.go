package stock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReplay(t *testing.T) {
	require.InDelta(t, 0.0, Replay(nil), 0.0001)

	entries := []LedgerEntry{
		{Delta: 10, Balance: 10},
		{Delta: -3, Balance: 7},
		{Delta: 2.5, Balance: 9.5},
	}
	require.InDelta(t, 9.5, Replay(entries), 0.0001)
}

func TestVerifyRunningBalance(t *testing.T) {
	entries := []LedgerEntry{
		{ID: 1, Delta: 10, Balance: 10},
		{ID: 2, Delta: -3, Balance: 7},
		{ID: 3, Delta: 2.5, Balance: 9.5},
	}
	require.NoError(t, VerifyRunningBalance(entries))

	entries[1].Balance = 8
	err := VerifyRunningBalance(entries)
	require.Error(t, err)
	require.Contains(t, err.Error(), "id 2")
}

func TestVerifyRunningBalanceToleratesFloatNoise(t *testing.T) {
	entries := []LedgerEntry{
		{ID: 1, Delta: 0.1, Balance: 0.1},
		{ID: 2, Delta: 0.2, Balance: 0.3},
		{ID: 3, Delta: 0.3, Balance: 0.6},
	}
	require.NoError(t, VerifyRunningBalance(entries))
}
