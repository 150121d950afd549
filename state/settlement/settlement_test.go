package settlement

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"memberdao/engine/library"
	"memberdao/state/access"
)

func TestDepositAndTransfer(t *testing.T) {
	table := access.NewTable()
	table.Grant(access.TokenManager, "treasury")
	b := New(table, nil)

	err := b.Deposit("alice", "alice", library.Amount(10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, library.ErrUnauthorized))

	require.NoError(t, b.Deposit("treasury", "alice", library.Amount(10)))
	require.NoError(t, b.TransferFrom("alice", "bob", library.Amount(4)))
	assert.Equal(t, uint64(6), b.BalanceOf("alice").Uint64())
	assert.Equal(t, uint64(4), b.BalanceOf("bob").Uint64())

	err = b.Transfer("bob", "alice", library.Amount(5))
	require.Error(t, err)
	assert.Equal(t, "settlement amount exceeds balance", err.Error())
	assert.True(t, errors.Is(err, library.ErrInsufficientBalance))

	require.NoError(t, b.Transfer("bob", "alice", library.Amount(4)))
	assert.NotContains(t, b.GetMap(), library.Account("bob"))
	assert.Equal(t, uint64(10), b.TotalSupply().Uint64())
	require.NoError(t, b.CheckInvariants())
}
