package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"memberdao/engine/library"
)

// allowAll grants every role.
type allowAll struct{}

func (allowAll) Authorize(Role, library.Account) bool { return true }

func TestTable(t *testing.T) {
	table := NewTable()
	assert.False(t, table.Authorize(Manager, "alice"))
	table.Grant(Manager, "alice")
	table.Grant(Manager, "bob")
	assert.True(t, table.Authorize(Manager, "alice"))
	assert.False(t, table.Authorize(Operator, "alice"))
	assert.Equal(t, []library.Account{"alice", "bob"}, table.GetMap()[Manager])

	table.Revoke(Manager, "alice")
	assert.False(t, table.Authorize(Manager, "alice"))
}

func TestRequire(t *testing.T) {
	table := NewTable()
	err := Require(table, Relayer, "carol")
	require.Error(t, err)
	assert.True(t, errors.Is(err, library.ErrUnauthorized))
	assert.Equal(t, "account carol is missing role relayer", err.Error())

	table.Grant(Relayer, "carol")
	assert.NoError(t, Require(table, Relayer, "carol"))
	assert.NoError(t, Require(allowAll{}, Escrow, "anyone"))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("escrow")
	require.NoError(t, err)
	assert.Equal(t, Escrow, r)
	_, err = ParseRole("admin")
	assert.Error(t, err)
}
