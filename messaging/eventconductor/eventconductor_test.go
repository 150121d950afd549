package eventconductor

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"memberdao/engine/library"
	"memberdao/state/access"
	"memberdao/state/ledger"
	"memberdao/state/membership"
)

var genesis = time.Unix(1672531200, 0)

type signer struct {
	sk      string
	account library.Account
}

func newSigner(t *testing.T) signer {
	sk := nostr.GeneratePrivateKey()
	pk, err := nostr.GetPublicKey(sk)
	require.NoError(t, err)
	return signer{sk: sk, account: pk}
}

func (s signer) event(t *testing.T, kind int, at time.Time, replay string, content string) nostr.Event {
	e := nostr.Event{
		PubKey:    s.account,
		CreatedAt: nostr.Timestamp(at.Unix()),
		Kind:      kind,
		Tags:      nostr.Tags{nostr.Tag{"r", replay}},
		Content:   content,
	}
	e.ID = e.GetID()
	require.NoError(t, e.Sign(s.sk))
	return e
}

func newLedger(t *testing.T, admin, member signer) *ledger.Ledger {
	c := ledger.DefaultConfig()
	c.Clock = genesis
	c.Statuses = map[library.Account]membership.Status{member.account: membership.Contributor}
	c.Roles = map[access.Role][]library.Account{access.Resolution: {admin.account}}
	l, err := ledger.New(c)
	require.NoError(t, err)
	return l
}

func TestConductor(t *testing.T) {
	admin := newSigner(t)
	member := newSigner(t)
	l := newLedger(t, admin, member)
	c, err := New(l, 16)
	require.NoError(t, err)

	mint := admin.event(t, 641200, genesis.Add(time.Hour), l.Replay(admin.account), `{"to":"`+member.account+`","amount":"42"}`)
	delegate := member.event(t, 641100, genesis.Add(2*time.Hour), l.Replay(member.account), `{"to":"`+member.account+`"}`)
	other := admin.event(t, 1, genesis.Add(3*time.Hour), l.Replay(admin.account), "hello")

	// submitted out of order, handled by timestamp
	c.Submit(delegate, other, mint)
	assert.Equal(t, 2, c.Drain())
	assert.Equal(t, uint64(42), l.Position(member.account).VotingPower.Uint64())

	c.Submit(mint)
	assert.Zero(t, c.Drain())

	journal := c.Journal()
	require.Len(t, journal, 2)
	assert.Equal(t, mint.ID, journal[0].ID)
	assert.Equal(t, delegate.ID, journal[1].ID)

	b, err := json.Marshal(journal)
	require.NoError(t, err)
	restored := newLedger(t, admin, member)
	rc, err := New(restored, 16)
	require.NoError(t, err)
	require.NoError(t, rc.Restore(bytes.NewReader(b)))

	want, err := l.StateHash()
	require.NoError(t, err)
	got, err := restored.StateHash()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Len(t, rc.Journal(), 2)
}

func TestRestoreEmptyJournal(t *testing.T) {
	admin := newSigner(t)
	member := newSigner(t)
	c, err := New(newLedger(t, admin, member), 16)
	require.NoError(t, err)
	require.NoError(t, c.Restore(bytes.NewReader(nil)))
	assert.Empty(t, c.Journal())
}
