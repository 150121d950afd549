package replay

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const genesis = "24c30ad7f036ed49379b5d1209836d1ff6795adb34da2d3e4cabc47dc9dfef21"

func event(id, pubkey, r string) nostr.Event {
	e := nostr.Event{ID: id, PubKey: pubkey}
	if len(r) > 0 {
		e.Tags = nostr.Tags{nostr.Tag{"r", r}}
	}
	return e
}

func TestChain(t *testing.T) {
	tracker := NewTracker(genesis)
	first := "aa"
	second := "bb"

	require.Error(t, tracker.Check(event(first, "alice", "")))
	require.Error(t, tracker.Check(event(first, "alice", "cc")))
	require.NoError(t, tracker.Check(event(first, "alice", genesis)))
	tracker.Commit(event(first, "alice", genesis))

	assert.Equal(t, first, tracker.CurrentHashForAccount("alice"))
	assert.Equal(t, genesis, tracker.CurrentHashForAccount("bob"))

	require.Error(t, tracker.Check(event(second, "alice", genesis)))
	require.NoError(t, tracker.Check(event(second, "alice", first)))
}

func TestStateHash(t *testing.T) {
	a := NewTracker(genesis)
	b := NewTracker(genesis)
	a.Commit(event("aa", "alice", genesis))
	a.Commit(event("bb", "bob", genesis))
	b.Restore(Mapped{"bob": "bb", "alice": "aa"})
	assert.Equal(t, a.GetStateHash(), b.GetStateHash())
	b.Commit(event("cc", "bob", "bb"))
	assert.NotEqual(t, a.GetStateHash(), b.GetStateHash())
}
