package replay

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/exp/slices"
	"memberdao/engine/library"
)

// Tracker chains every account's events: each event must carry an "r" tag naming the id of the
// previous event the account had handled, or the genesis value for its first one.
type Tracker struct {
	genesis string
	data    map[library.Account]library.Sha256
	mutex   *deadlock.Mutex
}

func NewTracker(genesis string) *Tracker {
	return &Tracker{
		genesis: genesis,
		data:    make(map[library.Account]library.Sha256),
		mutex:   &deadlock.Mutex{},
	}
}

// Check returns an error if event does not continue its signer's chain.
func (t *Tracker) Check(event nostr.Event) error {
	claimedHash, ok := library.GetFirstTag(event, "r")
	if !ok {
		return fmt.Errorf("event %s has no replay tag", event.ID)
	}
	current := t.CurrentHashForAccount(event.PubKey)
	if claimedHash != current {
		return fmt.Errorf("invalid replay: event %s claims %s, account is at %s", event.ID, claimedHash, current)
	}
	return nil
}

// Commit advances the signer's chain to event. It is only called once the event has been applied.
func (t *Tracker) Commit(event nostr.Event) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.data[event.PubKey] = event.ID
}

func (t *Tracker) CurrentHashForAccount(account library.Account) library.Sha256 {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if hash, ok := t.data[account]; ok {
		return hash
	}
	return t.genesis
}

// Restore replaces the tracked chains, used when loading a snapshot.
func (t *Tracker) Restore(m Mapped) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.data = make(map[library.Account]library.Sha256)
	for account, id := range m {
		t.data[account] = id
	}
}

func (t *Tracker) GetMap() Mapped {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	m := make(Mapped)
	for account, id := range t.data {
		m[account] = id
	}
	return m
}

// GetStateHash hashes the last event ids of all accounts, ordered by account.
func (t *Tracker) GetStateHash() library.Sha256 {
	m := t.GetMap()
	var sl []library.Account
	for account := range m {
		sl = append(sl, account)
	}
	slices.Sort(sl)
	b := bytes.Buffer{}
	for _, account := range sl {
		decodedString, err := hex.DecodeString(m[account])
		if err != nil {
			library.LogCLI(err.Error(), 1)
			continue
		}
		b.Write(decodedString)
	}
	return library.Sha256Sum(b.Bytes())
}
