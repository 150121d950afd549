package actors

import (
	"time"

	"github.com/nbd-wtf/go-nostr"
)

// StateEventKind is the kind of the signed state snapshots this engine publishes.
const StateEventKind = 10311

// CurrentStateEventBuilder wraps a JSON state snapshot in an event signed by our wallet.
func CurrentStateEventBuilder(state string) (nostr.Event, error) {
	e := nostr.Event{
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Kind:      StateEventKind,
		Tags:      nostr.Tags{nostr.Tag{"e", CurrentStates, "", "reply"}},
		Content:   state,
	}
	if err := SignEvent(MyWallet(), &e); err != nil {
		return nostr.Event{}, err
	}
	return e, nil
}
