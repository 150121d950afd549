package actors

import (
	"context"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"memberdao/engine/library"
)

// StartRelaysForPublishing connects to every relay and returns a channel that fans events out to
// all of them. The connections are closed when the terminate channel closes.
func StartRelaysForPublishing(relays []string) (chan nostr.Event, error) {
	var connected []*nostr.Relay
	for _, s := range relays {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		relay, err := nostr.RelayConnect(ctx, s)
		cancel()
		if err != nil {
			for _, r := range connected {
				r.Close()
			}
			return nil, fmt.Errorf("could not connect to %s: %w", s, err)
		}
		connected = append(connected, relay)
	}
	sendChan := make(chan nostr.Event)
	GetWaitGroup().Add(1)
	go func() {
		defer GetWaitGroup().Done()
		for {
			select {
			case e := <-sendChan:
				for _, relay := range connected {
					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					if _, err := relay.Publish(ctx, e); err != nil {
						library.LogCLI(fmt.Sprintf("publishing %s to %s failed: %s", e.ID, relay.URL, err.Error()), 2)
					}
					cancel()
				}
			case <-GetTerminateChan():
				for _, relay := range connected {
					relay.Close()
				}
				return
			}
		}
	}()
	return sendChan, nil
}
