package eventconductor

import (
	"encoding/json"
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"memberdao/engine/actors"
	"memberdao/engine/library"
	"memberdao/state/ledger"
)

// Conductor feeds state change events to the ledger in chronological order, drops events it has
// already seen and keeps a journal of every event that changed state.
type Conductor struct {
	ledger  *ledger.Ledger
	seen    *lru.Cache[library.Sha256, struct{}]
	queue   *library.EventQueue
	journal []nostr.Event
	persist bool
	publish chan nostr.Event
	mutex   *deadlock.Mutex
}

func New(l *ledger.Ledger, cacheSize int) (*Conductor, error) {
	seen, err := lru.New[library.Sha256, struct{}](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Conductor{
		ledger: l,
		seen:   seen,
		queue:  library.NewEventQueue(16),
		mutex:  &deadlock.Mutex{},
	}, nil
}

// EnablePersistence writes the journal to the flat file store after every handled event.
func (c *Conductor) EnablePersistence() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.persist = true
}

// PublishTo sends a signed state snapshot to publish after every handled event.
func (c *Conductor) PublishTo(publish chan nostr.Event) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.publish = publish
}

// Submit queues events for handling. A batch is ordered by timestamp before it is queued.
func (c *Conductor) Submit(events ...nostr.Event) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.queue.PushChronological(events)
}

// Drain handles everything in the queue and returns the number of events that changed state.
func (c *Conductor) Drain() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var handled int
	for {
		event, ok := c.queue.Pop()
		if !ok {
			break
		}
		if err := c.handleEvent(*event, true); err != nil {
			library.LogCLI(err.Error(), 2)
			continue
		}
		handled++
	}
	return handled
}

func (c *Conductor) handleEvent(e nostr.Event, live bool) error {
	if c.seen.Contains(e.ID) {
		return fmt.Errorf("event %s has already been handled", e.ID)
	}
	library.LogCLI(fmt.Sprintf("Attempting to handle state change event %s of kind %d", e.ID, e.Kind), 4)
	receipts, err := routeEvent(c.ledger, e)
	if err != nil {
		return fmt.Errorf("%s failed: %s", e.ID, err.Error())
	}
	c.seen.Add(e.ID, struct{}{})
	c.journal = append(c.journal, e)
	for _, r := range receipts {
		library.LogCLI(fmt.Sprintf("%s %+v", r.ReceiptName(), r), 5)
	}
	library.LogCLI(fmt.Sprintf("Handled state change event %s", e.ID), 3)
	if !live {
		return nil
	}
	if c.persist {
		if err := c.persistToDisk(); err != nil {
			library.LogCLI(err.Error(), 1)
		}
	}
	if c.publish != nil {
		c.publishState()
	}
	return nil
}

func routeEvent(l *ledger.Ledger, e nostr.Event) ([]library.Receipt, error) {
	switch k := e.Kind; {
	case k >= 641000 && k <= 641699:
		return l.HandleEvent(e)
	default:
		return nil, fmt.Errorf("no mind to handle kind %d", e.Kind)
	}
}

func (c *Conductor) publishState() {
	b, err := json.Marshal(c.ledger.GetMap())
	if err != nil {
		library.LogCLI(err.Error(), 1)
		return
	}
	e, err := actors.CurrentStateEventBuilder(string(b))
	if err != nil {
		library.LogCLI(err.Error(), 1)
		return
	}
	go func(publish chan nostr.Event) {
		publish <- e
	}(c.publish)
}

// Journal returns a copy of the handled events in the order they were applied.
func (c *Conductor) Journal() []nostr.Event {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]nostr.Event(nil), c.journal...)
}

func (c *Conductor) persistToDisk() error {
	b, err := json.MarshalIndent(c.journal, "", " ")
	if err != nil {
		return err
	}
	return actors.Write("events", "journal", b)
}

// Restore replays a journal written by this conductor. Events are applied in journal order and
// must all succeed, a journal that does not replay cleanly means the stored state is corrupt.
func (c *Conductor) Restore(r io.Reader) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var events []nostr.Event
	if err := json.NewDecoder(r).Decode(&events); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	for _, e := range events {
		if err := c.handleEvent(e, false); err != nil {
			return fmt.Errorf("journal replay failed: %w", err)
		}
	}
	library.LogCLI(fmt.Sprintf("Restored %d events from the journal", len(events)), 4)
	return nil
}

// RestoreFromDisk replays the journal in the flat file store, if there is one.
func (c *Conductor) RestoreFromDisk() error {
	f, ok := actors.Open("events", "journal")
	if !ok {
		return nil
	}
	defer f.Close()
	return c.Restore(f)
}

// Start handles events from inbox until the terminate channel closes.
func (c *Conductor) Start(inbox <-chan nostr.Event) {
	actors.GetWaitGroup().Add(1)
	go func() {
		defer actors.GetWaitGroup().Done()
		library.LogCLI("Event conductor has started", 4)
		for {
			select {
			case e := <-inbox:
				c.Submit(e)
				c.Drain()
			case <-actors.GetTerminateChan():
				library.LogCLI("Event conductor has shut down", 4)
				return
			}
		}
	}()
}
