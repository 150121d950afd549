package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/nbd-wtf/go-nostr"
	"memberdao/engine/library"
	"memberdao/state/market"
	"memberdao/state/membership"
	"memberdao/state/oracle"
	"memberdao/state/resolutions"
	"memberdao/state/settlement"
	"memberdao/state/tokens"
	"memberdao/state/voting"
)

// HandleEvent applies a signed state change request. The signer is the caller and the event
// timestamp becomes the ledger clock. It returns the receipts of the change.
func (l *Ledger) HandleEvent(event nostr.Event) ([]library.Receipt, error) {
	if event.ID != event.GetID() {
		return nil, fmt.Errorf("event %s has an invalid id", event.ID)
	}
	if sig, _ := event.CheckSignature(); !sig {
		return nil, fmt.Errorf("event %s has an invalid signature", event.ID)
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if err := l.replay.Check(event); err != nil {
		return nil, err
	}
	previous := l.clock.Now()
	if err := l.clock.Set(event.CreatedAt.Time()); err != nil {
		return nil, library.InvalidState("event %s is older than ledger clock", event.ID)
	}
	l.journal.Drain()
	if err := l.route(event); err != nil {
		l.clock.Reset(previous)
		l.journal.Drain()
		return nil, err
	}
	l.replay.Commit(event)
	return l.journal.Drain(), nil
}

// Replay is the current replay chain head of account, the value its next event must carry in
// the "r" tag.
func (l *Ledger) Replay(account library.Account) library.Sha256 {
	return l.replay.CurrentHashForAccount(account)
}

func (l *Ledger) route(event nostr.Event) error {
	caller := event.PubKey
	switch event.Kind {
	case 641000:
		var unmarshalled membership.Kind641000
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		status, err := membership.ParseStatus(unmarshalled.Status)
		if err != nil {
			return err
		}
		return l.registry.SetStatus(caller, unmarshalled.Account, status)
	case 641100:
		var unmarshalled voting.Kind641100
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		return l.voting.Delegate(caller, unmarshalled.To)
	case 641200, 641201, 641202:
		var unmarshalled tokens.Kind641200
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		amount, err := library.ParseAmount(unmarshalled.Amount)
		if err != nil {
			return err
		}
		switch event.Kind {
		case 641200:
			return l.tokens.Mint(caller, unmarshalled.To, amount)
		case 641201:
			return l.tokens.MintVesting(caller, unmarshalled.To, amount)
		default:
			return l.tokens.Transfer(caller, unmarshalled.To, amount)
		}
	case 641203, 641204:
		var unmarshalled tokens.Kind641203
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		amount, err := library.ParseAmount(unmarshalled.Amount)
		if err != nil {
			return err
		}
		if event.Kind == 641203 {
			return l.tokens.Burn(caller, unmarshalled.Account, amount)
		}
		return l.tokens.SetVesting(caller, unmarshalled.Account, amount)
	case 641300:
		var unmarshalled market.Kind641300
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		amount, err := library.ParseAmount(unmarshalled.Amount)
		if err != nil {
			return err
		}
		_, err = l.market.MakeOffer(caller, amount)
		return err
	case 641301:
		var unmarshalled market.Kind641301
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		amount, err := library.ParseAmount(unmarshalled.Amount)
		if err != nil {
			return err
		}
		return l.market.MatchOffer(caller, unmarshalled.From, unmarshalled.To, amount)
	case 641302:
		var unmarshalled market.Kind641302
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		amount, err := library.ParseAmount(unmarshalled.Amount)
		if err != nil {
			return err
		}
		return l.market.Withdraw(caller, unmarshalled.To, amount)
	case 641303:
		var unmarshalled market.Kind641303
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		amount, err := library.ParseAmount(unmarshalled.Amount)
		if err != nil {
			return err
		}
		return l.market.Redeem(caller, amount)
	case 641310:
		var unmarshalled market.Kind641310
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		d, err := time.ParseDuration(unmarshalled.Duration)
		if err != nil {
			return err
		}
		return l.market.SetOfferDuration(caller, d)
	case 641311:
		var unmarshalled market.Kind641311
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		return l.market.SetExchangePair(caller, unmarshalled.Base, unmarshalled.Quote)
	case 641312:
		var unmarshalled market.Kind641312
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		return l.market.SetReserve(caller, unmarshalled.Reserve)
	case 641400:
		var unmarshalled resolutions.Kind641400
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		_, err := l.resolutions.CreateResolution(caller, unmarshalled.Description, unmarshalled.Type, unmarshalled.IsNegative)
		return err
	case 641401:
		var unmarshalled resolutions.Kind641401
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		return l.resolutions.UpdateResolution(caller, unmarshalled.ID, unmarshalled.Description, unmarshalled.Type, unmarshalled.IsNegative)
	case 641402:
		var unmarshalled resolutions.Kind641402
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		return l.resolutions.ApproveResolution(caller, unmarshalled.ID)
	case 641403:
		var unmarshalled resolutions.Kind641403
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		return l.resolutions.Vote(caller, unmarshalled.ID, unmarshalled.IsYes)
	case 641500:
		var unmarshalled oracle.Kind641500
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		rate, err := uint256.FromDecimal(unmarshalled.Rate)
		if err != nil {
			return fmt.Errorf("invalid rate %q: %w", unmarshalled.Rate, err)
		}
		return l.oracle.Relay(caller, rate, time.Unix(unmarshalled.Timestamp, 0))
	case 641600:
		var unmarshalled settlement.Kind641600
		if err := decode(event, &unmarshalled); err != nil {
			return err
		}
		amount, err := library.ParseAmount(unmarshalled.Amount)
		if err != nil {
			return err
		}
		return l.settlement.Deposit(caller, unmarshalled.To, amount)
	}
	return fmt.Errorf("I am the ledger, event %s was sent to me but I don't know how to handle kind %d", event.ID, event.Kind)
}

func decode(event nostr.Event, v any) error {
	if err := json.Unmarshal([]byte(event.Content), v); err != nil {
		return fmt.Errorf("%s reported for event %s", err.Error(), event.ID)
	}
	return nil
}
