package main

import (
	"encoding/json"
	"fmt"

	"github.com/eiannone/keyboard"
	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/exp/slices"
	"memberdao/engine/actors"
	"memberdao/engine/library"
	"memberdao/messaging/eventconductor"
	"memberdao/state/ledger"
)

// cliListener is a cheap and nasty way to speed up development cycles. It listens for keypresses and executes commands.
func cliListener(interrupt chan struct{}, l *ledger.Ledger, conductor *eventconductor.Conductor, inbox chan nostr.Event) {
	fmt.Println("VIEW CURRENT STATE:\ns: full state\nh: state hash\nv: check invariants\nw: current wallet\nr: replay head of current wallet\nc: engine config\nC: state change events\ni: reload inbox file\nq: to quit\nSee cliListener.go for more")
	for {
		r, k, err := keyboard.GetSingleKey()
		if err != nil {
			library.LogCLI(err.Error(), 1)
			return
		}
		str := string(r)
		switch str {
		default:
			if k == keyboard.KeyEnter {
				fmt.Println("\n-----------------------------------")
				break
			}
			if r == 0 {
				break
			}
			fmt.Println("Key " + str + " is not bound to any procedure. See main.cliListener for more details.")
		case "s":
			b, err := json.MarshalIndent(l.GetMap(), "", " ")
			if err != nil {
				library.LogCLI(err.Error(), 1)
				break
			}
			fmt.Println(string(b))
		case "h":
			h, err := l.StateHash()
			if err != nil {
				library.LogCLI(err.Error(), 1)
				break
			}
			fmt.Printf("State hash at %s: %s\n", l.Now(), h)
		case "v":
			if err := l.CheckInvariants(); err != nil {
				library.LogCLI(err.Error(), 1)
				break
			}
			fmt.Println("All invariants hold")
		case "q":
			close(interrupt)
			return
		case "w":
			account := actors.MyWallet().Account
			p := l.Position(account)
			fmt.Printf("Current Wallet: \n%s\n", account)
			fmt.Printf("Status: %s Balance: %s Unlocked: %s Voting power: %s\n", p.Status.String(), p.Balance.Dec(), p.Unlocked.Dec(), p.VotingPower.Dec())
		case "r":
			fmt.Println(l.Replay(actors.MyWallet().Account))
		case "c":
			fmt.Println("CURRENT CONFIG")
			for k, v := range actors.MakeOrGetConfig().AllSettings() {
				fmt.Printf("\nKey: %s; Value: %v\n", k, v)
			}
		case "C":
			fmt.Println("ALL STATE CHANGE EVENTS IN ORDER THEY WERE HANDLED BY THIS ENGINE:")
			for _, e := range conductor.Journal() {
				fmt.Printf("\nID: %s Kind: %d Signed By: %s\nTags: %#v\nContent: %s\n", e.ID, e.Kind, e.PubKey, e.Tags, e.Content)
			}
		case "i":
			events := readInbox()
			slices.SortStableFunc(events, func(a, b nostr.Event) bool {
				return a.CreatedAt < b.CreatedAt
			})
			for _, e := range events {
				inbox <- e
			}
			fmt.Printf("Sent %d inbox events to the conductor\n", len(events))
		}
	}
}
