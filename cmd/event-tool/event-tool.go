package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/spf13/viper"
	"memberdao/engine/actors"
	"memberdao/engine/library"
)

// event-tool signs a state change request with the engine wallet and prints it as one JSON line,
// ready to be appended to the inbox file.
//
//	event-tool <kind> <json content> [replay hash]
func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: event-tool <kind> <json content> [replay hash]")
		os.Exit(2)
	}
	conf := viper.New()
	// Now we initialise this configuration with basic settings that are required on startup.
	actors.InitConfig(conf)
	// make the config accessible globally
	actors.SetConfig(conf)

	kind, err := strconv.Atoi(os.Args[1])
	if err != nil {
		library.LogCLI(err.Error(), 0)
	}
	if !json.Valid([]byte(os.Args[2])) {
		library.LogCLI("content is not valid JSON", 0)
	}
	replay := actors.ReplayPrevention
	if len(os.Args) > 3 {
		replay = os.Args[3]
	}
	e, err := createEvent(actors.MyWallet(), kind, os.Args[2], replay)
	if err != nil {
		library.LogCLI(err.Error(), 0)
	}
	b, err := json.Marshal(e)
	if err != nil {
		library.LogCLI(err.Error(), 0)
	}
	fmt.Println(string(b))
}

func createEvent(w library.Wallet, kind int, content, replay string) (nostr.Event, error) {
	e := nostr.Event{
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Kind:      kind,
		Tags:      nostr.Tags{nostr.Tag{"r", replay}},
		Content:   content,
	}
	if err := actors.SignEvent(w, &e); err != nil {
		return nostr.Event{}, err
	}
	return e, nil
}
