package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/nbd-wtf/go-nostr"
	"github.com/spf13/viper"
	"memberdao/engine/actors"
	"memberdao/engine/library"
	"memberdao/messaging/eventconductor"
	"memberdao/state/ledger"
)

func main() {
	// Various aspect of this application require global and local settings. To keep things
	// clean and tidy we put these settings in a Viper configuration.
	conf := viper.New()

	// Now we initialise this configuration with basic settings that are required on startup.
	actors.InitConfig(conf)
	// make the config accessible globally
	actors.SetConfig(conf)
	fmt.Println("CURRENT CONFIG")
	for k, v := range actors.MakeOrGetConfig().AllSettings() {
		fmt.Printf("\nKey: %s; Value: %v\n", k, v)
	}
	terminateChan := make(chan struct{})
	actors.SetTerminateChan(terminateChan)

	config, err := ledger.ConfigFromViper(conf)
	if err != nil {
		library.LogCLI(err.Error(), 0)
	}
	l, err := ledger.New(config)
	if err != nil {
		library.LogCLI(err.Error(), 0)
	}
	conductor, err := eventconductor.New(l, conf.GetInt("seenEventCache"))
	if err != nil {
		library.LogCLI(err.Error(), 0)
	}
	if err := conductor.RestoreFromDisk(); err != nil {
		library.LogCLI(err.Error(), 0)
	}
	conductor.EnablePersistence()
	if relays := conf.GetStringSlice("relays"); len(relays) > 0 {
		publish, err := actors.StartRelaysForPublishing(relays)
		if err != nil {
			library.LogCLI(err.Error(), 1)
		} else {
			conductor.PublishTo(publish)
		}
	}

	events := readInbox()
	conductor.Submit(events...)
	library.LogCLI(fmt.Sprintf("Handled %d of %d events from the inbox", conductor.Drain(), len(events)), 4)

	inbox := make(chan nostr.Event)
	conductor.Start(inbox)

	go cliListener(terminateChan, l, conductor, inbox)
	<-terminateChan
	actors.GetWaitGroup().Wait()
	fmt.Println("Bye")
}

// readInbox reads events from the inbox file, one JSON object per line.
func readInbox() []nostr.Event {
	conf := actors.MakeOrGetConfig()
	f, err := os.Open(conf.GetString("rootDir") + conf.GetString("inboxFile"))
	if err != nil {
		library.LogCLI(err.Error(), 3)
		return nil
	}
	defer f.Close()
	var events []nostr.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e nostr.Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			library.LogCLI(fmt.Sprintf("skipping inbox line: %s", err.Error()), 2)
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		library.LogCLI(err.Error(), 1)
	}
	return events
}
