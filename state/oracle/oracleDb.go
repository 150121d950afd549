package oracle

import (
	"strings"
	"time"

	"github.com/holiman/uint256"
	"memberdao/engine/library"
	"memberdao/state/access"
)

// Feed is a relayed reference rate for the stable asset. Only the EEUR/EUR pair exists.
type Feed struct {
	policy    access.Policy
	recorder  library.Recorder
	rate      *uint256.Int
	timestamp time.Time
	relayer   library.Account
}

func New(policy access.Policy, recorder library.Recorder) *Feed {
	if recorder == nil {
		recorder = library.Discard
	}
	return &Feed{policy: policy, recorder: recorder}
}

func (f *Feed) Relay(caller library.Account, rate *uint256.Int, timestamp time.Time) error {
	if err := access.Require(f.policy, access.Relayer, caller); err != nil {
		return err
	}
	if rate == nil || rate.IsZero() {
		return library.InvalidState("rate must be greater than zero")
	}
	if timestamp.Before(f.timestamp) {
		return library.InvalidState("relayed data is older than the current rate")
	}
	f.rate = rate
	f.timestamp = timestamp
	f.relayer = caller
	f.recorder.Record(DidRelayEEURData{Relayer: caller, Rate: rate, Timestamp: timestamp})
	return nil
}

func (f *Feed) GetReferenceData(base, quote string) (*uint256.Int, time.Time, time.Time, error) {
	if !strings.EqualFold(base, "EEUR") || !strings.EqualFold(quote, "EUR") || f.rate == nil {
		return nil, time.Time{}, time.Time{}, library.InvalidState(ErrNotAvailable)
	}
	return f.rate, f.timestamp, f.timestamp, nil
}

func (f *Feed) GetMap() Mapped {
	return Mapped{Rate: f.rate, Timestamp: f.timestamp, Relayer: f.relayer}
}
