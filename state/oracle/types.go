package oracle

import (
	"time"

	"github.com/holiman/uint256"
	"memberdao/engine/library"
)

// ErrNotAvailable is returned for pairs that have never been relayed.
const ErrNotAvailable = "REF_DATA_NOT_AVAILABLE"

//Kind641500 relays the EEUR/EUR rate, scaled by 1e18, observed at Timestamp (unix seconds)
type Kind641500 struct {
	Rate      string `json:"rate"`
	Timestamp int64  `json:"timestamp"`
}

type DidRelayEEURData struct {
	Relayer   library.Account
	Rate      *uint256.Int
	Timestamp time.Time
}

func (DidRelayEEURData) ReceiptName() string { return "DidRelayEEURData" }

type Mapped struct {
	Rate      *uint256.Int
	Timestamp time.Time
	Relayer   library.Account
}
