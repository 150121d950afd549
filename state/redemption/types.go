package redemption

import (
	"time"

	"github.com/holiman/uint256"
	"memberdao/engine/library"
)

type Config struct {
	// Delay between an offer and the moment its committed tokens become redeemable.
	Delay time.Duration
	// A mint can back an offer only if it is younger than this when the commitment becomes ready.
	EligibilityWindow time.Duration
	// Only mints at most this long before the latest mint can back a redemption.
	RecencyWindow time.Duration
	// How long a ready commitment stays redeemable. Zero keeps it open until released or redeemed.
	Period time.Duration
}

func DefaultConfig() Config {
	return Config{
		Delay:             library.Days(60),
		EligibilityWindow: library.Days(450),
		RecencyWindow:     library.Days(90),
	}
}

type mint struct {
	MintedAt  time.Time
	Amount    *uint256.Int
	Remaining *uint256.Int
}

type commitment struct {
	Mint      int
	Amount    *uint256.Int
	OfferedAt time.Time
	ReadyAt   time.Time
	EndsAt    time.Time
}

type ledger struct {
	mints            []mint
	mintCursor       int
	lastMint         time.Time
	commitments      []commitment
	commitmentCursor int
	uncommitted      *uint256.Int
}

type Commitment struct {
	MintedAt time.Time
	Amount   *uint256.Int
	ReadyAt  time.Time
	EndsAt   time.Time
}

type Position struct {
	LastMint    time.Time
	Redeemable  *uint256.Int
	Uncommitted *uint256.Int
	Commitments []Commitment
}

type Mapped map[library.Account]Position
