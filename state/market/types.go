package market

import (
	"time"

	"github.com/holiman/uint256"
	"memberdao/engine/library"
)

// RateScale is the fixed point unit of oracle rates, 1e18 means one to one.
var RateScale = uint256.NewInt(1_000_000_000_000_000_000)

// TokenLedger is the part of the token ledger the market needs.
type TokenLedger interface {
	UnlockedBalanceOf(account library.Account) *uint256.Int
	TransferFrom(caller, from, to library.Account, amount *uint256.Int) error
}

// Redemption receives the offer pipeline events.
type Redemption interface {
	AfterOffer(account library.Account, amount *uint256.Int)
	AfterRelease(account library.Account, amount *uint256.Int)
	AfterRedeem(account library.Account, amount *uint256.Int) error
	RedeemableBalance(account library.Account) *uint256.Int
}

// AssetTransfer moves the settlement asset (the stable token buyers pay with).
type AssetTransfer interface {
	TransferFrom(from, to library.Account, amount *uint256.Int) error
	Transfer(caller, to library.Account, amount *uint256.Int) error
}

type PriceOracle interface {
	GetReferenceData(base, quote string) (rate *uint256.Int, lastUpdatedBase, lastUpdatedQuote time.Time, err error)
}

type Offer struct {
	ID        uint64
	Account   library.Account
	Offered   *uint256.Int
	Amount    *uint256.Int
	CreatedAt time.Time
	ExpiresAt time.Time
	// set once the expiry has been observed by a state change
	expired bool
}

func (o *Offer) ExpiredAt(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

//Kind641300 offers the signer's tokens on the internal market
type Kind641300 struct {
	Amount string `json:"amount"`
}

//Kind641301 matches offers of From, paid by To
type Kind641301 struct {
	From   library.Account `json:"from"`
	To     library.Account `json:"to"`
	Amount string          `json:"amount"`
}

//Kind641302 withdraws tokens from expired offers
type Kind641302 struct {
	To     library.Account `json:"to"`
	Amount string          `json:"amount"`
}

//Kind641303 redeems tokens from expired offers against the reserve
type Kind641303 struct {
	Amount string `json:"amount"`
}

//Kind641310 sets the offer duration, as a Go duration string
type Kind641310 struct {
	Duration string `json:"duration"`
}

//Kind641311 sets the exchange pair used to price redemptions
type Kind641311 struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

//Kind641312 sets the reserve account
type Kind641312 struct {
	Reserve library.Account `json:"reserve"`
}

type OfferCreated struct {
	ID        uint64
	Account   library.Account
	Amount    *uint256.Int
	ExpiresAt time.Time
}

func (OfferCreated) ReceiptName() string { return "OfferCreated" }

type OfferExpired struct {
	ID      uint64
	Account library.Account
	Amount  *uint256.Int
}

func (OfferExpired) ReceiptName() string { return "OfferExpired" }

type OfferMatched struct {
	ID     uint64
	From   library.Account
	To     library.Account
	Amount *uint256.Int
}

func (OfferMatched) ReceiptName() string { return "OfferMatched" }

type Withdrawn struct {
	Account library.Account
	To      library.Account
	Amount  *uint256.Int
}

func (Withdrawn) ReceiptName() string { return "Withdrawn" }

// RemnantReleased is recorded when expired offer tokens leave the account outside the market.
type RemnantReleased struct {
	Account library.Account
	Amount  *uint256.Int
}

func (RemnantReleased) ReceiptName() string { return "RemnantReleased" }

type Redeemed struct {
	Account library.Account
	Amount  *uint256.Int
	Paid    *uint256.Int
}

func (Redeemed) ReceiptName() string { return "Redeemed" }

type Position struct {
	Offered      *uint256.Int
	Withdrawable *uint256.Int
	Offers       []Offer
}

type Mapped map[library.Account]Position
