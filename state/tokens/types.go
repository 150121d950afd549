package tokens

import (
	"github.com/holiman/uint256"
	"memberdao/engine/library"
)

// TransferHook is notified after every balance change. It is how voting power follows tokens.
type TransferHook interface {
	AfterTokenTransfer(from, to library.Account, amount *uint256.Int)
}

// MintHook is notified after every mint, transfers are not reported.
type MintHook interface {
	AfterMint(account library.Account, amount *uint256.Int)
}

// OfferReader reports how much of a balance is locked in active market offers. AfterDebit is
// called when tokens leave an account without going through the market.
type OfferReader interface {
	OfferedBalanceOf(account library.Account) *uint256.Int
	AfterDebit(account library.Account)
}

//Kind641200 mints tokens
type Kind641200 struct {
	To     library.Account `json:"to"`
	Amount string          `json:"amount"`
}

//Kind641201 mints tokens that are locked as vesting
type Kind641201 struct {
	To     library.Account `json:"to"`
	Amount string          `json:"amount"`
}

//Kind641202 transfers the signer's tokens
type Kind641202 struct {
	To     library.Account `json:"to"`
	Amount string          `json:"amount"`
}

//Kind641203 burns tokens held by an account
type Kind641203 struct {
	Account library.Account `json:"account"`
	Amount  string          `json:"amount"`
}

//Kind641204 decreases the vesting amount of an account
type Kind641204 struct {
	Account library.Account `json:"account"`
	Amount  string          `json:"amount"`
}

type Transfer struct {
	From   library.Account
	To     library.Account
	Amount *uint256.Int
}

func (Transfer) ReceiptName() string { return "Transfer" }

type VestingSet struct {
	Account library.Account
	Amount  *uint256.Int
}

func (VestingSet) ReceiptName() string { return "VestingSet" }

type Holding struct {
	Balance  *uint256.Int
	Vesting  *uint256.Int
	Offered  *uint256.Int
	Unlocked *uint256.Int
}

type Mapped map[library.Account]Holding
