package voting

import (
	"github.com/holiman/uint256"
	"memberdao/engine/library"
)

//Kind641100 delegates the signer's voting power
type Kind641100 struct {
	To library.Account `json:"to"`
}

type DelegateChanged struct {
	Delegator library.Account
	From      library.Account
	To        library.Account
}

func (DelegateChanged) ReceiptName() string { return "DelegateChanged" }

type DelegateVotesChanged struct {
	Delegate library.Account
	Previous *uint256.Int
	Current  *uint256.Int
}

func (DelegateVotesChanged) ReceiptName() string { return "DelegateVotesChanged" }

type Delegation struct {
	Delegate   library.Account
	Delegators int64
	Power      *uint256.Int
	Balance    *uint256.Int
}

type Mapped map[library.Account]Delegation
