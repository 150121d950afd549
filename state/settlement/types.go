package settlement

import (
	"github.com/holiman/uint256"
	"memberdao/engine/library"
)

//Kind641600 credits the settlement asset to an account
type Kind641600 struct {
	To     library.Account `json:"to"`
	Amount string          `json:"amount"`
}

type Deposited struct {
	To     library.Account
	Amount *uint256.Int
}

func (Deposited) ReceiptName() string { return "Deposited" }

type Settled struct {
	From   library.Account
	To     library.Account
	Amount *uint256.Int
}

func (Settled) ReceiptName() string { return "Settled" }

type Mapped map[library.Account]*uint256.Int
