package settlement

import (
	"github.com/holiman/uint256"
	"memberdao/engine/library"
	"memberdao/state/access"
)

// Book holds balances of the stable asset buyers pay with. Only the market moves funds between
// accounts, deposits are administered by the token manager.
type Book struct {
	policy   access.Policy
	recorder library.Recorder
	balances map[library.Account]*uint256.Int
	supply   *uint256.Int
}

func New(policy access.Policy, recorder library.Recorder) *Book {
	if recorder == nil {
		recorder = library.Discard
	}
	return &Book{
		policy:   policy,
		recorder: recorder,
		balances: make(map[library.Account]*uint256.Int),
		supply:   library.Zero(),
	}
}

func (b *Book) Deposit(caller, to library.Account, amount *uint256.Int) error {
	if err := access.Require(b.policy, access.TokenManager, caller); err != nil {
		return err
	}
	if len(to) == 0 {
		return library.InvalidState("cannot deposit to the empty account")
	}
	if amount == nil || amount.IsZero() {
		return library.InvalidState("amount must be greater than zero")
	}
	supply, err := library.Add(b.supply, amount)
	if err != nil {
		return err
	}
	b.supply = supply
	b.balances[to] = library.MustAdd(b.BalanceOf(to), amount)
	b.recorder.Record(Deposited{To: to, Amount: amount})
	return nil
}

func (b *Book) TransferFrom(from, to library.Account, amount *uint256.Int) error {
	if len(to) == 0 {
		return library.InvalidState("cannot transfer to the empty account")
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	if amount.Gt(b.BalanceOf(from)) {
		return library.Insufficient("settlement amount exceeds balance")
	}
	b.balances[from] = library.MustSub(b.BalanceOf(from), amount)
	if b.balances[from].IsZero() {
		delete(b.balances, from)
	}
	b.balances[to] = library.MustAdd(b.BalanceOf(to), amount)
	b.recorder.Record(Settled{From: from, To: to, Amount: amount})
	return nil
}

func (b *Book) Transfer(caller, to library.Account, amount *uint256.Int) error {
	return b.TransferFrom(caller, to, amount)
}

func (b *Book) BalanceOf(account library.Account) *uint256.Int {
	return library.OrZero(b.balances[account])
}

func (b *Book) TotalSupply() *uint256.Int {
	return b.supply
}

func (b *Book) GetMap() Mapped {
	m := make(Mapped)
	for account, balance := range b.balances {
		m[account] = balance
	}
	return m
}

func (b *Book) CheckInvariants() error {
	sum := library.Zero()
	for _, balance := range b.balances {
		sum = library.MustAdd(sum, balance)
	}
	if !sum.Eq(b.supply) {
		return library.Invariant("settlement balances %s do not add up to supply %s", sum.Dec(), b.supply.Dec())
	}
	return nil
}
