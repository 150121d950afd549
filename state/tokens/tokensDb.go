package tokens

import (
	"github.com/holiman/uint256"
	"memberdao/engine/library"
	"memberdao/state/access"
	"memberdao/state/membership"
)

// Ledger holds balances and vesting. The unlocked part of a balance is derived on every read from
// the vesting amount and the offers that are still active at that instant.
type Ledger struct {
	registry   membership.Reader
	policy     access.Policy
	recorder   library.Recorder
	voting     TransferHook
	redemption MintHook
	offers     OfferReader
	market     library.Account
	balances   map[library.Account]*uint256.Int
	vesting    map[library.Account]*uint256.Int
	supply     *uint256.Int
}

func New(registry membership.Reader, policy access.Policy, voting TransferHook, recorder library.Recorder) *Ledger {
	if recorder == nil {
		recorder = library.Discard
	}
	return &Ledger{
		registry: registry,
		policy:   policy,
		recorder: recorder,
		voting:   voting,
		balances: make(map[library.Account]*uint256.Int),
		vesting:  make(map[library.Account]*uint256.Int),
		supply:   library.Zero(),
	}
}

func (l *Ledger) SetRedemptionController(hook MintHook) {
	l.redemption = hook
}

// SetInternalMarket registers the offer book and the account it acts as when it moves tokens.
func (l *Ledger) SetInternalMarket(market library.Account, offers OfferReader) {
	l.market = market
	l.offers = offers
}

func (l *Ledger) Mint(caller, to library.Account, amount *uint256.Int) error {
	if err := access.Require(l.policy, access.Resolution, caller); err != nil {
		return err
	}
	return l.mint(to, amount)
}

func (l *Ledger) MintVesting(caller, to library.Account, amount *uint256.Int) error {
	if err := access.Require(l.policy, access.Resolution, caller); err != nil {
		return err
	}
	vesting, err := library.Add(l.VestingBalanceOf(to), amount)
	if err != nil {
		return err
	}
	if err := l.mint(to, amount); err != nil {
		return err
	}
	l.vesting[to] = vesting
	l.recorder.Record(VestingSet{Account: to, Amount: vesting})
	return nil
}

func (l *Ledger) mint(to library.Account, amount *uint256.Int) error {
	if err := validTarget(to, amount); err != nil {
		return err
	}
	supply, err := library.Add(l.supply, amount)
	if err != nil {
		return err
	}
	l.supply = supply
	l.balances[to] = library.MustAdd(l.BalanceOf(to), amount)
	l.recorder.Record(Transfer{From: library.NoAccount, To: to, Amount: amount})
	l.voting.AfterTokenTransfer(library.NoAccount, to, amount)
	if l.redemption != nil {
		l.redemption.AfterMint(to, amount)
	}
	return nil
}

// Transfer moves the caller's own tokens. Contributors have to go through the internal market.
func (l *Ledger) Transfer(caller, to library.Account, amount *uint256.Int) error {
	if l.registry.IsAtLeast(membership.Contributor, caller) {
		return library.Unauthorized("contributor cannot transfer")
	}
	if err := l.transfer(caller, to, amount); err != nil {
		return err
	}
	l.afterDebit(caller)
	return nil
}

// TransferFrom is used by the internal market to settle matched offers and withdrawals.
func (l *Ledger) TransferFrom(caller, from, to library.Account, amount *uint256.Int) error {
	if len(l.market) == 0 || caller != l.market {
		return library.Unauthorized("only the internal market can transfer on behalf of an account")
	}
	return l.transfer(from, to, amount)
}

func (l *Ledger) transfer(from, to library.Account, amount *uint256.Int) error {
	if err := validTarget(to, amount); err != nil {
		return err
	}
	if err := l.checkSpendable(from, amount); err != nil {
		return err
	}
	l.setBalance(from, library.MustSub(l.BalanceOf(from), amount))
	l.balances[to] = library.MustAdd(l.BalanceOf(to), amount)
	l.recorder.Record(Transfer{From: from, To: to, Amount: amount})
	l.voting.AfterTokenTransfer(from, to, amount)
	return nil
}

func (l *Ledger) Burn(caller, account library.Account, amount *uint256.Int) error {
	if err := access.Require(l.policy, access.Resolution, caller); err != nil {
		return err
	}
	if l.registry.IsAtLeast(membership.Contributor, account) {
		return library.Unauthorized("contributor cannot transfer")
	}
	if amount == nil || amount.IsZero() {
		return library.InvalidState("amount must be greater than zero")
	}
	if err := l.checkSpendable(account, amount); err != nil {
		return err
	}
	l.setBalance(account, library.MustSub(l.BalanceOf(account), amount))
	l.supply = library.MustSub(l.supply, amount)
	l.recorder.Record(Transfer{From: account, To: library.NoAccount, Amount: amount})
	l.voting.AfterTokenTransfer(account, library.NoAccount, amount)
	l.afterDebit(account)
	return nil
}

func (l *Ledger) afterDebit(account library.Account) {
	if l.offers != nil {
		l.offers.AfterDebit(account)
	}
}

// SetVesting lowers the vesting lock of account. It can never raise it.
func (l *Ledger) SetVesting(caller, account library.Account, amount *uint256.Int) error {
	if err := access.Require(l.policy, access.Operator, caller); err != nil {
		return err
	}
	if amount == nil {
		return library.InvalidState("amount cannot be empty")
	}
	if amount.Gt(l.VestingBalanceOf(account)) {
		return library.InvalidState("vesting can only be decreased")
	}
	if amount.IsZero() {
		delete(l.vesting, account)
	} else {
		l.vesting[account] = amount
	}
	l.recorder.Record(VestingSet{Account: account, Amount: amount})
	return nil
}

func (l *Ledger) checkSpendable(account library.Account, amount *uint256.Int) error {
	balance := l.BalanceOf(account)
	if amount.Gt(balance) {
		return library.Insufficient("transfer amount exceeds balance")
	}
	if amount.Gt(library.SubFloor(balance, l.VestingBalanceOf(account))) {
		return library.Insufficient("transfer amount exceeds vesting")
	}
	unlocked, err := l.unlocked(account)
	if err != nil {
		return err
	}
	if amount.Gt(unlocked) {
		return library.Insufficient("transfer amount exceeds unlocked balance")
	}
	return nil
}

func validTarget(to library.Account, amount *uint256.Int) error {
	if len(to) == 0 {
		return library.InvalidState("cannot transfer to the empty account")
	}
	if amount == nil || amount.IsZero() {
		return library.InvalidState("amount must be greater than zero")
	}
	return nil
}

func (l *Ledger) setBalance(account library.Account, amount *uint256.Int) {
	if amount.IsZero() {
		delete(l.balances, account)
		return
	}
	l.balances[account] = amount
}

func (l *Ledger) unlocked(account library.Account) (*uint256.Int, error) {
	free, err := library.Sub(l.BalanceOf(account), l.LockedBalanceOf(account))
	if err != nil {
		return nil, library.Invariant("locked balance of %s exceeds its balance", account)
	}
	return free, nil
}

func (l *Ledger) BalanceOf(account library.Account) *uint256.Int {
	return library.OrZero(l.balances[account])
}

func (l *Ledger) VestingBalanceOf(account library.Account) *uint256.Int {
	return library.OrZero(l.vesting[account])
}

func (l *Ledger) OfferedBalanceOf(account library.Account) *uint256.Int {
	if l.offers == nil {
		return library.Zero()
	}
	return l.offers.OfferedBalanceOf(account)
}

// LockedBalanceOf is vesting plus everything in active offers.
func (l *Ledger) LockedBalanceOf(account library.Account) *uint256.Int {
	return library.MustAdd(l.VestingBalanceOf(account), l.OfferedBalanceOf(account))
}

func (l *Ledger) UnlockedBalanceOf(account library.Account) *uint256.Int {
	free, err := l.unlocked(account)
	if err != nil {
		library.LogCLI(err.Error(), 1)
		return library.Zero()
	}
	return free
}

func (l *Ledger) TotalSupply() *uint256.Int {
	return l.supply
}

func (l *Ledger) GetMap() Mapped {
	m := make(Mapped)
	for account, balance := range l.balances {
		m[account] = Holding{
			Balance:  balance,
			Vesting:  l.VestingBalanceOf(account),
			Offered:  l.OfferedBalanceOf(account),
			Unlocked: l.UnlockedBalanceOf(account),
		}
	}
	return m
}

// CheckInvariants verifies the balance partition of every account and the total supply.
func (l *Ledger) CheckInvariants() error {
	sum := library.Zero()
	for account, balance := range l.balances {
		if l.LockedBalanceOf(account).Gt(balance) {
			return library.Invariant("locked balance of %s exceeds its balance", account)
		}
		sum = library.MustAdd(sum, balance)
	}
	for account, vesting := range l.vesting {
		if vesting.Gt(l.BalanceOf(account)) {
			return library.Invariant("vesting of %s exceeds its balance", account)
		}
	}
	if !sum.Eq(l.supply) {
		return library.Invariant("sum of balances %s does not match supply %s", sum.Dec(), l.supply.Dec())
	}
	return nil
}
