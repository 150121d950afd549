package voting

import (
	"github.com/holiman/uint256"
	"golang.org/x/exp/slices"
	"memberdao/engine/library"
	"memberdao/state/membership"
)

// Ledger keeps the single level delegation graph and the voting power that flows through it.
//
// aggregate[d] is the sum of the balances of every account whose delegate is d, d included.
// It only counts as voting power while d is delegated to itself, so the delegators of a removed
// contributor keep their place in aggregate[d] but contribute nothing until they move or d
// self-delegates again.
type Ledger struct {
	registry   membership.Reader
	recorder   library.Recorder
	delegates  map[library.Account]library.Account
	delegators map[library.Account]int64
	aggregate  map[library.Account]*uint256.Int
	balances   map[library.Account]*uint256.Int
	total      *uint256.Int
}

func New(registry membership.Reader, recorder library.Recorder) *Ledger {
	if recorder == nil {
		recorder = library.Discard
	}
	return &Ledger{
		registry:   registry,
		recorder:   recorder,
		delegates:  make(map[library.Account]library.Account),
		delegators: make(map[library.Account]int64),
		aggregate:  make(map[library.Account]*uint256.Int),
		balances:   make(map[library.Account]*uint256.Int),
		total:      library.Zero(),
	}
}

func (l *Ledger) isContributor(account library.Account) bool {
	return l.registry.IsAtLeast(membership.Contributor, account)
}

func (l *Ledger) Delegate(caller, to library.Account) error {
	if !l.isContributor(caller) {
		return library.Unauthorized("only contributors can delegate")
	}
	if !l.isContributor(to) {
		return library.Unauthorized("only contributors can be delegated")
	}
	current, hasDelegate := l.delegates[caller]
	if !hasDelegate && to != caller {
		return library.InvalidState("first delegate should be self")
	}
	if hasDelegate && current == to {
		return library.InvalidState("new delegate equal to old delegate")
	}
	if to != caller {
		if l.delegates[to] != to {
			return library.InvalidState("new delegate is not self delegated")
		}
		if l.delegators[caller] > 0 {
			return library.InvalidState("delegator is already delegated")
		}
	}

	before := l.powers(caller, current, to)
	balance := l.balanceOf(caller)
	wasSelf := current == caller
	if hasDelegate {
		l.subtract(current, balance)
		if current != caller {
			l.delegators[current]--
		}
	}
	if wasSelf {
		// no delegators can be left here, but keep total consistent with the definition
		l.total = library.SubFloor(l.total, l.aggregateOf(caller))
	}
	if to == caller {
		l.total = library.MustAdd(l.total, l.aggregateOf(caller))
	}
	l.delegates[caller] = to
	if to != caller {
		l.delegators[to]++
	}
	l.add(to, balance)
	l.recorder.Record(DelegateChanged{Delegator: caller, From: current, To: to})
	l.emitChanges(before)
	return nil
}

// AfterTokenTransfer mirrors a balance change. from or to is empty for mints and burns.
func (l *Ledger) AfterTokenTransfer(from, to library.Account, amount *uint256.Int) {
	var touched []library.Account
	if from != library.NoAccount {
		l.dropIfNotContributor(from)
		touched = append(touched, l.delegates[from])
	}
	if to != library.NoAccount {
		l.dropIfNotContributor(to)
		touched = append(touched, l.delegates[to])
	}
	before := l.powers(touched...)
	if from != library.NoAccount {
		balance, err := library.Sub(l.balanceOf(from), amount)
		if err != nil {
			library.LogCLI("voting balance mirror for "+from+" is out of sync with the token ledger", 1)
			balance = library.Zero()
		}
		l.setBalance(from, balance)
		if d, ok := l.delegates[from]; ok {
			l.subtract(d, amount)
		}
	}
	if to != library.NoAccount {
		l.setBalance(to, library.MustAdd(l.balanceOf(to), amount))
		if d, ok := l.delegates[to]; ok {
			l.add(d, amount)
		}
	}
	l.emitChanges(before)
}

// BeforeRemoveContributor withdraws everything account contributes to voting power and clears its
// delegation entry. Accounts delegating to it are left pointing at it with zero effective power.
func (l *Ledger) BeforeRemoveContributor(account library.Account) {
	d, ok := l.delegates[account]
	if !ok {
		return
	}
	before := l.powers(account, d)
	l.removeEntry(account)
	l.emitChanges(before)
}

func (l *Ledger) dropIfNotContributor(account library.Account) {
	if _, ok := l.delegates[account]; ok && !l.isContributor(account) {
		before := l.powers(account, l.delegates[account])
		l.removeEntry(account)
		l.emitChanges(before)
	}
}

func (l *Ledger) removeEntry(account library.Account) {
	d := l.delegates[account]
	balance := l.balanceOf(account)
	if d == account {
		l.total = library.SubFloor(l.total, l.aggregateOf(account))
		l.aggregate[account] = library.SubFloor(l.aggregateOf(account), balance)
	} else {
		l.subtract(d, balance)
		l.delegators[d]--
	}
	delete(l.delegates, account)
	l.recorder.Record(DelegateChanged{Delegator: account, From: d, To: library.NoAccount})
}

func (l *Ledger) add(delegate library.Account, amount *uint256.Int) {
	l.aggregate[delegate] = library.MustAdd(l.aggregateOf(delegate), amount)
	if l.delegates[delegate] == delegate {
		l.total = library.MustAdd(l.total, amount)
	}
}

func (l *Ledger) subtract(delegate library.Account, amount *uint256.Int) {
	l.aggregate[delegate] = library.SubFloor(l.aggregateOf(delegate), amount)
	if l.delegates[delegate] == delegate {
		l.total = library.SubFloor(l.total, amount)
	}
}

func (l *Ledger) aggregateOf(account library.Account) *uint256.Int {
	return library.OrZero(l.aggregate[account])
}

func (l *Ledger) balanceOf(account library.Account) *uint256.Int {
	return library.OrZero(l.balances[account])
}

func (l *Ledger) setBalance(account library.Account, amount *uint256.Int) {
	if amount.IsZero() {
		delete(l.balances, account)
		return
	}
	l.balances[account] = amount
}

type powerSnapshot struct {
	accounts []library.Account
	powers   []*uint256.Int
}

func (l *Ledger) powers(accounts ...library.Account) powerSnapshot {
	var s powerSnapshot
	for _, a := range accounts {
		if a == library.NoAccount || slices.Contains(s.accounts, a) {
			continue
		}
		s.accounts = append(s.accounts, a)
		s.powers = append(s.powers, l.GetVotingPower(a))
	}
	return s
}

func (l *Ledger) emitChanges(before powerSnapshot) {
	for i, a := range before.accounts {
		current := l.GetVotingPower(a)
		if !current.Eq(before.powers[i]) {
			l.recorder.Record(DelegateVotesChanged{Delegate: a, Previous: before.powers[i], Current: current})
		}
	}
}

func (l *Ledger) GetVotingPower(account library.Account) *uint256.Int {
	if l.delegates[account] != account {
		return library.Zero()
	}
	return l.aggregateOf(account)
}

// GetDelegate returns the delegate of record, or NoAccount.
func (l *Ledger) GetDelegate(account library.Account) library.Account {
	return l.delegates[account]
}

func (l *Ledger) GetTotalVotingPower() *uint256.Int {
	return l.total
}

func (l *Ledger) CanVote(account library.Account) bool {
	d, ok := l.delegates[account]
	return ok && l.delegates[d] == d
}

func (l *Ledger) GetMap() Mapped {
	m := make(Mapped)
	for account, d := range l.delegates {
		m[account] = Delegation{
			Delegate:   d,
			Delegators: l.delegators[account],
			Power:      l.GetVotingPower(account),
			Balance:    l.balanceOf(account),
		}
	}
	return m
}

// CheckInvariants recomputes the total and the delegation depth from scratch.
func (l *Ledger) CheckInvariants() error {
	sum := library.Zero()
	for account, d := range l.delegates {
		if d == account {
			if !l.isContributor(account) {
				return library.Invariant("%s is self delegated but not a contributor", account)
			}
			sum = library.MustAdd(sum, l.aggregateOf(account))
			continue
		}
		if next, ok := l.delegates[d]; ok && next != d {
			return library.Invariant("delegation chain %s -> %s -> %s is deeper than one", account, d, next)
		}
	}
	if !sum.Eq(l.total) {
		return library.Invariant("total voting power %s does not match the sum of self delegated power %s", l.total.Dec(), sum.Dec())
	}
	return nil
}
