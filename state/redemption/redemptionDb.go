package redemption

import (
	"time"

	"github.com/holiman/uint256"
	"memberdao/engine/library"
)

// Engine decides how much of an account's offered tokens can be bought back by the organization.
//
// Every mint opens a budget. An offer commits tokens from budgets that will still be eligible when
// the commitment becomes ready, oldest first, and the committed tokens become redeemable after Delay.
// Released tokens flow back into the budget they came from so a later offer can use them again.
type Engine struct {
	config   Config
	clock    library.Clock
	accounts map[library.Account]*ledger
}

func New(config Config, clock library.Clock) *Engine {
	return &Engine{
		config:   config,
		clock:    clock,
		accounts: make(map[library.Account]*ledger),
	}
}

func (e *Engine) Config() Config {
	return e.config
}

func (e *Engine) get(account library.Account) *ledger {
	l, ok := e.accounts[account]
	if !ok {
		l = &ledger{uncommitted: library.Zero()}
		e.accounts[account] = l
	}
	return l
}

func (e *Engine) AfterMint(account library.Account, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	now := e.clock.Now()
	l := e.get(account)
	l.mints = append(l.mints, mint{MintedAt: now, Amount: amount, Remaining: amount})
	l.lastMint = now
}

func (e *Engine) AfterOffer(account library.Account, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	now := e.clock.Now()
	l := e.get(account)
	e.recycle(l, now)
	e.advanceMintCursor(l, now)

	remaining := amount
	for i := l.mintCursor; i < len(l.mints) && !remaining.IsZero(); i++ {
		m := &l.mints[i]
		if m.Remaining.IsZero() || !e.eligible(l, m, now) {
			continue
		}
		take := library.Min(m.Remaining, remaining)
		m.Remaining = library.MustSub(m.Remaining, take)
		remaining = library.MustSub(remaining, take)
		c := commitment{Mint: i, Amount: take, OfferedAt: now, ReadyAt: now.Add(e.config.Delay)}
		if e.config.Period > 0 {
			c.EndsAt = c.ReadyAt.Add(e.config.Period)
		}
		l.commitments = append(l.commitments, c)
	}
	// offered tokens without eligible mint history never become redeemable
	l.uncommitted = library.MustAdd(l.uncommitted, remaining)
}

// AfterRelease takes tokens out of the redemption pipeline, uncommitted ones first, then the
// earliest commitments. Releasing more than is tracked is not an error.
func (e *Engine) AfterRelease(account library.Account, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	now := e.clock.Now()
	l := e.get(account)
	e.recycle(l, now)

	take := library.Min(l.uncommitted, amount)
	l.uncommitted = library.MustSub(l.uncommitted, take)
	remaining := library.MustSub(amount, take)

	for i := l.commitmentCursor; i < len(l.commitments) && !remaining.IsZero(); i++ {
		c := &l.commitments[i]
		if c.Amount.IsZero() {
			continue
		}
		take := library.Min(c.Amount, remaining)
		c.Amount = library.MustSub(c.Amount, take)
		remaining = library.MustSub(remaining, take)
		m := &l.mints[c.Mint]
		m.Remaining = library.MustAdd(m.Remaining, take)
	}
	l.advanceCommitmentCursor()
}

// AfterRedeem consumes ready commitments, earliest first.
func (e *Engine) AfterRedeem(account library.Account, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return library.InvalidState("amount must be greater than zero")
	}
	if amount.Gt(e.RedeemableBalance(account)) {
		return library.Insufficient("amount exceeds redeemable balance")
	}
	now := e.clock.Now()
	l := e.get(account)
	e.recycle(l, now)
	remaining := amount
	for i := l.commitmentCursor; i < len(l.commitments) && !remaining.IsZero(); i++ {
		c := &l.commitments[i]
		if c.Amount.IsZero() || !e.ready(l, c, now) {
			continue
		}
		take := library.Min(c.Amount, remaining)
		c.Amount = library.MustSub(c.Amount, take)
		remaining = library.MustSub(remaining, take)
	}
	l.advanceCommitmentCursor()
	if !remaining.IsZero() {
		return library.Invariant("redeemable balance of %s changed while redeeming", account)
	}
	return nil
}

func (e *Engine) RedeemableBalance(account library.Account) *uint256.Int {
	l, ok := e.accounts[account]
	if !ok {
		return library.Zero()
	}
	now := e.clock.Now()
	sum := library.Zero()
	for i := l.commitmentCursor; i < len(l.commitments); i++ {
		c := &l.commitments[i]
		if e.ready(l, c, now) {
			sum = library.MustAdd(sum, c.Amount)
		}
	}
	return sum
}

// ready reports whether a commitment can be redeemed now. The backing mint has to be recent
// again, so a later mint can take an older commitment out of redemption.
func (e *Engine) ready(l *ledger, c *commitment, now time.Time) bool {
	if now.Before(c.ReadyAt) {
		return false
	}
	if !c.EndsAt.IsZero() && !now.Before(c.EndsAt) {
		return false
	}
	return e.recent(l, &l.mints[c.Mint])
}

// eligible reports whether a mint can back an offer made at now. The mint must still be inside
// the eligibility window when the commitment becomes ready, and recent.
func (e *Engine) eligible(l *ledger, m *mint, now time.Time) bool {
	if m.MintedAt.Add(e.config.EligibilityWindow).Before(now.Add(e.config.Delay)) {
		return false
	}
	return e.recent(l, m)
}

// recent reports whether m is no older than the recency window before the latest mint.
func (e *Engine) recent(l *ledger, m *mint) bool {
	return !m.MintedAt.Add(e.config.RecencyWindow).Before(l.lastMint)
}

// recycle gives the tokens of lapsed commitments back to their mint.
func (e *Engine) recycle(l *ledger, now time.Time) {
	if e.config.Period <= 0 {
		return
	}
	for i := l.commitmentCursor; i < len(l.commitments); i++ {
		c := &l.commitments[i]
		if c.Amount.IsZero() || c.EndsAt.IsZero() || now.Before(c.EndsAt) {
			continue
		}
		m := &l.mints[c.Mint]
		m.Remaining = library.MustAdd(m.Remaining, c.Amount)
		c.Amount = library.Zero()
	}
	l.advanceCommitmentCursor()
}

// mints never become eligible again once they fall out of the window, the clock only moves forward
func (e *Engine) advanceMintCursor(l *ledger, now time.Time) {
	for l.mintCursor < len(l.mints) && l.mints[l.mintCursor].MintedAt.Add(e.config.EligibilityWindow).Before(now.Add(e.config.Delay)) {
		l.mintCursor++
	}
}

func (l *ledger) advanceCommitmentCursor() {
	for l.commitmentCursor < len(l.commitments) && l.commitments[l.commitmentCursor].Amount.IsZero() {
		l.commitmentCursor++
	}
}

func (e *Engine) GetMap() Mapped {
	m := make(Mapped)
	for account, l := range e.accounts {
		p := Position{
			LastMint:    l.lastMint,
			Redeemable:  e.RedeemableBalance(account),
			Uncommitted: l.uncommitted,
		}
		for _, c := range l.commitments[l.commitmentCursor:] {
			if c.Amount.IsZero() {
				continue
			}
			p.Commitments = append(p.Commitments, Commitment{
				MintedAt: l.mints[c.Mint].MintedAt,
				Amount:   c.Amount,
				ReadyAt:  c.ReadyAt,
				EndsAt:   c.EndsAt,
			})
		}
		m[account] = p
	}
	return m
}
