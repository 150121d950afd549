package market

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"memberdao/engine/library"
	"memberdao/state/access"
	"memberdao/state/membership"
)

type Config struct {
	// Account the market acts as when it moves tokens on behalf of members.
	Account       library.Account
	OfferDuration time.Duration
	Base          string
	Quote         string
	Reserve       library.Account
}

// Book is the internal market. Contributors lock tokens in time boxed offers, buyers match them
// oldest first, and whatever is left when an offer expires can be withdrawn or redeemed.
type Book struct {
	config     Config
	registry   membership.Reader
	policy     access.Policy
	clock      library.Clock
	recorder   library.Recorder
	tokens     TokenLedger
	redemption Redemption
	assets     AssetTransfer
	oracle     PriceOracle
	queues     map[library.Account]*queue
	nextID     uint64
}

func New(config Config, registry membership.Reader, policy access.Policy, clock library.Clock, recorder library.Recorder) *Book {
	if recorder == nil {
		recorder = library.Discard
	}
	if config.OfferDuration <= 0 {
		config.OfferDuration = library.Days(7)
	}
	return &Book{
		config:   config,
		registry: registry,
		policy:   policy,
		clock:    clock,
		recorder: recorder,
		queues:   make(map[library.Account]*queue),
	}
}

func (b *Book) Account() library.Account {
	return b.config.Account
}

func (b *Book) SetTokenLedger(tokens TokenLedger) {
	b.tokens = tokens
}

func (b *Book) SetRedemptionController(r Redemption) {
	b.redemption = r
}

func (b *Book) SetSettlement(assets AssetTransfer) {
	b.assets = assets
}

func (b *Book) SetOracle(oracle PriceOracle) {
	b.oracle = oracle
}

func (b *Book) SetOfferDuration(caller library.Account, d time.Duration) error {
	if err := access.Require(b.policy, access.Operator, caller); err != nil {
		return err
	}
	if d <= 0 {
		return library.InvalidState("offer duration must be positive")
	}
	b.config.OfferDuration = d
	return nil
}

func (b *Book) SetExchangePair(caller library.Account, base, quote string) error {
	if err := access.Require(b.policy, access.Manager, caller); err != nil {
		return err
	}
	if len(base) == 0 || len(quote) == 0 {
		return library.InvalidState("exchange pair cannot be empty")
	}
	b.config.Base = base
	b.config.Quote = quote
	return nil
}

func (b *Book) SetReserve(caller, reserve library.Account) error {
	if err := access.Require(b.policy, access.Manager, caller); err != nil {
		return err
	}
	if len(reserve) == 0 {
		return library.InvalidState("reserve cannot be empty")
	}
	b.config.Reserve = reserve
	return nil
}

func (b *Book) queue(account library.Account) *queue {
	q, ok := b.queues[account]
	if !ok {
		q = &queue{}
		b.queues[account] = q
	}
	return q
}

// observe records expiries for account and emits one OfferExpired per newly expired offer.
func (b *Book) observe(account library.Account, now time.Time) {
	q, ok := b.queues[account]
	if !ok {
		return
	}
	for _, o := range q.observe(now) {
		b.recorder.Record(OfferExpired{ID: o.ID, Account: account, Amount: o.Amount})
	}
}

func (b *Book) MakeOffer(caller library.Account, amount *uint256.Int) (uint64, error) {
	if !b.registry.IsAtLeast(membership.Contributor, caller) {
		return 0, library.Unauthorized("not a contributor")
	}
	if amount == nil || amount.IsZero() {
		return 0, library.InvalidState("amount must be greater than zero")
	}
	if amount.Gt(b.tokens.UnlockedBalanceOf(caller)) {
		return 0, library.Insufficient("amount exceeds unlocked balance")
	}
	now := b.clock.Now()
	b.observe(caller, now)
	q := b.queue(caller)
	// tokens sitting in expired offers go back on the market first and keep their redemption
	// commitment, only the rest is new to the redemption pipeline
	fresh := library.MustSub(amount, q.consumeRemnants(amount))
	o := &Offer{
		ID:        b.nextID,
		Account:   caller,
		Offered:   amount,
		Amount:    amount,
		CreatedAt: now,
		ExpiresAt: now.Add(b.config.OfferDuration),
	}
	b.nextID++
	q.push(o)
	b.recorder.Record(OfferCreated{ID: o.ID, Account: caller, Amount: amount, ExpiresAt: o.ExpiresAt})
	if b.redemption != nil && !fresh.IsZero() {
		b.redemption.AfterOffer(caller, fresh)
	}
	return o.ID, nil
}

// MatchOffer sells amount of from's offered tokens to to. The buyer pays one settlement unit per
// token before anything else changes, so a failed payment leaves the book untouched.
func (b *Book) MatchOffer(caller, from, to library.Account, amount *uint256.Int) error {
	if caller != to && !b.policy.Authorize(access.Escrow, caller) {
		return library.Unauthorized("only the buyer or an escrow can match offers")
	}
	if amount == nil || amount.IsZero() {
		return library.InvalidState("amount must be greater than zero")
	}
	if len(to) == 0 || from == to {
		return library.InvalidState("invalid counterparty")
	}
	now := b.clock.Now()
	q, ok := b.queues[from]
	if !ok || amount.Gt(q.activeTotal(now)) {
		return library.Insufficient("amount exceeds offer")
	}
	if b.assets == nil {
		return library.InvalidState("settlement asset not set")
	}
	if err := b.assets.TransferFrom(to, from, amount); err != nil {
		return fmt.Errorf("settlement failed: %w", err)
	}
	// nothing below can fail once the buyer has paid: the matched tokens sit in active offers,
	// which are part of the balance and never of the vesting lock, and to was checked above
	b.observe(from, now)
	touched, taken := q.consumeActive(now, amount)
	for i, o := range touched {
		b.recorder.Record(OfferMatched{ID: o.ID, From: from, To: to, Amount: taken[i]})
	}
	if err := b.tokens.TransferFrom(b.config.Account, from, to, amount); err != nil {
		return library.Invariant("matched offer could not be delivered: %s", err.Error())
	}
	if b.redemption != nil {
		b.redemption.AfterRelease(from, amount)
	}
	return nil
}

// Withdraw moves tokens out of caller's expired offers to another account, or just releases them
// when to is the caller.
func (b *Book) Withdraw(caller, to library.Account, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return library.InvalidState("amount must be greater than zero")
	}
	if len(to) == 0 {
		return library.InvalidState("cannot withdraw to the empty account")
	}
	now := b.clock.Now()
	if err := b.checkRemnants(caller, amount, now); err != nil {
		return err
	}
	b.observe(caller, now)
	b.queue(caller).consumeRemnants(amount)
	if to != caller {
		if err := b.tokens.TransferFrom(b.config.Account, caller, to, amount); err != nil {
			return library.Invariant("withdrawal could not be delivered: %s", err.Error())
		}
	}
	if b.redemption != nil {
		b.redemption.AfterRelease(caller, amount)
	}
	b.recorder.Record(Withdrawn{Account: caller, To: to, Amount: amount})
	return nil
}

// Redeem sells tokens from caller's expired offers back to the reserve at the oracle rate.
func (b *Book) Redeem(caller library.Account, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return library.InvalidState("amount must be greater than zero")
	}
	if len(b.config.Reserve) == 0 {
		return library.InvalidState("reserve not set")
	}
	if b.redemption == nil || b.oracle == nil || b.assets == nil {
		return library.InvalidState("redemption is not configured")
	}
	now := b.clock.Now()
	if err := b.checkRemnants(caller, amount, now); err != nil {
		return err
	}
	if amount.Gt(b.redemption.RedeemableBalance(caller)) {
		return library.Insufficient("amount exceeds redeemable balance")
	}
	rate, _, _, err := b.oracle.GetReferenceData(b.config.Base, b.config.Quote)
	if err != nil {
		return err
	}
	paid, err := library.MulDiv(amount, rate, RateScale)
	if err != nil {
		return err
	}
	if err := b.assets.TransferFrom(b.config.Reserve, caller, paid); err != nil {
		return fmt.Errorf("settlement failed: %w", err)
	}
	// nothing below can fail once the reserve has paid: checkRemnants proved amount is unlocked
	// and redeemable
	b.observe(caller, now)
	b.queue(caller).consumeRemnants(amount)
	if err := b.tokens.TransferFrom(b.config.Account, caller, b.config.Reserve, amount); err != nil {
		return library.Invariant("redeemed tokens could not be delivered: %s", err.Error())
	}
	if err := b.redemption.AfterRedeem(caller, amount); err != nil {
		return err
	}
	b.recorder.Record(Redeemed{Account: caller, Amount: amount, Paid: paid})
	return nil
}

func (b *Book) checkRemnants(caller library.Account, amount *uint256.Int, now time.Time) error {
	q, ok := b.queues[caller]
	if !ok || amount.Gt(q.remnantTotal(now)) {
		return library.Insufficient("amount exceeds balance")
	}
	if amount.Gt(b.tokens.UnlockedBalanceOf(caller)) {
		return library.Insufficient("amount exceeds unlocked balance")
	}
	return nil
}

// AfterDebit shrinks the expired offers of account to what its unlocked balance still covers,
// after tokens left the account through a transfer or a burn.
func (b *Book) AfterDebit(account library.Account) {
	q, ok := b.queues[account]
	if !ok {
		return
	}
	now := b.clock.Now()
	b.observe(account, now)
	unlocked := b.tokens.UnlockedBalanceOf(account)
	remnants := q.remnantTotal(now)
	if !remnants.Gt(unlocked) {
		return
	}
	released := q.consumeRemnants(library.MustSub(remnants, unlocked))
	if b.redemption != nil {
		b.redemption.AfterRelease(account, released)
	}
	b.recorder.Record(RemnantReleased{Account: account, Amount: released})
}

// OfferedBalanceOf is the amount in offers that have not expired yet.
func (b *Book) OfferedBalanceOf(account library.Account) *uint256.Int {
	q, ok := b.queues[account]
	if !ok {
		return library.Zero()
	}
	return q.activeTotal(b.clock.Now())
}

// WithdrawableBalanceOf is the amount left in expired offers.
func (b *Book) WithdrawableBalanceOf(account library.Account) *uint256.Int {
	q, ok := b.queues[account]
	if !ok {
		return library.Zero()
	}
	return q.remnantTotal(b.clock.Now())
}

// Offers returns copies of the offers of account that still hold tokens.
func (b *Book) Offers(account library.Account) []Offer {
	q, ok := b.queues[account]
	if !ok {
		return nil
	}
	var out []Offer
	for _, o := range q.remnants {
		out = append(out, *o)
	}
	for _, o := range q.live() {
		if !o.expired && !o.Amount.IsZero() {
			out = append(out, *o)
		}
	}
	return out
}

func (b *Book) OfferDuration() time.Duration {
	return b.config.OfferDuration
}

func (b *Book) Reserve() library.Account {
	return b.config.Reserve
}

func (b *Book) GetMap() Mapped {
	m := make(Mapped)
	for account := range b.queues {
		offers := b.Offers(account)
		if len(offers) == 0 {
			continue
		}
		m[account] = Position{
			Offered:      b.OfferedBalanceOf(account),
			Withdrawable: b.WithdrawableBalanceOf(account),
			Offers:       offers,
		}
	}
	return m
}
