package market

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"memberdao/engine/library"
	"memberdao/state/access"
	"memberdao/state/membership"
	"memberdao/state/redemption"
	"memberdao/state/tokens"
	"memberdao/state/voting"
)

type statuses map[library.Account]membership.Status

func (s statuses) StatusOf(account library.Account) membership.Status { return s[account] }

func (s statuses) IsAtLeast(status membership.Status, account library.Account) bool {
	return s[account] >= status
}

type assets map[library.Account]uint64

func (a assets) TransferFrom(from, to library.Account, amount *uint256.Int) error {
	if a[from] < amount.Uint64() {
		return library.Insufficient("settlement amount exceeds balance")
	}
	a[from] -= amount.Uint64()
	a[to] += amount.Uint64()
	return nil
}

func (a assets) Transfer(caller, to library.Account, amount *uint256.Int) error {
	return a.TransferFrom(caller, to, amount)
}

type oracle struct {
	rate *uint256.Int
}

func (o oracle) GetReferenceData(base, quote string) (*uint256.Int, time.Time, time.Time, error) {
	if o.rate == nil {
		return nil, time.Time{}, time.Time{}, errors.New("REF_DATA_NOT_AVAILABLE")
	}
	return o.rate, time.Time{}, time.Time{}, nil
}

const (
	alice   = "alice"
	bob     = "bob"
	escrow  = "escrow"
	reserve = "reserve"
	self    = "market"
	admin   = "admin"
)

var genesis = time.Unix(1672531200, 0)

type fixture struct {
	book    *Book
	tokens  *tokens.Ledger
	assets  assets
	clock   *library.ManualClock
	journal  *library.Journal
	table    *access.Table
	statuses statuses
}

func setup(t *testing.T) *fixture {
	clock := library.NewManualClock(genesis)
	table := access.NewTable()
	table.Grant(access.Resolution, admin)
	table.Grant(access.Escrow, escrow)
	table.Grant(access.Operator, admin)
	table.Grant(access.Manager, admin)
	s := statuses{alice: membership.Contributor, bob: membership.Investor}
	j := library.NewJournal()
	v := voting.New(s, library.Discard)
	tl := tokens.New(s, table, v, library.Discard)
	r := redemption.New(redemption.DefaultConfig(), clock)
	tl.SetRedemptionController(r)
	book := New(Config{Account: self, Base: "EEUR", Quote: "EUR", Reserve: reserve}, s, table, clock, j)
	book.SetTokenLedger(tl)
	book.SetRedemptionController(r)
	a := assets{bob: 1000, reserve: 1000}
	book.SetSettlement(a)
	book.SetOracle(oracle{rate: uint256.NewInt(1_100_000_000_000_000_000)})
	tl.SetInternalMarket(self, book)
	require.NoError(t, tl.Mint(admin, alice, amt(100)))
	return &fixture{book: book, tokens: tl, assets: a, clock: clock, journal: j, table: table, statuses: s}
}

func amt(n uint64) *uint256.Int { return library.Amount(n) }

func names(receipts []library.Receipt) []string {
	var out []string
	for _, r := range receipts {
		out = append(out, r.ReceiptName())
	}
	return out
}

func TestMakeOfferLocksTokens(t *testing.T) {
	f := setup(t)
	id, err := f.book.MakeOffer(alice, amt(40))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
	assert.Equal(t, uint64(40), f.book.OfferedBalanceOf(alice).Uint64())
	assert.Equal(t, uint64(60), f.tokens.UnlockedBalanceOf(alice).Uint64())

	_, err = f.book.MakeOffer(alice, amt(61))
	require.Error(t, err)
	assert.Equal(t, "amount exceeds unlocked balance", err.Error())
	assert.True(t, errors.Is(err, library.ErrInsufficientBalance))

	_, err = f.book.MakeOffer(bob, amt(1))
	require.Error(t, err)
	assert.Equal(t, "not a contributor", err.Error())

	_, err = f.book.MakeOffer(alice, amt(0))
	require.Error(t, err)

	id, err = f.book.MakeOffer(alice, amt(60))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Zero(t, f.tokens.UnlockedBalanceOf(alice).Uint64())
}

func TestMatchConsumesOffersInOrder(t *testing.T) {
	f := setup(t)
	for i, n := range []uint64{11, 25, 35} {
		if i > 0 {
			f.clock.Advance(library.Days(2))
		}
		_, err := f.book.MakeOffer(alice, amt(n))
		require.NoError(t, err)
	}
	f.clock.Advance(library.Days(1))
	f.journal.Drain()

	err := f.book.MatchOffer(bob, alice, bob, amt(72))
	require.Error(t, err)
	assert.Equal(t, "amount exceeds offer", err.Error())

	require.NoError(t, f.book.MatchOffer(bob, alice, bob, amt(37)))
	offers := f.book.Offers(alice)
	require.Len(t, offers, 1)
	assert.Equal(t, uint64(2), offers[0].ID)
	assert.Equal(t, uint64(34), offers[0].Amount.Uint64())
	assert.Equal(t, uint64(35), offers[0].Offered.Uint64())
	assert.Equal(t, uint64(34), f.book.OfferedBalanceOf(alice).Uint64())

	assert.Equal(t, uint64(63), f.tokens.BalanceOf(alice).Uint64())
	assert.Equal(t, uint64(37), f.tokens.BalanceOf(bob).Uint64())
	assert.Equal(t, uint64(37), f.assets[alice])
	assert.Equal(t, uint64(963), f.assets[bob])

	receipts := f.journal.Drain()
	assert.Equal(t, []string{"OfferMatched", "OfferMatched", "OfferMatched"}, names(receipts))
	last := receipts[2].(OfferMatched)
	assert.Equal(t, uint64(2), last.ID)
	assert.Equal(t, uint64(1), last.Amount.Uint64())
}

func TestMatchIgnoresExpiredOffers(t *testing.T) {
	f := setup(t)
	_, err := f.book.MakeOffer(alice, amt(30))
	require.NoError(t, err)
	f.clock.Advance(library.Days(3))
	_, err = f.book.MakeOffer(alice, amt(20))
	require.NoError(t, err)
	f.clock.Advance(library.Days(5))

	assert.Equal(t, uint64(20), f.book.OfferedBalanceOf(alice).Uint64())
	assert.Equal(t, uint64(30), f.book.WithdrawableBalanceOf(alice).Uint64())

	err = f.book.MatchOffer(bob, alice, bob, amt(21))
	require.Error(t, err)
	assert.Equal(t, "amount exceeds offer", err.Error())

	f.journal.Drain()
	require.NoError(t, f.book.MatchOffer(bob, alice, bob, amt(20)))
	assert.Equal(t, []string{"OfferExpired", "OfferMatched"}, names(f.journal.Drain()))
	assert.Zero(t, f.book.OfferedBalanceOf(alice).Uint64())
	assert.Equal(t, uint64(30), f.book.WithdrawableBalanceOf(alice).Uint64())
}

func TestMatchAuthorization(t *testing.T) {
	f := setup(t)
	_, err := f.book.MakeOffer(alice, amt(30))
	require.NoError(t, err)

	err = f.book.MatchOffer(alice, alice, bob, amt(5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, library.ErrUnauthorized))

	require.NoError(t, f.book.MatchOffer(escrow, alice, bob, amt(5)))
	assert.Equal(t, uint64(5), f.tokens.BalanceOf(bob).Uint64())
}

func TestMatchFailsWhenBuyerCannotPay(t *testing.T) {
	f := setup(t)
	_, err := f.book.MakeOffer(alice, amt(30))
	require.NoError(t, err)
	f.assets[bob] = 3
	err = f.book.MatchOffer(bob, alice, bob, amt(5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, library.ErrInsufficientBalance))
	assert.Equal(t, uint64(30), f.book.OfferedBalanceOf(alice).Uint64())
	assert.Zero(t, f.tokens.BalanceOf(bob).Uint64())
}

func TestWithdrawExpiredOffer(t *testing.T) {
	f := setup(t)
	_, err := f.book.MakeOffer(alice, amt(30))
	require.NoError(t, err)

	err = f.book.Withdraw(alice, alice, amt(1))
	require.Error(t, err)
	assert.Equal(t, "amount exceeds balance", err.Error())

	f.clock.Advance(library.Days(7))
	f.journal.Drain()
	require.NoError(t, f.book.Withdraw(alice, bob, amt(10)))
	assert.Equal(t, []string{"OfferExpired", "Withdrawn"}, names(f.journal.Drain()))
	assert.Equal(t, uint64(10), f.tokens.BalanceOf(bob).Uint64())
	assert.Equal(t, uint64(20), f.book.WithdrawableBalanceOf(alice).Uint64())

	require.NoError(t, f.book.Withdraw(alice, alice, amt(20)))
	assert.Zero(t, f.book.WithdrawableBalanceOf(alice).Uint64())
	assert.Equal(t, uint64(90), f.tokens.UnlockedBalanceOf(alice).Uint64())
	assert.Empty(t, f.book.Offers(alice))
}

func TestTransferShrinksRemnants(t *testing.T) {
	f := setup(t)
	_, err := f.book.MakeOffer(alice, amt(30))
	require.NoError(t, err)
	f.clock.Advance(library.Days(7))
	f.statuses[alice] = membership.Investor

	f.journal.Drain()
	require.NoError(t, f.tokens.Transfer(alice, bob, amt(80)))
	assert.Equal(t, []string{"OfferExpired", "RemnantReleased"}, names(f.journal.Drain()))
	assert.Equal(t, uint64(20), f.book.WithdrawableBalanceOf(alice).Uint64())

	require.NoError(t, f.tokens.Transfer(alice, bob, amt(20)))
	assert.Zero(t, f.book.WithdrawableBalanceOf(alice).Uint64())
	assert.Empty(t, f.book.Offers(alice))

	// tokens received later do not revive the released offers
	require.NoError(t, f.tokens.Mint(admin, alice, amt(50)))
	err = f.book.Withdraw(alice, alice, amt(1))
	require.Error(t, err)
	assert.Equal(t, "amount exceeds balance", err.Error())
}

func TestBurnShrinksRemnants(t *testing.T) {
	f := setup(t)
	_, err := f.book.MakeOffer(alice, amt(30))
	require.NoError(t, err)
	f.clock.Advance(library.Days(7))
	f.statuses[alice] = membership.Investor

	require.NoError(t, f.tokens.Burn(admin, alice, amt(90)))
	assert.Equal(t, uint64(10), f.book.WithdrawableBalanceOf(alice).Uint64())
	require.NoError(t, f.book.Withdraw(alice, alice, amt(10)))
	assert.Zero(t, f.book.WithdrawableBalanceOf(alice).Uint64())
}

func TestReofferUsesRemnantsFirst(t *testing.T) {
	f := setup(t)
	_, err := f.book.MakeOffer(alice, amt(30))
	require.NoError(t, err)
	f.clock.Advance(library.Days(8))
	_, err = f.book.MakeOffer(alice, amt(40))
	require.NoError(t, err)
	assert.Zero(t, f.book.WithdrawableBalanceOf(alice).Uint64())
	assert.Equal(t, uint64(40), f.book.OfferedBalanceOf(alice).Uint64())
	assert.Equal(t, uint64(60), f.tokens.UnlockedBalanceOf(alice).Uint64())
}

func TestRedeem(t *testing.T) {
	f := setup(t)
	_, err := f.book.MakeOffer(alice, amt(50))
	require.NoError(t, err)

	f.clock.Advance(library.Days(8))
	err = f.book.Redeem(alice, amt(20))
	require.Error(t, err)
	assert.Equal(t, "amount exceeds redeemable balance", err.Error())

	f.clock.Advance(library.Days(53))
	f.journal.Drain()
	require.NoError(t, f.book.Redeem(alice, amt(20)))
	assert.Equal(t, uint64(22), f.assets[alice])
	assert.Equal(t, uint64(978), f.assets[reserve])
	assert.Equal(t, uint64(20), f.tokens.BalanceOf(reserve).Uint64())
	assert.Equal(t, uint64(80), f.tokens.BalanceOf(alice).Uint64())
	assert.Equal(t, uint64(30), f.book.WithdrawableBalanceOf(alice).Uint64())

	receipts := f.journal.Drain()
	require.Equal(t, []string{"OfferExpired", "Redeemed"}, names(receipts))
	assert.Equal(t, uint64(22), receipts[1].(Redeemed).Paid.Uint64())

	err = f.book.Redeem(alice, amt(31))
	require.Error(t, err)
	assert.Equal(t, "amount exceeds balance", err.Error())
}

func TestRedeemFailsWhenReserveCannotPay(t *testing.T) {
	f := setup(t)
	_, err := f.book.MakeOffer(alice, amt(50))
	require.NoError(t, err)
	f.clock.Advance(library.Days(61))
	f.assets[reserve] = 10
	f.journal.Drain()

	err = f.book.Redeem(alice, amt(20))
	require.Error(t, err)
	assert.True(t, errors.Is(err, library.ErrInsufficientBalance))
	assert.Empty(t, f.journal.Drain())
	assert.Equal(t, uint64(10), f.assets[reserve])
	assert.Zero(t, f.tokens.BalanceOf(reserve).Uint64())
	assert.Equal(t, uint64(100), f.tokens.BalanceOf(alice).Uint64())
	assert.Equal(t, uint64(50), f.book.WithdrawableBalanceOf(alice).Uint64())

	f.assets[reserve] = 1000
	require.NoError(t, f.book.Redeem(alice, amt(20)))
	assert.Equal(t, uint64(30), f.book.WithdrawableBalanceOf(alice).Uint64())
}

func TestRedeemWithoutRate(t *testing.T) {
	f := setup(t)
	f.book.SetOracle(oracle{})
	_, err := f.book.MakeOffer(alice, amt(50))
	require.NoError(t, err)
	f.clock.Advance(library.Days(61))
	err = f.book.Redeem(alice, amt(10))
	require.Error(t, err)
	assert.Equal(t, "REF_DATA_NOT_AVAILABLE", err.Error())
	assert.Equal(t, uint64(50), f.book.WithdrawableBalanceOf(alice).Uint64())
}

func TestAdministration(t *testing.T) {
	f := setup(t)
	require.Error(t, f.book.SetOfferDuration(alice, time.Hour))
	require.Error(t, f.book.SetOfferDuration(admin, 0))
	require.NoError(t, f.book.SetOfferDuration(admin, time.Hour))
	assert.Equal(t, time.Hour, f.book.OfferDuration())

	_, err := f.book.MakeOffer(alice, amt(10))
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	assert.Zero(t, f.book.OfferedBalanceOf(alice).Uint64())

	require.Error(t, f.book.SetReserve(alice, bob))
	require.NoError(t, f.book.SetReserve(admin, bob))
	assert.Equal(t, library.Account(bob), f.book.Reserve())
	require.NoError(t, f.book.SetExchangePair(admin, "EEUR", "EUR"))
}

func TestGetMap(t *testing.T) {
	f := setup(t)
	_, err := f.book.MakeOffer(alice, amt(10))
	require.NoError(t, err)
	m := f.book.GetMap()
	require.Contains(t, m, library.Account(alice))
	assert.Equal(t, uint64(10), m[alice].Offered.Uint64())
	assert.Len(t, m[alice].Offers, 1)
}
