package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"memberdao/engine/library"
	"memberdao/state/access"
	"memberdao/state/market"
	"memberdao/state/membership"
)

const (
	board    = "board"
	alice    = "alice"
	bob      = "bob"
	carol    = "carol"
	treasury = "treasury"
	reserve  = "reserve"
)

var genesis = time.Unix(1672531200, 0)

func amt(n uint64) *uint256.Int { return library.Amount(n) }

func testConfig() Config {
	c := DefaultConfig()
	c.Clock = genesis
	c.Reserve = reserve
	c.Statuses = map[library.Account]membership.Status{
		board: membership.ManagingBoard,
		alice: membership.Contributor,
		bob:   membership.Contributor,
		carol: membership.Investor,
	}
	c.Roles = map[access.Role][]library.Account{
		access.Resolution:   {treasury},
		access.TokenManager: {treasury},
		access.Operator:     {treasury},
		access.Manager:      {treasury},
		access.Relayer:      {treasury},
	}
	return c
}

func newLedger(t *testing.T) *Ledger {
	l, err := New(testConfig())
	require.NoError(t, err)
	return l
}

func advance(t *testing.T, l *Ledger, d time.Duration) {
	require.NoError(t, l.SetTime(l.Now().Add(d)))
}

func TestResolutionWithFortyTwoTokens(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.Mint(treasury, alice, amt(42)))
	require.NoError(t, l.Delegate(alice, alice))
	id, err := l.CreateResolution(alice, "adopt the budget", "fundamentalOther", false)
	require.NoError(t, err)
	require.NoError(t, l.ApproveResolution(board, id))
	advance(t, l, library.Days(14))
	require.NoError(t, l.Vote(alice, id, true))
	advance(t, l, library.Days(7))
	passed, err := l.GetResolutionResult(id)
	require.NoError(t, err)
	assert.True(t, passed)
	require.NoError(t, l.CheckInvariants())
}

func TestMajorityOfCastWeight(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.Mint(treasury, alice, amt(66)))
	require.NoError(t, l.Mint(treasury, bob, amt(34)))
	require.NoError(t, l.Delegate(alice, alice))
	require.NoError(t, l.Delegate(bob, bob))
	id, err := l.CreateResolution(bob, "amend the bylaws", "amendment", false)
	require.NoError(t, err)
	require.NoError(t, l.ApproveResolution(board, id))
	advance(t, l, library.Days(14))
	require.NoError(t, l.Vote(alice, id, true))
	advance(t, l, library.Days(7))
	passed, err := l.GetResolutionResult(id)
	require.NoError(t, err)
	assert.True(t, passed)
	require.NoError(t, l.CheckInvariants())
}

func TestOfferFIFO(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.Mint(treasury, alice, amt(100)))
	require.NoError(t, l.Deposit(treasury, carol, amt(100)))
	for i, n := range []uint64{11, 25, 35} {
		if i > 0 {
			advance(t, l, library.Days(2))
		}
		_, err := l.MakeOffer(alice, amt(n))
		require.NoError(t, err)
	}
	advance(t, l, library.Days(1))
	l.Receipts()

	require.NoError(t, l.MatchOffer(carol, alice, carol, amt(37)))
	offers := l.Offers(alice)
	require.Len(t, offers, 1)
	assert.Equal(t, uint64(34), offers[0].Amount.Uint64())
	assert.Equal(t, uint64(34), l.Position(alice).Offered.Uint64())
	assert.Equal(t, uint64(37), l.Position(carol).Balance.Uint64())
	assert.Equal(t, uint64(37), l.Position(alice).Settlement.Uint64())

	var matched []uint64
	for _, r := range l.Receipts() {
		if m, ok := r.(market.OfferMatched); ok {
			matched = append(matched, m.Amount.Uint64())
		}
	}
	assert.Equal(t, []uint64{11, 25, 1}, matched)
	require.NoError(t, l.CheckInvariants())
}

func TestRedemptionTimeline(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.Mint(treasury, alice, amt(500)))
	require.NoError(t, l.Deposit(treasury, reserve, amt(1000)))
	require.NoError(t, l.Deposit(treasury, carol, amt(1000)))
	require.NoError(t, l.Relay(treasury, market.RateScale, genesis))
	_, err := l.MakeOffer(alice, amt(500))
	require.NoError(t, err)

	// 200 leave the pipeline by being sold
	advance(t, l, library.Days(2))
	require.NoError(t, l.MatchOffer(carol, alice, carol, amt(200)))

	// the remaining 300 expired on day 7, they are offered again together with 200 new tokens
	advance(t, l, library.Days(38))
	require.NoError(t, l.Mint(treasury, alice, amt(200)))
	_, err = l.MakeOffer(alice, amt(500))
	require.NoError(t, err)
	assert.Zero(t, l.Position(alice).Redeemable.Uint64())

	advance(t, l, library.Days(20))
	assert.Equal(t, uint64(300), l.Position(alice).Redeemable.Uint64())
	require.NoError(t, l.Redeem(alice, amt(300)))
	assert.Zero(t, l.Position(alice).Redeemable.Uint64())
	assert.Equal(t, uint64(500), l.Position(alice).Settlement.Uint64())
	assert.Equal(t, uint64(300), l.Position(reserve).Balance.Uint64())

	advance(t, l, library.Days(40))
	assert.Equal(t, uint64(200), l.Position(alice).Redeemable.Uint64())
	require.NoError(t, l.CheckInvariants())
}

func TestEligibilityCutOff(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.Mint(treasury, alice, amt(10)))
	assert.Zero(t, l.Position(alice).Redeemable.Uint64())
	_, err := l.MakeOffer(alice, amt(10))
	require.NoError(t, err)
	advance(t, l, library.Days(60)-time.Second)
	assert.Zero(t, l.Position(alice).Redeemable.Uint64())
	advance(t, l, time.Second)
	assert.Equal(t, uint64(10), l.Position(alice).Redeemable.Uint64())

	old := newLedger(t)
	require.NoError(t, old.Mint(treasury, alice, amt(10)))
	advance(t, old, library.Days(451))
	_, err = old.MakeOffer(alice, amt(10))
	require.NoError(t, err)
	advance(t, old, library.Days(60))
	assert.Zero(t, old.Position(alice).Redeemable.Uint64())
}

func TestContributorRemoval(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.Mint(treasury, alice, amt(30)))
	require.NoError(t, l.Mint(treasury, bob, amt(10)))
	require.NoError(t, l.Delegate(alice, alice))
	require.NoError(t, l.Delegate(bob, bob))
	assert.Equal(t, uint64(40), l.GetTotalVotingPower().Uint64())

	err := l.Transfer(alice, carol, amt(1))
	require.Error(t, err)
	assert.Equal(t, "contributor cannot transfer", err.Error())

	require.Error(t, l.SetStatus(alice, bob, membership.Investor))
	require.NoError(t, l.SetStatus(treasury, bob, membership.Investor))
	assert.Equal(t, uint64(30), l.GetTotalVotingPower().Uint64())
	assert.Zero(t, l.Position(bob).VotingPower.Uint64())

	require.NoError(t, l.Transfer(bob, carol, amt(4)))
	assert.Equal(t, uint64(4), l.Position(carol).Balance.Uint64())
	require.NoError(t, l.CheckInvariants())
}

func TestVesting(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.MintVesting(treasury, alice, amt(50)))
	require.NoError(t, l.Mint(treasury, alice, amt(10)))
	assert.Equal(t, uint64(10), l.Position(alice).Unlocked.Uint64())

	_, err := l.MakeOffer(alice, amt(11))
	require.Error(t, err)
	assert.True(t, errors.Is(err, library.ErrInsufficientBalance))

	err = l.SetVesting(treasury, alice, amt(51))
	require.Error(t, err)
	assert.Equal(t, "vesting can only be decreased", err.Error())
	require.NoError(t, l.SetVesting(treasury, alice, amt(20)))
	assert.Equal(t, uint64(40), l.Position(alice).Unlocked.Uint64())
	require.NoError(t, l.CheckInvariants())
}

func TestStateHash(t *testing.T) {
	a := newLedger(t)
	b := newLedger(t)
	for _, l := range []*Ledger{a, b} {
		require.NoError(t, l.Mint(treasury, alice, amt(5)))
		require.NoError(t, l.Delegate(alice, alice))
	}
	ha, err := a.StateHash()
	require.NoError(t, err)
	hb, err := b.StateHash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	require.NoError(t, b.Mint(treasury, bob, amt(1)))
	hb, err = b.StateHash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestConfigValidation(t *testing.T) {
	c := testConfig()
	c.OfferDuration = 0
	_, err := New(c)
	require.Error(t, err)

	c = testConfig()
	c.Statuses["bad"] = membership.Status(9)
	_, err = New(c)
	require.Error(t, err)
}
