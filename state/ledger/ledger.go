package ledger

import (
	"encoding/json"
	"time"

	"github.com/holiman/uint256"
	"github.com/sasha-s/go-deadlock"
	"memberdao/engine/library"
	"memberdao/state/access"
	"memberdao/state/market"
	"memberdao/state/membership"
	"memberdao/state/oracle"
	"memberdao/state/redemption"
	"memberdao/state/replay"
	"memberdao/state/resolutions"
	"memberdao/state/settlement"
	"memberdao/state/tokens"
	"memberdao/state/voting"
)

// Ledger owns every component and serializes all access to them. A call either applies
// completely or returns an error and changes nothing.
type Ledger struct {
	mutex       *deadlock.Mutex
	clock       *library.ManualClock
	journal     *library.Journal
	access      *access.Table
	registry    *membership.Registry
	voting      *voting.Ledger
	tokens      *tokens.Ledger
	redemption  *redemption.Engine
	market      *market.Book
	resolutions *resolutions.Engine
	oracle      *oracle.Feed
	settlement  *settlement.Book
	replay      *replay.Tracker
}

func New(config Config) (*Ledger, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	l := &Ledger{
		mutex:   &deadlock.Mutex{},
		clock:   library.NewManualClock(config.Clock),
		journal: library.NewJournal(),
		access:  access.NewTable(),
		replay:  replay.NewTracker(config.Replay),
	}
	for role, accounts := range config.Roles {
		for _, account := range accounts {
			l.access.Grant(role, account)
		}
	}
	l.registry = membership.NewRegistry(l.access, l.journal)
	l.voting = voting.New(l.registry, l.journal)
	l.registry.SetRemovalHook(l.voting)

	l.tokens = tokens.New(l.registry, l.access, l.voting, l.journal)
	l.redemption = redemption.New(config.Redemption, l.clock)
	l.tokens.SetRedemptionController(l.redemption)

	l.market = market.New(market.Config{
		Account:       config.Market,
		OfferDuration: config.OfferDuration,
		Base:          config.Base,
		Quote:         config.Quote,
		Reserve:       config.Reserve,
	}, l.registry, l.access, l.clock, l.journal)
	l.market.SetTokenLedger(l.tokens)
	l.market.SetRedemptionController(l.redemption)
	l.tokens.SetInternalMarket(config.Market, l.market)

	l.oracle = oracle.New(l.access, l.journal)
	l.market.SetOracle(l.oracle)
	l.settlement = settlement.New(l.access, l.journal)
	l.market.SetSettlement(l.settlement)

	l.resolutions = resolutions.New(config.ResolutionTypes, l.registry, l.access, l.voting, l.clock, l.journal)

	for _, account := range sortedAccounts(config.Statuses) {
		if err := l.registry.Genesis(account, config.Statuses[account]); err != nil {
			return nil, err
		}
	}
	library.LogCLI("Ledger has started", 4)
	return l, nil
}

// Now is the ledger clock, the timestamp of the last handled event.
func (l *Ledger) Now() time.Time {
	return l.clock.Now()
}

// SetTime moves the ledger clock forward without handling an event.
func (l *Ledger) SetTime(t time.Time) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.clock.Set(t)
}

// Receipts returns the receipts recorded since the last call.
func (l *Ledger) Receipts() []library.Receipt {
	return l.journal.Drain()
}

func (l *Ledger) SetStatus(caller, account library.Account, status membership.Status) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.registry.SetStatus(caller, account, status)
}

func (l *Ledger) Delegate(caller, to library.Account) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.voting.Delegate(caller, to)
}

func (l *Ledger) Mint(caller, to library.Account, amount *uint256.Int) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.tokens.Mint(caller, to, amount)
}

func (l *Ledger) MintVesting(caller, to library.Account, amount *uint256.Int) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.tokens.MintVesting(caller, to, amount)
}

func (l *Ledger) Transfer(caller, to library.Account, amount *uint256.Int) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.tokens.Transfer(caller, to, amount)
}

func (l *Ledger) Burn(caller, account library.Account, amount *uint256.Int) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.tokens.Burn(caller, account, amount)
}

func (l *Ledger) SetVesting(caller, account library.Account, amount *uint256.Int) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.tokens.SetVesting(caller, account, amount)
}

func (l *Ledger) MakeOffer(caller library.Account, amount *uint256.Int) (uint64, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.market.MakeOffer(caller, amount)
}

func (l *Ledger) MatchOffer(caller, from, to library.Account, amount *uint256.Int) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.market.MatchOffer(caller, from, to, amount)
}

func (l *Ledger) Withdraw(caller, to library.Account, amount *uint256.Int) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.market.Withdraw(caller, to, amount)
}

func (l *Ledger) Redeem(caller library.Account, amount *uint256.Int) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.market.Redeem(caller, amount)
}

func (l *Ledger) SetOfferDuration(caller library.Account, d time.Duration) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.market.SetOfferDuration(caller, d)
}

func (l *Ledger) SetExchangePair(caller library.Account, base, quote string) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.market.SetExchangePair(caller, base, quote)
}

func (l *Ledger) SetReserve(caller, reserve library.Account) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.market.SetReserve(caller, reserve)
}

func (l *Ledger) Offers(account library.Account) []market.Offer {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.market.Offers(account)
}

func (l *Ledger) CreateResolution(caller library.Account, description, resolutionType string, isNegative bool) (uint64, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.resolutions.CreateResolution(caller, description, resolutionType, isNegative)
}

func (l *Ledger) UpdateResolution(caller library.Account, id uint64, description, resolutionType string, isNegative bool) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.resolutions.UpdateResolution(caller, id, description, resolutionType, isNegative)
}

func (l *Ledger) ApproveResolution(caller library.Account, id uint64) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.resolutions.ApproveResolution(caller, id)
}

func (l *Ledger) Vote(caller library.Account, id uint64, isYes bool) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.resolutions.Vote(caller, id, isYes)
}

func (l *Ledger) Relay(caller library.Account, rate *uint256.Int, timestamp time.Time) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.oracle.Relay(caller, rate, timestamp)
}

func (l *Ledger) Deposit(caller, to library.Account, amount *uint256.Int) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.settlement.Deposit(caller, to, amount)
}

func (l *Ledger) GetResolutionResult(id uint64) (bool, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.resolutions.GetResolutionResult(id)
}

func (l *Ledger) GetVoterVote(id uint64, account library.Account) (resolutions.VoteRecord, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.resolutions.GetVoterVote(id, account)
}

// Position is the full view of one account.
type Position struct {
	Status       membership.Status
	Balance      *uint256.Int
	Vesting      *uint256.Int
	Offered      *uint256.Int
	Unlocked     *uint256.Int
	Withdrawable *uint256.Int
	Redeemable   *uint256.Int
	VotingPower  *uint256.Int
	Delegate     library.Account
	Settlement   *uint256.Int
}

func (l *Ledger) Position(account library.Account) Position {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return Position{
		Status:       l.registry.StatusOf(account),
		Balance:      l.tokens.BalanceOf(account),
		Vesting:      l.tokens.VestingBalanceOf(account),
		Offered:      l.tokens.OfferedBalanceOf(account),
		Unlocked:     l.tokens.UnlockedBalanceOf(account),
		Withdrawable: l.market.WithdrawableBalanceOf(account),
		Redeemable:   l.redemption.RedeemableBalance(account),
		VotingPower:  l.voting.GetVotingPower(account),
		Delegate:     l.voting.GetDelegate(account),
		Settlement:   l.settlement.BalanceOf(account),
	}
}

func (l *Ledger) GetTotalVotingPower() *uint256.Int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.voting.GetTotalVotingPower()
}

func (l *Ledger) TotalSupply() *uint256.Int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.tokens.TotalSupply()
}

// Snapshot is the mapped state of every component, it is what the engine publishes and hashes.
type Snapshot struct {
	Clock       int64              `json:"clock"`
	Roles       access.Mapped      `json:"roles"`
	Statuses    membership.Mapped  `json:"statuses"`
	Voting      voting.Mapped      `json:"voting"`
	Tokens      tokens.Mapped      `json:"tokens"`
	Market      market.Mapped      `json:"market"`
	Redemption  redemption.Mapped  `json:"redemption"`
	Resolutions resolutions.Mapped `json:"resolutions"`
	Oracle      oracle.Mapped      `json:"oracle"`
	Settlement  settlement.Mapped  `json:"settlement"`
	Replay      replay.Mapped      `json:"replay"`
}

func (l *Ledger) GetMap() Snapshot {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.getMap()
}

func (l *Ledger) getMap() Snapshot {
	return Snapshot{
		Clock:       l.clock.Now().Unix(),
		Roles:       l.access.GetMap(),
		Statuses:    l.registry.GetMap(),
		Voting:      l.voting.GetMap(),
		Tokens:      l.tokens.GetMap(),
		Market:      l.market.GetMap(),
		Redemption:  l.redemption.GetMap(),
		Resolutions: l.resolutions.GetMap(),
		Oracle:      l.oracle.GetMap(),
		Settlement:  l.settlement.GetMap(),
		Replay:      l.replay.GetMap(),
	}
}

// StateHash is the sha256 of the JSON snapshot. Maps marshal with sorted keys so equal states
// hash equally.
func (l *Ledger) StateHash() (library.Sha256, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	b, err := json.Marshal(l.getMap())
	if err != nil {
		return "", err
	}
	return library.Sha256Sum(b), nil
}

// CheckInvariants verifies every component and the links between them.
func (l *Ledger) CheckInvariants() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if err := l.tokens.CheckInvariants(); err != nil {
		return err
	}
	if err := l.voting.CheckInvariants(); err != nil {
		return err
	}
	if err := l.settlement.CheckInvariants(); err != nil {
		return err
	}
	if l.voting.GetTotalVotingPower().Gt(l.tokens.TotalSupply()) {
		return library.Invariant("total voting power %s exceeds supply %s", l.voting.GetTotalVotingPower().Dec(), l.tokens.TotalSupply().Dec())
	}
	for account, d := range l.voting.GetMap() {
		if !d.Balance.Eq(l.tokens.BalanceOf(account)) {
			return library.Invariant("voting mirror of %s holds %s, token ledger %s", account, d.Balance.Dec(), l.tokens.BalanceOf(account).Dec())
		}
	}
	return nil
}
