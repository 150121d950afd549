package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/exp/slices"
	"memberdao/engine/actors"
	"memberdao/engine/library"
	"memberdao/state/access"
	"memberdao/state/membership"
	"memberdao/state/redemption"
	"memberdao/state/resolutions"
)

// Config is everything needed to build a ledger at genesis.
type Config struct {
	Clock           time.Time
	Market          library.Account
	Reserve         library.Account
	OfferDuration   time.Duration
	Base            string
	Quote           string
	Redemption      redemption.Config
	ResolutionTypes []resolutions.Type
	Statuses        map[library.Account]membership.Status
	Roles           map[access.Role][]library.Account
	// first value of every account's replay chain
	Replay string
}

// DefaultMarket is the account the internal market moves tokens as when none is configured.
var DefaultMarket = library.Sha256Sum("memberdao internal market")

func DefaultConfig() Config {
	return Config{
		Market:          DefaultMarket,
		OfferDuration:   library.Days(7),
		Base:            "EEUR",
		Quote:           "EUR",
		Redemption:      redemption.DefaultConfig(),
		ResolutionTypes: resolutions.DefaultTypes(),
		Statuses:        make(map[library.Account]membership.Status),
		Roles:           make(map[access.Role][]library.Account),
		Replay:          actors.ReplayPrevention,
	}
}

// ConfigFromViper reads the genesis configuration registered by actors.SetDefaults.
func ConfigFromViper(v *viper.Viper) (Config, error) {
	c := DefaultConfig()
	c.Clock = time.Unix(v.GetInt64("genesis.clock"), 0)
	if market := v.GetString("genesis.market"); len(market) > 0 {
		c.Market = market
	}
	c.Reserve = v.GetString("genesis.reserve")
	c.OfferDuration = v.GetDuration("offerDuration")
	c.Base = v.GetString("exchangeBase")
	c.Quote = v.GetString("exchangeQuote")
	c.Redemption = redemption.Config{
		Delay:             v.GetDuration("redemptionDelay"),
		EligibilityWindow: v.GetDuration("eligibilityWindow"),
		RecencyWindow:     v.GetDuration("recencyWindow"),
		Period:            v.GetDuration("redemptionPeriod"),
	}
	var types []resolutions.Type
	if err := v.UnmarshalKey("resolutionTypes", &types); err != nil {
		return c, fmt.Errorf("invalid resolutionTypes: %w", err)
	}
	if len(types) > 0 {
		c.ResolutionTypes = types
	}
	for account, s := range v.GetStringMapString("genesis.statuses") {
		status, err := membership.ParseStatus(s)
		if err != nil {
			return c, err
		}
		c.Statuses[strings.ToLower(account)] = status
	}
	for r, accounts := range v.GetStringMapStringSlice("genesis.roles") {
		role, err := access.ParseRole(r)
		if err != nil {
			return c, err
		}
		c.Roles[role] = append(c.Roles[role], accounts...)
	}
	return c, c.validate()
}

func (c Config) validate() error {
	if len(c.Market) == 0 {
		return fmt.Errorf("market account cannot be empty")
	}
	if c.OfferDuration <= 0 {
		return fmt.Errorf("offerDuration must be positive")
	}
	if c.Redemption.Delay < 0 || c.Redemption.EligibilityWindow <= 0 || c.Redemption.RecencyWindow <= 0 || c.Redemption.Period < 0 {
		return fmt.Errorf("invalid redemption windows %+v", c.Redemption)
	}
	for _, t := range c.ResolutionTypes {
		if len(t.Name) == 0 || t.Voting <= 0 || t.Quorum > 100 {
			return fmt.Errorf("invalid resolution type %+v", t)
		}
	}
	return nil
}

// sortedAccounts returns the keys of m in a stable order so genesis receipts are deterministic.
func sortedAccounts[V any](m map[library.Account]V) []library.Account {
	var accounts []library.Account
	for account := range m {
		accounts = append(accounts, account)
	}
	slices.Sort(accounts)
	return accounts
}
