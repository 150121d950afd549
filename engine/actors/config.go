package actors

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"memberdao/engine/library"
)

// ReplayPrevention is the value every account must put in its first "r" tag.
const ReplayPrevention string = "24c30ad7f036ed49379b5d1209836d1ff6795adb34da2d3e4cabc47dc9dfef21"

// CurrentStates is tagged on the state snapshot events produced by this engine.
const CurrentStates string = "0255594820a3ddc5b603d4e37ba6b2325879aebec401b86f9d69f5fd3864c203"

// InitConfig sets up our Viper config object
func InitConfig(config *viper.Viper) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		library.LogCLI(err.Error(), 0)
	}
	config.SetDefault("rootDir", filepath.Join(homeDir, "memberdao")+"/")
	config.SetConfigType("yaml")
	config.SetConfigFile(config.GetString("rootDir") + "config.yaml")
	err = config.ReadInConfig()
	if err != nil {
		library.LogCLI(err.Error(), 4)
	}
	SetDefaults(config)
	library.SetLogLevel(config.GetInt("logLevel"))
	// Create our working directory and config file if not exist
	initRootDir(config)
	touch(config.GetString("rootDir") + "config.yaml")
	err = config.WriteConfig()
	if err != nil {
		library.LogCLI(err.Error(), 1)
	}
}

// SetDefaults registers every setting the engine reads. Durations are Go duration strings.
func SetDefaults(config *viper.Viper) {
	config.SetDefault("flatFileDir", "data/")
	config.SetDefault("logLevel", 4)
	config.SetDefault("inboxFile", "inbox.jsonl")
	config.SetDefault("seenEventCache", 4096)
	config.SetDefault("relays", []string{})

	config.SetDefault("offerDuration", "168h")
	config.SetDefault("redemptionDelay", "1440h")    // 60 days
	config.SetDefault("eligibilityWindow", "10800h") // 450 days
	config.SetDefault("recencyWindow", "2160h")      // 90 days
	//zero means a redemption stays available until it is released or redeemed
	config.SetDefault("redemptionPeriod", "0s")

	config.SetDefault("exchangeBase", "EEUR")
	config.SetDefault("exchangeQuote", "EUR")
	config.SetDefault("resolutionTypes", []map[string]interface{}{
		{"name": "amendment", "notice": "336h", "voting": "168h", "quorum": 0},
		{"name": "capitalChange", "notice": "336h", "voting": "168h", "quorum": 66},
		{"name": "preclusion", "notice": "336h", "voting": "168h", "quorum": 75},
		{"name": "fundamentalOther", "notice": "336h", "voting": "168h", "quorum": 51},
		{"name": "significant", "notice": "144h", "voting": "96h", "quorum": 51},
		{"name": "dissolution", "notice": "336h", "voting": "168h", "quorum": 66},
		{"name": "routine", "notice": "72h", "voting": "48h", "quorum": 0},
	})

	config.SetDefault("genesis.clock", int64(0))
	config.SetDefault("genesis.market", "")
	config.SetDefault("genesis.reserve", "")
	config.SetDefault("genesis.statuses", map[string]string{})
	config.SetDefault("genesis.roles", map[string][]string{})
}

func initRootDir(conf *viper.Viper) {
	_, err := os.Stat(conf.GetString("rootDir"))
	if os.IsNotExist(err) {
		err = os.MkdirAll(conf.GetString("rootDir"), 0755)
		if err != nil {
			library.LogCLI(err, 0)
		}
	}
}

func touch(name string) {
	f, err := os.OpenFile(name, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		library.LogCLI(err, 1)
		return
	}
	f.Close()
}

var conf *viper.Viper

func MakeOrGetConfig() *viper.Viper {
	return conf
}

func SetConfig(config *viper.Viper) {
	conf = config
}
