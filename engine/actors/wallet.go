package actors

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip06"
	"github.com/sasha-s/go-deadlock"
	"memberdao/engine/library"
)

var currentWallet library.Wallet
var currentWalletMutex = &deadlock.Mutex{}

// MyWallet returns the wallet stored in rootDir or creates a new one if there isn't one already.
func MyWallet() library.Wallet {
	currentWalletMutex.Lock()
	defer currentWalletMutex.Unlock()
	if len(currentWallet.PrivateKey) == 0 {
		if w, ok := getWalletFromDisk(); ok {
			currentWallet = w
		} else {
			library.LogCLI("Generating a new wallet, write down the seed words if you want to keep it", 4)
			w, err := NewWallet()
			if err != nil {
				library.LogCLI(err.Error(), 0)
			}
			currentWallet = w
			fmt.Printf("\n\n~NEW WALLET~\nPublic Key: %s\nSeed Words: %s\n\n", currentWallet.Account, currentWallet.SeedWords)
			if err := persistCurrentWallet(); err != nil {
				library.LogCLI(err.Error(), 1)
			}
		}
	}
	return currentWallet
}

// NewWallet derives a fresh key from new seed words.
func NewWallet() (library.Wallet, error) {
	seedWords, err := nip06.GenerateSeedWords()
	if err != nil {
		return library.Wallet{}, err
	}
	return WalletFromSeedWords(seedWords)
}

func WalletFromSeedWords(seedWords string) (library.Wallet, error) {
	seed := nip06.SeedFromWords(seedWords)
	sk, err := nip06.PrivateKeyFromSeed(seed)
	if err != nil {
		return library.Wallet{}, err
	}
	account, err := AccountFromPrivateKey(sk)
	if err != nil {
		return library.Wallet{}, err
	}
	return library.Wallet{
		PrivateKey: sk,
		SeedWords:  seedWords,
		Account:    account,
	}, nil
}

// AccountFromPrivateKey returns the x-only public key for a hex private key.
func AccountFromPrivateKey(privateKey string) (library.Account, error) {
	keyb, err := hex.DecodeString(privateKey)
	if err != nil {
		return "", fmt.Errorf("error decoding key from hex: %w", err)
	}
	if len(keyb) != 32 {
		return "", fmt.Errorf("private key must be 32 bytes, got %d", len(keyb))
	}
	_, pubkey := btcec.PrivKeyFromBytes(keyb)
	x := pubkey.X().Bytes()
	padded := make([]byte, 32)
	copy(padded[32-len(x):], x)
	return hex.EncodeToString(padded), nil
}

// SignEvent fills in the id and signature of e with the given wallet.
func SignEvent(w library.Wallet, e *nostr.Event) error {
	e.PubKey = w.Account
	e.ID = e.GetID()
	return e.Sign(w.PrivateKey)
}

func persistCurrentWallet() error {
	b, err := json.Marshal(currentWallet)
	if err != nil {
		return err
	}
	return os.WriteFile(MakeOrGetConfig().GetString("rootDir")+"wallet.dat", b, 0600)
}

func getWalletFromDisk() (w library.Wallet, ok bool) {
	file, err := os.ReadFile(MakeOrGetConfig().GetString("rootDir") + "wallet.dat")
	if err != nil {
		library.LogCLI(fmt.Sprintf("Error getting wallet file: %s", err.Error()), 2)
		return library.Wallet{}, false
	}
	err = json.Unmarshal(file, &w)
	if err != nil {
		library.LogCLI(fmt.Sprintf("Error parsing wallet file: %s", err.Error()), 3)
		return library.Wallet{}, false
	}
	return w, true
}
