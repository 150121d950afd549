package library

type Wallet struct {
	PrivateKey string
	SeedWords  string
	Account    Account
}

// Account is the hex encoded public key of a member, investor or service actor.
type Account = string

type Sha256 = string

// NoAccount is used as the counterparty of mints and burns.
const NoAccount Account = ""
