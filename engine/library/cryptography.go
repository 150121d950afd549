package library

import (
	"crypto/sha256"
	"fmt"
)

func Sha256Sum(data interface{}) Sha256 {
	var b []byte
	switch d := data.(type) {
	case string:
		b = []byte(d)
	case []byte:
		b = d
	case fmt.Stringer:
		b = []byte(d.String())
	default:
		LogCLI("attempted to hash something that is not a string, []byte or Stringer", 1)
	}
	h := sha256.New()
	h.Write(b)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ValidAccount returns true if the account looks like a 32 byte hex pubkey.
func ValidAccount(account Account) bool {
	if len(account) != 64 {
		return false
	}
	for _, c := range account {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
