package membership

import (
	"fmt"
	"strings"

	"memberdao/engine/library"
)

// Status is ordered, every status includes the rights of the ones before it.
type Status int

const (
	NonMember Status = iota
	Investor
	Shareholder
	Contributor
	ManagingBoard
)

var statusNames = []string{"non_member", "investor", "shareholder", "contributor", "managing_board"}

func (s Status) String() string {
	if s < NonMember || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

func ParseStatus(s string) (Status, error) {
	for i, name := range statusNames {
		if strings.EqualFold(name, s) {
			return Status(i), nil
		}
	}
	return NonMember, fmt.Errorf("unknown status %q", s)
}

// Reader is what the rest of the ledger needs from the registry.
type Reader interface {
	StatusOf(account library.Account) Status
	IsAtLeast(status Status, account library.Account) bool
}

// RemovalHook is called before an account drops below Contributor.
type RemovalHook interface {
	BeforeRemoveContributor(account library.Account)
}

//Kind641000 sets the membership status of an account
type Kind641000 struct {
	Account library.Account `json:"account"`
	Status  string          `json:"status"`
}

type StatusChanged struct {
	Account  library.Account
	Previous Status
	Current  Status
}

func (StatusChanged) ReceiptName() string { return "StatusChanged" }

type Mapped map[library.Account]Status
