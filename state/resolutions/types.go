package resolutions

import (
	"time"

	"github.com/holiman/uint256"
	"memberdao/engine/library"
)

// Type fixes the windows and the quorum of the resolutions created with it. Quorum is a
// percentage of the voting power at approval, zero means a simple majority of the votes cast.
type Type struct {
	Name   string        `mapstructure:"name" json:"name"`
	Notice time.Duration `mapstructure:"notice" json:"notice"`
	Voting time.Duration `mapstructure:"voting" json:"voting"`
	Quorum uint64        `mapstructure:"quorum" json:"quorum"`
}

func DefaultTypes() []Type {
	standard := func(name string, quorum uint64) Type {
		return Type{Name: name, Notice: library.Days(14), Voting: library.Days(7), Quorum: quorum}
	}
	return []Type{
		standard("amendment", 0),
		standard("capitalChange", 66),
		standard("preclusion", 75),
		standard("fundamentalOther", 51),
		{Name: "significant", Notice: library.Days(6), Voting: library.Days(4), Quorum: 51},
		standard("dissolution", 66),
		{Name: "routine", Notice: library.Days(3), Voting: library.Days(2), Quorum: 0},
	}
}

// VotingPower is the part of the voting ledger resolutions read.
type VotingPower interface {
	GetVotingPower(account library.Account) *uint256.Int
	GetTotalVotingPower() *uint256.Int
}

type VoteRecord struct {
	IsYes       bool
	VotingPower *uint256.Int
	HasVoted    bool
}

type Resolution struct {
	ID          uint64
	Description string
	Type        string
	IsNegative  bool
	CreatedBy   library.Account
	CreatedAt   time.Time
	ApprovedAt  time.Time
	Notice      time.Duration
	Voting      time.Duration
	Quorum      uint64
	// voting power of the whole organization when the resolution was approved
	TotalAtApproval *uint256.Int
	Votes           map[library.Account]VoteRecord
}

func (r *Resolution) Approved() bool {
	return !r.ApprovedAt.IsZero()
}

func (r *Resolution) VotingStarts() time.Time {
	return r.ApprovedAt.Add(r.Notice)
}

func (r *Resolution) VotingEnds() time.Time {
	return r.VotingStarts().Add(r.Voting)
}

//Kind641400 creates a resolution
type Kind641400 struct {
	Description string `json:"description"`
	Type        string `json:"type"`
	IsNegative  bool   `json:"is_negative"`
}

//Kind641401 updates a resolution that has not been approved yet
type Kind641401 struct {
	ID          uint64 `json:"id"`
	Description string `json:"description"`
	Type        string `json:"type"`
	IsNegative  bool   `json:"is_negative"`
}

//Kind641402 approves a resolution
type Kind641402 struct {
	ID uint64 `json:"id"`
}

//Kind641403 votes on a resolution
type Kind641403 struct {
	ID    uint64 `json:"id"`
	IsYes bool   `json:"is_yes"`
}

type ResolutionCreated struct {
	ID        uint64
	Type      string
	CreatedBy library.Account
}

func (ResolutionCreated) ReceiptName() string { return "ResolutionCreated" }

type ResolutionUpdated struct {
	ID   uint64
	Type string
}

func (ResolutionUpdated) ReceiptName() string { return "ResolutionUpdated" }

type ResolutionApproved struct {
	ID         uint64
	ApprovedAt time.Time
}

func (ResolutionApproved) ReceiptName() string { return "ResolutionApproved" }

type VoteCast struct {
	ID          uint64
	Voter       library.Account
	IsYes       bool
	VotingPower *uint256.Int
}

func (VoteCast) ReceiptName() string { return "VoteCast" }

type Mapped map[uint64]Resolution
