package resolutions

import (
	"github.com/holiman/uint256"
	"memberdao/engine/library"
	"memberdao/state/access"
	"memberdao/state/membership"
)

// Engine runs the resolution lifecycle: created, approved by the board, notice, voting, closed.
// It only reads from the other components.
type Engine struct {
	types    map[string]Type
	registry membership.Reader
	policy   access.Policy
	voting   VotingPower
	clock    library.Clock
	recorder library.Recorder
	data     map[uint64]*Resolution
	nextID   uint64
}

func New(types []Type, registry membership.Reader, policy access.Policy, voting VotingPower, clock library.Clock, recorder library.Recorder) *Engine {
	if recorder == nil {
		recorder = library.Discard
	}
	if len(types) == 0 {
		types = DefaultTypes()
	}
	e := &Engine{
		types:    make(map[string]Type),
		registry: registry,
		policy:   policy,
		voting:   voting,
		clock:    clock,
		recorder: recorder,
		data:     make(map[uint64]*Resolution),
		nextID:   1,
	}
	for _, t := range types {
		e.types[t.Name] = t
	}
	return e
}

func (e *Engine) Types() map[string]Type {
	m := make(map[string]Type)
	for name, t := range e.types {
		m[name] = t
	}
	return m
}

func (e *Engine) CreateResolution(caller library.Account, description, resolutionType string, isNegative bool) (uint64, error) {
	if !e.registry.IsAtLeast(membership.Contributor, caller) {
		return 0, library.Unauthorized("only contributors can create resolutions")
	}
	t, ok := e.types[resolutionType]
	if !ok {
		return 0, library.InvalidState("unknown resolution type %q", resolutionType)
	}
	r := &Resolution{
		ID:          e.nextID,
		Description: description,
		IsNegative:  isNegative,
		CreatedBy:   caller,
		CreatedAt:   e.clock.Now(),
		Votes:       make(map[library.Account]VoteRecord),
	}
	r.setType(t)
	e.data[r.ID] = r
	e.nextID++
	e.recorder.Record(ResolutionCreated{ID: r.ID, Type: r.Type, CreatedBy: caller})
	return r.ID, nil
}

func (r *Resolution) setType(t Type) {
	r.Type = t.Name
	r.Notice = t.Notice
	r.Voting = t.Voting
	r.Quorum = t.Quorum
}

func (e *Engine) get(id uint64) (*Resolution, error) {
	r, ok := e.data[id]
	if !ok {
		return nil, library.InvalidState("resolution %d does not exist", id)
	}
	return r, nil
}

func (e *Engine) UpdateResolution(caller library.Account, id uint64, description, resolutionType string, isNegative bool) error {
	if !e.policy.Authorize(access.Manager, caller) && !e.registry.IsAtLeast(membership.ManagingBoard, caller) {
		return library.Unauthorized("only managers can update resolutions")
	}
	r, err := e.get(id)
	if err != nil {
		return err
	}
	if r.Approved() {
		return library.InvalidState("resolution already approved")
	}
	t, ok := e.types[resolutionType]
	if !ok {
		return library.InvalidState("unknown resolution type %q", resolutionType)
	}
	r.Description = description
	r.IsNegative = isNegative
	r.setType(t)
	e.recorder.Record(ResolutionUpdated{ID: id, Type: r.Type})
	return nil
}

func (e *Engine) ApproveResolution(caller library.Account, id uint64) error {
	if !e.registry.IsAtLeast(membership.ManagingBoard, caller) {
		return library.Unauthorized("only the managing board can approve resolutions")
	}
	r, err := e.get(id)
	if err != nil {
		return err
	}
	if r.Approved() {
		return library.InvalidState("resolution already approved")
	}
	r.ApprovedAt = e.clock.Now()
	r.TotalAtApproval = e.voting.GetTotalVotingPower()
	e.recorder.Record(ResolutionApproved{ID: id, ApprovedAt: r.ApprovedAt})
	return nil
}

// Vote records or replaces the caller's vote with its current voting power.
func (e *Engine) Vote(caller library.Account, id uint64, isYes bool) error {
	r, err := e.get(id)
	if err != nil {
		return err
	}
	now := e.clock.Now()
	if !r.Approved() || now.Before(r.VotingStarts()) || !now.Before(r.VotingEnds()) {
		return library.InvalidState("account cannot vote")
	}
	if !e.registry.IsAtLeast(membership.Contributor, caller) {
		return library.Unauthorized("account cannot vote")
	}
	power := e.voting.GetVotingPower(caller)
	r.Votes[caller] = VoteRecord{IsYes: isYes, VotingPower: power, HasVoted: true}
	e.recorder.Record(VoteCast{ID: id, Voter: caller, IsYes: isYes, VotingPower: power})
	return nil
}

// Tally sums the recorded votes. It never reads current voting power.
func (r *Resolution) Tally() (yes, no *uint256.Int) {
	yes, no = library.Zero(), library.Zero()
	for _, v := range r.Votes {
		if v.IsYes {
			yes = library.MustAdd(yes, v.VotingPower)
		} else {
			no = library.MustAdd(no, v.VotingPower)
		}
	}
	return
}

func (e *Engine) GetResolutionResult(id uint64) (bool, error) {
	r, err := e.get(id)
	if err != nil {
		return false, err
	}
	if !r.Approved() || e.clock.Now().Before(r.VotingEnds()) {
		return false, library.InvalidState("resolution not closed")
	}
	yes, no := r.Tally()
	if r.Quorum == 0 {
		if r.IsNegative {
			return !no.Gt(yes), nil
		}
		return yes.Gt(no), nil
	}
	required, err := library.Percent(library.OrZero(r.TotalAtApproval), r.Quorum)
	if err != nil {
		return false, err
	}
	if r.IsNegative {
		blocking, err := library.Percent(no, 100)
		if err != nil {
			return false, err
		}
		return blocking.Lt(required), nil
	}
	supporting, err := library.Percent(yes, 100)
	if err != nil {
		return false, err
	}
	return !supporting.Lt(required), nil
}

func (e *Engine) GetVoterVote(id uint64, account library.Account) (VoteRecord, error) {
	r, err := e.get(id)
	if err != nil {
		return VoteRecord{}, err
	}
	v, ok := r.Votes[account]
	if !ok {
		return VoteRecord{VotingPower: library.Zero()}, nil
	}
	return v, nil
}

func (e *Engine) GetResolution(id uint64) (Resolution, error) {
	r, err := e.get(id)
	if err != nil {
		return Resolution{}, err
	}
	return r.copy(), nil
}

func (r *Resolution) copy() Resolution {
	c := *r
	c.Votes = make(map[library.Account]VoteRecord)
	for account, v := range r.Votes {
		c.Votes[account] = v
	}
	return c
}

func (e *Engine) GetMap() Mapped {
	m := make(Mapped)
	for id, r := range e.data {
		m[id] = r.copy()
	}
	return m
}
