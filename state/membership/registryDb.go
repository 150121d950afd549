package membership

import (
	"memberdao/engine/library"
	"memberdao/state/access"
)

// Registry holds the current status of every known account. Accounts that were never set are
// NonMember. It is not safe for concurrent use, the ledger serializes access.
type Registry struct {
	data     map[library.Account]Status
	policy   access.Policy
	hook     RemovalHook
	recorder library.Recorder
}

func NewRegistry(policy access.Policy, recorder library.Recorder) *Registry {
	if recorder == nil {
		recorder = library.Discard
	}
	return &Registry{
		data:     make(map[library.Account]Status),
		policy:   policy,
		recorder: recorder,
	}
}

func (r *Registry) SetRemovalHook(hook RemovalHook) {
	r.hook = hook
}

func (r *Registry) StatusOf(account library.Account) Status {
	return r.data[account]
}

func (r *Registry) IsAtLeast(status Status, account library.Account) bool {
	return r.data[account] >= status
}

// SetStatus changes the status of account. Dropping below Contributor runs the removal hook first
// so voting power is withdrawn while the account still counts as a contributor.
func (r *Registry) SetStatus(caller, account library.Account, status Status) error {
	if err := access.Require(r.policy, access.Resolution, caller); err != nil {
		return err
	}
	return r.setStatus(account, status)
}

// Genesis sets a status without a caller, for bootstrapping from config.
func (r *Registry) Genesis(account library.Account, status Status) error {
	return r.setStatus(account, status)
}

func (r *Registry) setStatus(account library.Account, status Status) error {
	if status < NonMember || status > ManagingBoard {
		return library.InvalidState("unknown status %d", int(status))
	}
	if len(account) == 0 {
		return library.InvalidState("account cannot be empty")
	}
	previous := r.data[account]
	if previous == status {
		return nil
	}
	if previous >= Contributor && status < Contributor && r.hook != nil {
		r.hook.BeforeRemoveContributor(account)
	}
	if status == NonMember {
		delete(r.data, account)
	} else {
		r.data[account] = status
	}
	r.recorder.Record(StatusChanged{Account: account, Previous: previous, Current: status})
	return nil
}

func (r *Registry) GetMap() Mapped {
	m := make(Mapped)
	for account, status := range r.data {
		m[account] = status
	}
	return m
}
