package access

import (
	"fmt"

	"github.com/sasha-s/go-deadlock"
	"golang.org/x/exp/slices"
	"memberdao/engine/library"
)

// Table is the in-process role table. Roles are administered outside the ledger (genesis config),
// the ledger only reads it.
type Table struct {
	data  map[Role]map[library.Account]struct{}
	mutex *deadlock.Mutex
}

func NewTable() *Table {
	return &Table{
		data:  make(map[Role]map[library.Account]struct{}),
		mutex: &deadlock.Mutex{},
	}
}

func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (t *Table) Grant(role Role, account library.Account) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if _, ok := t.data[role]; !ok {
		t.data[role] = make(map[library.Account]struct{})
	}
	t.data[role][account] = struct{}{}
}

func (t *Table) Revoke(role Role, account library.Account) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	delete(t.data[role], account)
}

func (t *Table) Authorize(role Role, caller library.Account) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	_, ok := t.data[role][caller]
	return ok
}

func (t *Table) GetMap() Mapped {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	m := make(Mapped)
	for role, accounts := range t.data {
		for account := range accounts {
			m[role] = append(m[role], account)
		}
		slices.Sort(m[role])
	}
	return m
}

// Require returns an AuthorizationError if caller does not hold role.
func Require(p Policy, role Role, caller library.Account) error {
	if p == nil || !p.Authorize(role, caller) {
		return library.Unauthorized("account %s is missing role %s", caller, role)
	}
	return nil
}
