package access

import (
	"memberdao/engine/library"
)

type Role string

const (
	TokenManager Role = "token_manager"
	Resolution   Role = "resolution"
	Operator     Role = "operator"
	Escrow       Role = "escrow"
	Manager      Role = "manager"
	Relayer      Role = "relayer"
)

// Roles lists every role the ledger checks.
var Roles = []Role{TokenManager, Resolution, Operator, Escrow, Manager, Relayer}

// Policy answers whether caller currently holds role. It is consulted on every call.
type Policy interface {
	Authorize(role Role, caller library.Account) bool
}

type Mapped map[Role][]library.Account
