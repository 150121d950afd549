package replay

import "memberdao/engine/library"

// Mapped is the id of the last handled event of every account that has signed one.
type Mapped map[library.Account]library.Sha256
