package plans

import "github.com/xraph/plans/id"

// ID is the primary identifier type for all plans entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
