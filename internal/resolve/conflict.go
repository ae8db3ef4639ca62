package resolve

// ConflictType names the unordered pair of operation types involved in
// a conflict.
type ConflictType string

const (
	CreateCreate ConflictType = "create_create"
	CreateUpdate ConflictType = "create_update"
	CreateDelete ConflictType = "create_delete"
	UpdateUpdate ConflictType = "update_update"
	UpdateDelete ConflictType = "update_delete"
	DeleteDelete ConflictType = "delete_delete"
)

func (t ConflictType) String() string { return string(t) }

// Resolution is the decision taken for one conflicting pair.
type Resolution string

const (
	// KeepFirst discards the second operation.
	KeepFirst Resolution = "keep_first"
	// KeepSecond discards the first operation.
	KeepSecond Resolution = "keep_second"
	// Merge combines both operations into one.
	Merge Resolution = "merge"
	// KeepBoth retains both operations unchanged.
	KeepBoth Resolution = "keep_both"
)

func (r Resolution) String() string { return string(r) }

// Conflict is one detected conflicting pair inside a batch. I and J
// index the batch slice, I < J.
type Conflict struct {
	I    int          `json:"first"`
	J    int          `json:"second"`
	Type ConflictType `json:"type"`
}

// Outcome pairs a detected conflict with its resolution and the
// operations that replace the pair. Result holds one operation for
// KeepFirst, KeepSecond and Merge, and two for KeepBoth.
type Outcome struct {
	Conflict   Conflict    `json:"conflict"`
	Resolution Resolution  `json:"resolution"`
	Result     []Operation `json:"result"`
}

// classifyPair maps an unordered pair of operation types to its
// conflict type. Reference operations never conflict.
func classifyPair(a, b OpType) (ConflictType, bool) {
	if a == OpReference || b == OpReference {
		return "", false
	}
	if b == OpCreate || (b == OpUpdate && a == OpDelete) {
		a, b = b, a
	}
	switch {
	case a == OpCreate && b == OpCreate:
		return CreateCreate, true
	case a == OpCreate && b == OpUpdate:
		return CreateUpdate, true
	case a == OpCreate && b == OpDelete:
		return CreateDelete, true
	case a == OpUpdate && b == OpUpdate:
		return UpdateUpdate, true
	case a == OpUpdate && b == OpDelete:
		return UpdateDelete, true
	case a == OpDelete && b == OpDelete:
		return DeleteDelete, true
	default:
		return "", false
	}
}
