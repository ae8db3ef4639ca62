package resolve

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/concord/internal/payload"
	"github.com/roach88/concord/internal/vclock"
)

// OpType classifies what a sync operation does to its entity.
type OpType string

const (
	OpCreate    OpType = "create"
	OpUpdate    OpType = "update"
	OpDelete    OpType = "delete"
	OpReference OpType = "reference"
)

// ParseOpType converts a wire string into an OpType. Matching is
// case-insensitive; unknown names are an error.
func ParseOpType(s string) (OpType, error) {
	switch OpType(strings.ToLower(s)) {
	case OpCreate:
		return OpCreate, nil
	case OpUpdate:
		return OpUpdate, nil
	case OpDelete:
		return OpDelete, nil
	case OpReference:
		return OpReference, nil
	default:
		return "", fmt.Errorf("unknown operation type %q", s)
	}
}

func (t OpType) String() string { return string(t) }

// MarshalText implements encoding.TextMarshaler.
func (t OpType) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *OpType) UnmarshalText(text []byte) error {
	parsed, err := ParseOpType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Operation is one replica-local mutation carried through sync.
//
// EntityType names the kind of record being mutated and EntityID the
// specific record. EntityID may be empty for operations that predate
// the record having a durable id, such as an offline create; such
// operations still conflict with others of the same entity type.
type Operation struct {
	ID         string                `json:"id"`
	EntityType string                `json:"entity_type"`
	EntityID   string                `json:"entity_id,omitempty"`
	Type       OpType                `json:"operation_type"`
	Timestamp  time.Time             `json:"timestamp"`
	Clock      *vclock.VersionVector `json:"vector_clock,omitempty"`
	Payload    payload.Object        `json:"payload,omitempty"`
}

// SameEntity reports whether two operations target the same logical
// entity: equal entity types, and equal entity ids when both are set.
// A missing entity id on either side matches any id of the same type.
func (op Operation) SameEntity(other Operation) bool {
	if op.EntityType != other.EntityType {
		return false
	}
	if op.EntityID != "" && other.EntityID != "" && op.EntityID != other.EntityID {
		return false
	}
	return true
}
