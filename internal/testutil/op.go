package testutil

import (
	"time"

	"github.com/roach88/concord/internal/payload"
	"github.com/roach88/concord/internal/resolve"
	"github.com/roach88/concord/internal/vclock"
)

// OpBuilder constructs sync operations fluently so table tests stay
// readable. Every method returns a copy, so partially built operations
// can be shared as prefixes:
//
//	base := testutil.Op("op-1", "course").Entity("101")
//	a := base.Create().At(0).Fields("name")
//	b := base.ID("op-2").Update().At(5).Clock("d2", 1)
type OpBuilder struct {
	op resolve.Operation
}

// Op starts a builder for an update operation with the given id and
// entity type, timestamped at Base.
func Op(id, entityType string) OpBuilder {
	return OpBuilder{op: resolve.Operation{
		ID:         id,
		EntityType: entityType,
		Type:       resolve.OpUpdate,
		Timestamp:  Base,
	}}
}

// ID replaces the operation id.
func (b OpBuilder) ID(id string) OpBuilder {
	b.op.ID = id
	return b
}

// Entity sets the entity id.
func (b OpBuilder) Entity(entityID string) OpBuilder {
	b.op.EntityID = entityID
	return b
}

// Create marks the operation as a create.
func (b OpBuilder) Create() OpBuilder {
	b.op.Type = resolve.OpCreate
	return b
}

// Update marks the operation as an update.
func (b OpBuilder) Update() OpBuilder {
	b.op.Type = resolve.OpUpdate
	return b
}

// Delete marks the operation as a delete.
func (b OpBuilder) Delete() OpBuilder {
	b.op.Type = resolve.OpDelete
	return b
}

// Reference marks the operation as a reference.
func (b OpBuilder) Reference() OpBuilder {
	b.op.Type = resolve.OpReference
	return b
}

// At timestamps the operation offset seconds after Base.
func (b OpBuilder) At(offsetSeconds int) OpBuilder {
	b.op.Timestamp = Base.Add(time.Duration(offsetSeconds) * time.Second)
	return b
}

// Clock adds one replica counter to the operation's vector clock.
func (b OpBuilder) Clock(replica string, counter int64) OpBuilder {
	m := b.op.Clock.ToMap()
	m[replica] = counter
	b.op.Clock = vclock.FromMap(m)
	return b
}

// Field sets one top-level payload field to a string value.
func (b OpBuilder) Field(key, value string) OpBuilder {
	merged := b.op.Payload.Merge(payload.Object{key: payload.String(value)})
	b.op.Payload = merged
	return b
}

// Fields sets the named payload fields, each to the string "x". Useful
// when only the field count matters.
func (b OpBuilder) Fields(keys ...string) OpBuilder {
	obj := make(payload.Object, len(keys))
	for _, k := range keys {
		obj[k] = payload.String("x")
	}
	b.op.Payload = b.op.Payload.Merge(obj)
	return b
}

// Build returns the finished operation.
func (b OpBuilder) Build() resolve.Operation {
	return b.op
}
