package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Taxonomy(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Value
	}{
		{"null", `null`, Null{}},
		{"true", `true`, Bool(true)},
		{"false", `false`, Bool(false)},
		{"int", `42`, Number("42")},
		{"negative", `-7`, Number("-7")},
		{"float keeps literal", `1.50`, Number("1.50")},
		{"big int keeps precision", `9007199254740993`, Number("9007199254740993")},
		{"string", `"hello"`, String("hello")},
		{"array", `[1,"a",null]`, Array{Number("1"), String("a"), Null{}}},
		{"object", `{"a":1,"b":{"c":true}}`, Object{"a": Number("1"), "b": Object{"c": Bool(true)}}},
		{"empty object", `{}`, Object{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "got %#v", got)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, input := range []string{``, `{`, `[1,`, `{"a"}`, `tru`, `1 2`, `{} extra`} {
		_, err := Decode([]byte(input))
		assert.Error(t, err, "input %q", input)
		assert.True(t, IsSerialization(err), "input %q: %v", input, err)
	}
}

func TestDecodeObject_RejectsNonObject(t *testing.T) {
	_, err := DecodeObject([]byte(`[1,2]`))
	require.Error(t, err)
	assert.True(t, IsSerialization(err))

	obj, err := DecodeObject([]byte(`{"k":"v"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, obj.FieldCount())
}

func TestFromAny_YAMLShapes(t *testing.T) {
	// What yaml.v3 hands back when decoding into any.
	doc := map[string]any{
		"count":   3,
		"ratio":   0.5,
		"big":     uint64(18446744073709551615),
		"title":   "note",
		"done":    false,
		"nothing": nil,
		"tags":    []any{"a", "b"},
		"nested":  map[string]any{"deep": int64(9)},
	}

	v, err := FromAny(doc)
	require.NoError(t, err)
	obj := v.(Object)

	assert.True(t, Equal(Number("3"), obj["count"]))
	assert.True(t, Equal(Number("0.5"), obj["ratio"]))
	assert.True(t, Equal(Number("18446744073709551615"), obj["big"]))
	assert.True(t, Equal(String("note"), obj["title"]))
	assert.True(t, Equal(Bool(false), obj["done"]))
	assert.True(t, Equal(Null{}, obj["nothing"]))
	assert.True(t, Equal(Array{String("a"), String("b")}, obj["tags"]))
	assert.True(t, Equal(Object{"deep": Number("9")}, obj["nested"]))
}

func TestFromAny_Unsupported(t *testing.T) {
	_, err := FromAny(map[any]any{1: "x"})
	assert.Error(t, err)

	_, err = FromAny(struct{}{})
	assert.Error(t, err)
}

func TestObjectFromAny_NilStaysNil(t *testing.T) {
	obj, err := ObjectFromAny(nil)
	require.NoError(t, err)
	assert.Nil(t, obj)
}

func TestObject_Merge_OtherWins(t *testing.T) {
	base := Object{"keep": String("base"), "clash": Number("1"), "nested": Object{"a": Number("1")}}
	other := Object{"clash": Number("2"), "extra": Bool(true), "nested": Object{"b": Number("2")}}

	merged := base.Merge(other)

	assert.True(t, Equal(String("base"), merged["keep"]))
	assert.True(t, Equal(Number("2"), merged["clash"]), "collision goes to the other side")
	assert.True(t, Equal(Bool(true), merged["extra"]))

	// Overlay is shallow: the nested object is replaced, not merged.
	assert.True(t, Equal(Object{"b": Number("2")}, merged["nested"]))

	// Inputs untouched.
	assert.True(t, Equal(Number("1"), base["clash"]))
	assert.Equal(t, 3, base.FieldCount())
	assert.Equal(t, 3, other.FieldCount())
}

func TestObject_Merge_NilOperands(t *testing.T) {
	var none Object
	some := Object{"a": Number("1")}

	assert.Equal(t, 1, none.Merge(some).FieldCount())
	assert.Equal(t, 1, some.Merge(none).FieldCount())
	assert.Equal(t, 0, none.Merge(nil).FieldCount())
	assert.Equal(t, 0, none.FieldCount())
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null null", Null{}, Null{}, true},
		{"null vs bool", Null{}, Bool(false), false},
		{"number literal text", Number("1"), Number("1"), true},
		{"number 1 vs 1.0", Number("1"), Number("1.0"), false},
		{"arrays equal", Array{Number("1")}, Array{Number("1")}, true},
		{"arrays length", Array{Number("1")}, Array{}, false},
		{"objects equal", Object{"a": Null{}}, Object{"a": Null{}}, true},
		{"objects key set", Object{"a": Null{}}, Object{"b": Null{}}, false},
		{"object vs array", Object{}, Array{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a))
		})
	}
}

func TestObject_Equal(t *testing.T) {
	var none Object

	assert.True(t, Object{"a": Number("1")}.Equal(Object{"a": Number("1")}))
	assert.False(t, Object{"a": Number("1")}.Equal(Object{"a": Number("2")}))
	assert.False(t, Object{"a": Number("1")}.Equal(Object{"a": Number("1"), "b": Null{}}))
	assert.True(t, none.Equal(nil))
	assert.True(t, none.Equal(Object{}))

	// Nested values compare structurally.
	assert.True(t, Object{"a": Array{Bool(true)}}.Equal(Object{"a": Array{Bool(true)}}))
	assert.False(t, Object{"a": Array{Bool(true)}}.Equal(Object{"a": Array{Bool(false)}}))
}
