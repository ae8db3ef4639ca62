package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Value is a sealed interface over the payload value types. Only Null,
// Bool, Number, String, Array, and Object implement it.
type Value interface {
	payloadValue() // sealed
}

// Null represents a JSON null. An explicit type rather than nil, so every
// decoded position holds a Value.
type Null struct{}

func (Null) payloadValue() {}

// Bool represents a JSON boolean.
type Bool bool

func (Bool) payloadValue() {}

// Number represents a JSON number by its literal text, json.Number style.
// Integers of any magnitude round-trip exactly; nothing in the
// reconciliation path converts numbers to float64.
type Number string

func (Number) payloadValue() {}

// NumberOf returns the Number for an integer.
func NumberOf(n int64) Number {
	return Number(strconv.FormatInt(n, 10))
}

// String represents a JSON string.
type String string

func (String) payloadValue() {}

// Array represents a JSON array.
type Array []Value

func (Array) payloadValue() {}

// Object represents a JSON object. A nil Object behaves as empty for
// Merge and FieldCount, which lets operations omit their payload.
type Object map[string]Value

func (Object) payloadValue() {}

// SerializationError reports a payload that could not be decoded or
// encoded.
type SerializationError struct {
	// Op is "decode" or "encode".
	Op string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("payload %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SerializationError) Unwrap() error {
	return e.Err
}

// IsSerialization returns true if the error is a SerializationError.
// Uses errors.As to handle wrapped errors.
func IsSerialization(err error) bool {
	var se *SerializationError
	return errors.As(err, &se)
}

// Decode parses JSON bytes into the value taxonomy. Numbers keep their
// literal text. Trailing data after the value is an error.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &SerializationError{Op: "decode", Err: err}
	}
	if dec.More() {
		return nil, &SerializationError{Op: "decode", Err: fmt.Errorf("trailing data after value")}
	}

	v, err := fromDecoded(raw)
	if err != nil {
		return nil, &SerializationError{Op: "decode", Err: err}
	}
	return v, nil
}

// DecodeObject parses JSON bytes that must hold an object.
func DecodeObject(data []byte) (Object, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(Object)
	if !ok {
		return nil, &SerializationError{Op: "decode", Err: fmt.Errorf("expected object, got %T", v)}
	}
	return obj, nil
}

// fromDecoded converts json.Decoder output into the taxonomy.
func fromDecoded(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		return Number(val), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			pv, err := fromDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = pv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			pv, err := fromDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = pv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// FromAny converts plain Go values into the taxonomy. This is the bridge
// for YAML-decoded documents, where numbers arrive as int, uint64, or
// float64 rather than json.Number.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		return Number(val), nil
	case int:
		return NumberOf(int64(val)), nil
	case int64:
		return NumberOf(val), nil
	case uint64:
		return Number(strconv.FormatUint(val, 10)), nil
	case float64:
		return Number(strconv.FormatFloat(val, 'g', -1, 64)), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			pv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = pv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			pv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = pv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ObjectFromAny converts a string-keyed map into an Object. A nil map
// yields a nil Object.
func ObjectFromAny(m map[string]any) (Object, error) {
	if m == nil {
		return nil, nil
	}
	v, err := FromAny(m)
	if err != nil {
		return nil, &SerializationError{Op: "decode", Err: err}
	}
	return v.(Object), nil
}

// MarshalJSON implements json.Marshaler using the canonical encoding, so
// payloads embedded in larger documents serialize deterministically.
func (o Object) MarshalJSON() ([]byte, error) {
	return Encode(o)
}

// UnmarshalJSON implements json.Unmarshaler. JSON null decodes as a nil
// Object, matching an absent payload.
func (o *Object) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = nil
		return nil
	}
	obj, err := DecodeObject(data)
	if err != nil {
		return err
	}
	*o = obj
	return nil
}

// Merge overlays other onto o: the result carries every key from either
// side, and other wins on collision. Neither input is modified; nested
// values are shared, not copied.
func (o Object) Merge(other Object) Object {
	merged := make(Object, len(o)+len(other))
	for k, v := range o {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// FieldCount returns the number of top-level fields.
func (o Object) FieldCount() int {
	return len(o)
}

// Equal reports structural equality with another object. Two nil objects
// are equal; a nil and an empty object are equal too, both carrying zero
// fields.
func (o Object) Equal(other Object) bool {
	if len(o) != len(other) {
		return false
	}
	for k, v := range o {
		ov, present := other[k]
		if !present || !Equal(v, ov) {
			return false
		}
	}
	return true
}

// Equal reports structural equality of two values. Numbers compare by
// literal text, so Number("1.0") and Number("1") are distinct.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bval, present := bv[k]
			if !present || !Equal(v, bval) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
