// Package payload models operation payloads as a closed set of JSON
// value types.
//
// The sealed Value interface is implemented by exactly six types: Null,
// Bool, Number, String, Array, and Object. Numbers keep their JSON
// literal text (json.Number semantics), so large integers survive a
// round trip undamaged and no float conversion ever happens inside the
// reconciliation path.
//
// Encode produces canonical bytes: object keys sorted by UTF-16 code
// units per RFC 8785, strings NFC normalized, no HTML escaping. Equal
// values encode to identical bytes, which makes stored payloads and
// golden snapshots stable across runs and platforms.
//
// Merge is a shallow overlay: the receiving object's fields are kept
// unless the other side has the same key, in which case the other side
// wins. Nested values are never merged field by field.
package payload
