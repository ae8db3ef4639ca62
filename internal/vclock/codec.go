package vclock

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Wire layout, little-endian throughout:
//
//	[entry count u32]
//	per entry, ascending by replica id:
//	  [id length u16] [id bytes] [counter i64]
//
// minEntrySize is the smallest possible entry (empty id).
const minEntrySize = 2 + 8

// DataFormatError reports version vector bytes that cannot be decoded, or
// a vector that cannot be represented in the wire format.
type DataFormatError struct {
	// Msg is a human-readable description.
	Msg string

	// Offset is the byte offset in the input when decoding, 0 otherwise.
	Offset int
}

// Error implements the error interface.
func (e *DataFormatError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("version vector data: %s (offset %d)", e.Msg, e.Offset)
	}
	return "version vector data: " + e.Msg
}

// IsDataFormat returns true if the error is a DataFormatError.
// Uses errors.As to handle wrapped errors.
func IsDataFormat(err error) bool {
	var de *DataFormatError
	return errors.As(err, &de)
}

// MarshalBinary implements encoding.BinaryMarshaler using the compact
// wire layout. Entries are written in ascending replica id order so equal
// vectors always produce identical bytes.
func (v *VersionVector) MarshalBinary() ([]byte, error) {
	ids := v.Replicas()
	buf := make([]byte, 0, 4+len(ids)*(minEntrySize+16))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(ids)))
	for _, id := range ids {
		if len(id) > math.MaxUint16 {
			return nil, &DataFormatError{Msg: fmt.Sprintf("replica id of %d bytes exceeds the 65535 wire limit", len(id))}
		}
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(id)))
		buf = append(buf, id...)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(v.Get(id)))
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The length of the
// input is validated before every read; truncated input, a malformed id
// length, or a negative counter yields a DataFormatError. A zero counter
// decodes as an absent entry. Bytes past the declared entries are ignored.
func (v *VersionVector) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return &DataFormatError{Msg: "truncated header", Offset: len(data)}
	}
	count := binary.LittleEndian.Uint32(data)
	if uint64(count)*minEntrySize > uint64(len(data)-4) {
		return &DataFormatError{Msg: fmt.Sprintf("%d entries cannot fit in %d bytes", count, len(data))}
	}

	counters := make(map[string]int64, count)
	pos := 4
	for i := uint32(0); i < count; i++ {
		if pos+2 > len(data) {
			return &DataFormatError{Msg: "truncated id length", Offset: pos}
		}
		idLen := int(binary.LittleEndian.Uint16(data[pos:]))
		pos += 2

		if pos+idLen > len(data) {
			return &DataFormatError{Msg: "truncated replica id", Offset: pos}
		}
		id := string(data[pos : pos+idLen])
		pos += idLen

		if pos+8 > len(data) {
			return &DataFormatError{Msg: "truncated counter", Offset: pos}
		}
		c := int64(binary.LittleEndian.Uint64(data[pos:]))
		pos += 8

		if c < 0 {
			return &DataFormatError{Msg: fmt.Sprintf("negative counter %d for replica %q", c, id), Offset: pos - 8}
		}
		if c > 0 {
			counters[id] = c
		}
	}

	v.counters = counters
	v.invalidate()
	return nil
}

// MarshalJSON renders the vector as its effective mapping.
func (v *VersionVector) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToMap())
}

// UnmarshalJSON reads a replica-to-counter mapping, normalizing zero and
// negative entries away. JSON null decodes as the empty vector.
func (v *VersionVector) UnmarshalJSON(data []byte) error {
	var m map[string]int64
	if err := json.Unmarshal(data, &m); err != nil {
		return &DataFormatError{Msg: fmt.Sprintf("vector mapping: %v", err)}
	}
	*v = *FromMap(m)
	return nil
}

// Run is one run of equal counters across the sorted replica order.
type Run struct {
	Length  int   `json:"length"`
	Counter int64 `json:"counter"`
}

// Compressed is the run-length form of a version vector: the replica ids
// in ascending order plus the counter runs across that order. Vectors
// whose replicas cluster around a few counter values compress well.
type Compressed struct {
	Replicas []string `json:"replicas"`
	Runs     []Run    `json:"runs,omitempty"`
}

// Compress produces the run-length form. Decompress inverts it exactly.
func (v *VersionVector) Compress() Compressed {
	ids := v.Replicas()
	c := Compressed{Replicas: ids}
	for i := 0; i < len(ids); {
		val := v.Get(ids[i])
		n := 1
		for i+n < len(ids) && v.Get(ids[i+n]) == val {
			n++
		}
		c.Runs = append(c.Runs, Run{Length: n, Counter: val})
		i += n
	}
	return c
}

// Decompress expands the run-length form back into a vector. Runs beyond
// the replica list are ignored, as are non-positive counters.
func (c Compressed) Decompress() *VersionVector {
	counters := make(map[string]int64, len(c.Replicas))
	i := 0
	for _, r := range c.Runs {
		for j := 0; j < r.Length && i+j < len(c.Replicas); j++ {
			if r.Counter > 0 {
				counters[c.Replicas[i+j]] = r.Counter
			}
		}
		i += r.Length
	}
	return &VersionVector{counters: counters}
}
