package table

import (
	"encoding/binary"
	"math"
)

// Key encoding turns column values into byte strings that are equal iff
// the values are structurally equal. Grouping and join probing hash these
// keys instead of delimiter-joined strings, so delimiter characters inside
// string values can never collide two distinct keys.
//
// Null encodes to a distinct tag with no payload, which makes null compare
// equal to null in group keys and join keys. That choice diverges from SQL
// join semantics and is deliberate; see the join operator.

const (
	keyNull   = 0x00
	keyInt    = 0x01
	keyFloat  = 0x02
	keyString = 0x03
	keyBool   = 0x04
)

// KeyAppend appends the structural key encoding of row i to dst and
// returns the extended slice.
func (c *Column) KeyAppend(dst []byte, i int) []byte {
	if c.IsNull(i) {
		return append(dst, keyNull)
	}
	switch c.typ {
	case Int64, Timestamp:
		dst = append(dst, keyInt)
		dst = binary.LittleEndian.AppendUint64(dst, uint64(c.ints[i]))
	case Float64:
		f := c.floats[i]
		// Integral floats encode as ints so 2 and 2.0 land in one bucket.
		if f == math.Trunc(f) && !math.IsInf(f, 0) && f >= math.MinInt64 && f <= math.MaxInt64 {
			dst = append(dst, keyInt)
			dst = binary.LittleEndian.AppendUint64(dst, uint64(int64(f)))
		} else {
			dst = append(dst, keyFloat)
			dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(f))
		}
	case String:
		s := c.strs[i]
		dst = append(dst, keyString)
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(s)))
		dst = append(dst, s...)
	case Bool:
		dst = append(dst, keyBool)
		if c.bools[i] {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	}
	return dst
}

// KeyOf returns the structural key of a standalone value (int64, float64,
// string, bool, or nil), matching the encoding KeyAppend produces for
// column values. Used for set membership in `in` filters.
func KeyOf(v any) string {
	var dst []byte
	switch x := v.(type) {
	case nil:
		dst = append(dst, keyNull)
	case int64:
		dst = append(dst, keyInt)
		dst = binary.LittleEndian.AppendUint64(dst, uint64(x))
	case int:
		dst = append(dst, keyInt)
		dst = binary.LittleEndian.AppendUint64(dst, uint64(int64(x)))
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) && x >= math.MinInt64 && x <= math.MaxInt64 {
			dst = append(dst, keyInt)
			dst = binary.LittleEndian.AppendUint64(dst, uint64(int64(x)))
		} else {
			dst = append(dst, keyFloat)
			dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(x))
		}
	case string:
		dst = append(dst, keyString)
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(x)))
		dst = append(dst, x...)
	case bool:
		dst = append(dst, keyBool)
		if x {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	}
	return string(dst)
}
