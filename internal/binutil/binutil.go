// Package binutil provides fixed-endian byte access and overflow-checked
// size conversions for the wire formats in this module.
//
// The indexed accessors assume the caller has already bounds-checked the
// slice; they panic on short input like the encoding/binary primitives
// they wrap.
package binutil

import (
	"encoding/binary"
	"math"
)

// U16LE reads a little-endian uint16 at off.
func U16LE(b []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(b[off:])
}

// U32LE reads a little-endian uint32 at off.
func U32LE(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off:])
}

// U32BE reads a big-endian uint32 at off.
func U32BE(b []byte, off int) uint32 {
	return binary.BigEndian.Uint32(b[off:])
}

// PutU16LE writes v little-endian at off.
func PutU16LE(b []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(b[off:], v)
}

// PutU32LE writes v little-endian at off.
func PutU32LE(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:], v)
}

// PutU32BE writes v big-endian at off.
func PutU32BE(b []byte, off int, v uint32) {
	binary.BigEndian.PutUint32(b[off:], v)
}

// AppendU16LE appends v in little-endian order.
func AppendU16LE(b []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(b, v)
}

// AppendU32LE appends v in little-endian order.
func AppendU32LE(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

// AppendU32BE appends v in big-endian order.
func AppendU32BE(b []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(b, v)
}

// ToUint32 converts v to uint32, returning overflowErr if it doesn't fit.
func ToUint32(v uint64, overflowErr error) (uint32, error) {
	if v > math.MaxUint32 {
		return 0, overflowErr
	}
	return uint32(v), nil
}

// AddUint32 adds delta to v, returning (result, false) when the sum leaves
// the uint32 range.
func AddUint32(v uint32, delta int64) (uint32, bool) {
	sum := int64(v) + delta
	if sum < 0 || sum > math.MaxUint32 {
		return 0, false
	}
	return uint32(sum), true
}
