package zip

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/klauspost/compress/flate"

	"github.com/meigma/polyglot/internal/binutil"
)

// Compression methods written by Writer.
const (
	MethodStored  uint16 = 0
	MethodDeflate uint16 = 8
)

// Writer builds an archive from named in-memory payloads. It replaces the
// external archiving utility for directory packing: entries are deflated
// when that wins, stored otherwise, and the central directory and trailer
// are emitted with exact offsets on Finish.
type Writer struct {
	buf     bytes.Buffer
	entries []Entry
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Add appends an entry, deflating the payload unless storing is smaller.
func (w *Writer) Add(name string, data []byte) error {
	compressed, err := deflate(data)
	if err != nil {
		return err
	}
	if len(compressed) >= len(data) {
		return w.add(name, data, data, MethodStored)
	}
	return w.add(name, data, compressed, MethodDeflate)
}

// AddStored appends an entry without compression. Stored entries keep the
// payload bytes addressable in the output, which the archive-dominant
// embedding strategy depends on.
func (w *Writer) AddStored(name string, data []byte) error {
	return w.add(name, data, data, MethodStored)
}

func (w *Writer) add(name string, original, stored []byte, method uint16) error {
	if len(name) > math.MaxUint16 {
		return fmt.Errorf("%w: name %q", ErrTooLarge, name[:32])
	}
	if len(original) > math.MaxUint32 || len(stored) > math.MaxUint32 {
		return fmt.Errorf("%w: entry %q", ErrTooLarge, name)
	}
	offset, err := binutil.ToUint32(uint64(w.buf.Len()), ErrOffsetOverflow)
	if err != nil {
		return fmt.Errorf("%w: entry %q", ErrOffsetOverflow, name)
	}

	e := Entry{
		Name:              name,
		Method:            method,
		CRC32:             crc32.ChecksumIEEE(original),
		CompressedSize:    uint32(len(stored)),
		UncompressedSize:  uint32(len(original)),
		LocalHeaderOffset: offset,
	}

	var hdr []byte
	hdr = binutil.AppendU32LE(hdr, localHeaderSig)
	hdr = binutil.AppendU16LE(hdr, 20) // version needed
	hdr = binutil.AppendU16LE(hdr, 0)  // flags
	hdr = binutil.AppendU16LE(hdr, e.Method)
	hdr = binutil.AppendU32LE(hdr, 0) // dos time/date
	hdr = binutil.AppendU32LE(hdr, e.CRC32)
	hdr = binutil.AppendU32LE(hdr, e.CompressedSize)
	hdr = binutil.AppendU32LE(hdr, e.UncompressedSize)
	hdr = binutil.AppendU16LE(hdr, uint16(len(name)))
	hdr = binutil.AppendU16LE(hdr, 0) // extra length
	hdr = append(hdr, name...)

	w.buf.Write(hdr)
	w.buf.Write(stored)
	w.entries = append(w.entries, e)
	return nil
}

// Finish emits the central directory and trailer and returns the archive.
func (w *Writer) Finish() ([]byte, error) {
	if len(w.entries) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d entries", ErrTooLarge, len(w.entries))
	}
	dirOffset, err := binutil.ToUint32(uint64(w.buf.Len()), ErrOffsetOverflow)
	if err != nil {
		return nil, err
	}

	var dir []byte
	for _, e := range w.entries {
		dir = binutil.AppendU32LE(dir, centralHeaderSig)
		dir = binutil.AppendU16LE(dir, 20) // version made by
		dir = binutil.AppendU16LE(dir, 20) // version needed
		dir = binutil.AppendU16LE(dir, 0)  // flags
		dir = binutil.AppendU16LE(dir, e.Method)
		dir = binutil.AppendU32LE(dir, 0) // dos time/date
		dir = binutil.AppendU32LE(dir, e.CRC32)
		dir = binutil.AppendU32LE(dir, e.CompressedSize)
		dir = binutil.AppendU32LE(dir, e.UncompressedSize)
		dir = binutil.AppendU16LE(dir, uint16(len(e.Name)))
		dir = binutil.AppendU16LE(dir, 0) // extra length
		dir = binutil.AppendU16LE(dir, 0) // comment length
		dir = binutil.AppendU16LE(dir, 0) // disk number
		dir = binutil.AppendU16LE(dir, 0) // internal attributes
		dir = binutil.AppendU32LE(dir, 0) // external attributes
		dir = binutil.AppendU32LE(dir, e.LocalHeaderOffset)
		dir = append(dir, e.Name...)
	}
	dirSize, err := binutil.ToUint32(uint64(len(dir)), ErrOffsetOverflow)
	if err != nil {
		return nil, err
	}

	out := w.buf.Bytes()
	out = append(out, dir...)
	out = binutil.AppendU32LE(out, eocdSig)
	out = binutil.AppendU16LE(out, 0) // disk number
	out = binutil.AppendU16LE(out, 0) // directory disk
	out = binutil.AppendU16LE(out, uint16(len(w.entries)))
	out = binutil.AppendU16LE(out, uint16(len(w.entries)))
	out = binutil.AppendU32LE(out, dirSize)
	out = binutil.AppendU32LE(out, dirOffset)
	out = binutil.AppendU16LE(out, 0) // comment length
	return out, nil
}

// BuildSingleEntry constructs a one-entry stored archive holding payload
// under the given name. All records are built from scratch, so no offset
// patching is ever needed on the result.
func BuildSingleEntry(name string, payload []byte) ([]byte, error) {
	w := NewWriter()
	if err := w.AddStored(name, payload); err != nil {
		return nil, err
	}
	return w.Finish()
}

func deflate(data []byte) ([]byte, error) {
	var b bytes.Buffer
	fw, err := flate.NewWriter(&b, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
