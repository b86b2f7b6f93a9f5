// Package zip implements the subset of the ZIP container needed for
// polyglot work: parsing the end-of-central-directory trailer and the
// central directory, rebasing directory offsets after the archive is
// relocated inside another file, and building small archives from scratch.
//
// This is deliberately not an archive/zip replacement. The package never
// decompresses entry data; it treats the archive as a byte sequence whose
// structural invariants (trailer location, directory offsets) must survive
// relocation.
package zip

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/meigma/polyglot/internal/binutil"
)

// Record signatures, little-endian on the wire.
const (
	localHeaderSig   = 0x04034b50
	centralHeaderSig = 0x02014b50
	eocdSig          = 0x06054b50
)

// Fixed record sizes before their variable-length tails.
const (
	localHeaderLen   = 30
	centralHeaderLen = 46
	eocdLen          = 22
)

// ZIP64 sentinel values: a field holding one defers to the 64-bit records.
const (
	sentinel16 = 0xffff
	sentinel32 = 0xffffffff
)

// Sentinel errors for archive parsing and rebasing.
var (
	// ErrBadSignature is returned when the leading local header signature
	// is absent.
	ErrBadSignature = errors.New("zip: bad signature")

	// ErrTruncated is returned when a record extends past the buffer.
	ErrTruncated = errors.New("zip: truncated record")

	// ErrTrailerNotFound is returned when no consistent end-of-central-
	// directory record exists.
	ErrTrailerNotFound = errors.New("zip: end of central directory not found")

	// ErrZip64 is returned when the archive uses the 64-bit directory
	// extension, which this package does not support.
	ErrZip64 = errors.New("zip: zip64 archives not supported")

	// ErrOffsetOverflow is returned when a rebased offset would leave the
	// 32-bit field range.
	ErrOffsetOverflow = errors.New("zip: rebased offset overflows 32-bit field")

	// ErrAlreadyRebased is returned when Rebase is called on an archive
	// that was already rebased once.
	ErrAlreadyRebased = errors.New("zip: archive already rebased")

	// ErrTooLarge is returned when a payload or name exceeds the format's
	// field width.
	ErrTooLarge = errors.New("zip: size exceeds field width")

	// ErrOffsetMismatch is returned when a directory entry's declared
	// offset does not land on a matching local header.
	ErrOffsetMismatch = errors.New("zip: entry offset does not match local header")

	// ErrEntryNotFound is returned when a named entry is absent from the
	// directory.
	ErrEntryNotFound = errors.New("zip: entry not found")
)

// EOCD is the end-of-central-directory record, the archive's trailer.
type EOCD struct {
	DiskNum      uint16
	DirDiskNum   uint16
	DiskEntries  uint16
	TotalEntries uint16
	DirSize      uint32
	DirOffset    uint32
	CommentLen   uint16
}

// Entry is one central directory record.
type Entry struct {
	Name             string
	Method           uint16
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32

	// LocalHeaderOffset is the declared absolute offset of the matching
	// local header. After a rebase it is anchored to the enclosing file
	// rather than the archive's own start.
	LocalHeaderOffset uint32

	// headerOffset is the physical position of this record in the buffer,
	// which never moves during a rebase.
	headerOffset int
	headerLen    int
}

// Archive owns an archive byte buffer plus its parsed trailer and
// directory view. The parsed fields are logical copies, not sub-slices:
// rebasing rewrites the buffer and the copies together.
type Archive struct {
	data       []byte
	eocd       EOCD
	eocdOffset int
	entries    []Entry

	// dirPos is the physical position of the first directory entry. It
	// equals eocd.DirOffset until a rebase makes the declared offset
	// diverge from the physical one.
	dirPos int

	rebased bool
}

// Parse reads an archive whose directory offsets are anchored to its own
// first byte.
func Parse(data []byte) (*Archive, error) {
	if len(data) < 4 || binutil.U32LE(data, 0) != localHeaderSig {
		return nil, ErrBadSignature
	}

	eocdOffset, eocd, err := findEOCD(data)
	if err != nil {
		return nil, err
	}
	if err := checkZip64(eocd); err != nil {
		return nil, err
	}

	entries, err := readEntries(data, int(eocd.DirOffset), int(eocd.TotalEntries))
	if err != nil {
		return nil, err
	}

	return &Archive{
		data:       data,
		eocd:       eocd,
		eocdOffset: eocdOffset,
		entries:    entries,
		dirPos:     int(eocd.DirOffset),
	}, nil
}

// findEOCD scans backward from the end for the trailer signature. A match
// is accepted only when its declared comment length fits in the bytes that
// remain, which rejects a stray signature inside the comment itself.
func findEOCD(data []byte) (int, EOCD, error) {
	if len(data) < eocdLen {
		return 0, EOCD{}, fmt.Errorf("%w: %d bytes", ErrTrailerNotFound, len(data))
	}
	for off := len(data) - eocdLen; off >= 0; off-- {
		if binutil.U32LE(data, off) != eocdSig {
			continue
		}
		rec := EOCD{
			DiskNum:      binutil.U16LE(data, off+4),
			DirDiskNum:   binutil.U16LE(data, off+6),
			DiskEntries:  binutil.U16LE(data, off+8),
			TotalEntries: binutil.U16LE(data, off+10),
			DirSize:      binutil.U32LE(data, off+12),
			DirOffset:    binutil.U32LE(data, off+16),
			CommentLen:   binutil.U16LE(data, off+20),
		}
		if int(rec.CommentLen) <= len(data)-off-eocdLen {
			return off, rec, nil
		}
	}
	return 0, EOCD{}, ErrTrailerNotFound
}

func checkZip64(eocd EOCD) error {
	if eocd.DiskEntries == sentinel16 || eocd.TotalEntries == sentinel16 ||
		eocd.DirSize == sentinel32 || eocd.DirOffset == sentinel32 {
		return ErrZip64
	}
	return nil
}

// readEntries walks count directory records starting at the physical
// position dirPos, following each record's three variable-length tails.
// It stops early on a signature mismatch.
func readEntries(data []byte, dirPos, count int) ([]Entry, error) {
	off := dirPos
	entries := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		if off < 0 || off+centralHeaderLen > len(data) {
			return nil, fmt.Errorf("%w: directory entry %d at %d", ErrTruncated, i, off)
		}
		if binutil.U32LE(data, off) != centralHeaderSig {
			break
		}

		nameLen := int(binutil.U16LE(data, off+28))
		extraLen := int(binutil.U16LE(data, off+30))
		commentLen := int(binutil.U16LE(data, off+32))
		end := off + centralHeaderLen + nameLen + extraLen + commentLen
		if end > len(data) {
			return nil, fmt.Errorf("%w: directory entry %d tail", ErrTruncated, i)
		}

		e := Entry{
			Name:              string(data[off+centralHeaderLen : off+centralHeaderLen+nameLen]),
			Method:            binutil.U16LE(data, off+10),
			CRC32:             binutil.U32LE(data, off+16),
			CompressedSize:    binutil.U32LE(data, off+20),
			UncompressedSize:  binutil.U32LE(data, off+24),
			LocalHeaderOffset: binutil.U32LE(data, off+42),
			headerOffset:      off,
			headerLen:         end - off,
		}
		if e.LocalHeaderOffset == sentinel32 ||
			e.CompressedSize == sentinel32 || e.UncompressedSize == sentinel32 {
			return nil, fmt.Errorf("%w: entry %q", ErrZip64, e.Name)
		}
		entries = append(entries, e)
		off = end
	}
	return entries, nil
}

// Bytes returns the archive buffer. It aliases the archive and must be
// treated as read-only.
func (a *Archive) Bytes() []byte { return a.data }

// Entries returns the central directory view in on-disk order. The slice
// aliases the archive and must be treated as read-only.
func (a *Archive) Entries() []Entry { return a.entries }

// EOCD returns the parsed trailer.
func (a *Archive) EOCD() EOCD { return a.eocd }

// Rebased reports whether this archive's offsets were already shifted.
func (a *Archive) Rebased() bool { return a.rebased }

// Len returns the archive's exact byte length as declared by its own
// trailer: the trailer position plus its fixed size and comment.
func (a *Archive) Len() int {
	return a.eocdOffset + eocdLen + int(a.eocd.CommentLen)
}

// Rebase returns a copy of the archive with every directory entry's local
// header offset and the trailer's directory offset shifted by delta bytes,
// as required when the whole archive is relocated inside a larger file.
//
// Rebase is a consuming transform: the returned archive refuses a second
// Rebase with ErrAlreadyRebased, so the same shift can never be applied
// twice. All offsets are range-checked before any byte is rewritten; on
// ErrOffsetOverflow no partial patch is observable. Negative deltas undo a
// prior relocation.
//
// A rebased archive is no longer self-consistent on its own (its declared
// directory offset points outside itself by design), so it cannot be
// re-parsed until the shift is undone.
func (a *Archive) Rebase(delta int64) (*Archive, error) {
	if a.rebased {
		return nil, ErrAlreadyRebased
	}

	entries := make([]Entry, len(a.entries))
	copy(entries, a.entries)
	for i := range entries {
		v, ok := binutil.AddUint32(entries[i].LocalHeaderOffset, delta)
		if !ok {
			return nil, fmt.Errorf("%w: entry %q offset %d%+d",
				ErrOffsetOverflow, entries[i].Name, entries[i].LocalHeaderOffset, delta)
		}
		entries[i].LocalHeaderOffset = v
	}
	dirOffset, ok := binutil.AddUint32(a.eocd.DirOffset, delta)
	if !ok {
		return nil, fmt.Errorf("%w: directory offset %d%+d",
			ErrOffsetOverflow, a.eocd.DirOffset, delta)
	}

	data := bytes.Clone(a.data)
	for i := range entries {
		binutil.PutU32LE(data, entries[i].headerOffset+42, entries[i].LocalHeaderOffset)
	}
	binutil.PutU32LE(data, a.eocdOffset+16, dirOffset)

	eocd := a.eocd
	eocd.DirOffset = dirOffset

	return &Archive{
		data:       data,
		eocd:       eocd,
		eocdOffset: a.eocdOffset,
		entries:    entries,
		dirPos:     a.dirPos,
		rebased:    delta != 0,
	}, nil
}

// VerifyOffsets checks that every directory entry's declared offset points
// at a local header carrying the same name, i.e. that the offsets are
// anchored to the archive's own start. It returns ErrOffsetMismatch naming
// the first entry whose offset does not resolve.
func (a *Archive) VerifyOffsets() error {
	for _, e := range a.entries {
		off := int(e.LocalHeaderOffset)
		if off < 0 || off+localHeaderLen > len(a.data) {
			return fmt.Errorf("%w: %q at %d", ErrOffsetMismatch, e.Name, e.LocalHeaderOffset)
		}
		if binutil.U32LE(a.data, off) != localHeaderSig {
			return fmt.Errorf("%w: %q at %d", ErrOffsetMismatch, e.Name, e.LocalHeaderOffset)
		}
		nameLen := int(binutil.U16LE(a.data, off+26))
		if off+localHeaderLen+nameLen > len(a.data) {
			return fmt.Errorf("%w: %q at %d", ErrOffsetMismatch, e.Name, e.LocalHeaderOffset)
		}
		if string(a.data[off+localHeaderLen:off+localHeaderLen+nameLen]) != e.Name {
			return fmt.Errorf("%w: %q at %d", ErrOffsetMismatch, e.Name, e.LocalHeaderOffset)
		}
	}
	return nil
}

// OffsetsAnchored reports whether VerifyOffsets succeeds.
func (a *Archive) OffsetsAnchored() bool {
	return a.VerifyOffsets() == nil
}

// ParseEmbedded parses an archive that occupies data[start:...], bounded by
// its own trailer. The embedded directory offsets may be anchored either to
// the archive's first byte (parasitic embeddings) or to the enclosing file
// (after a creation-time rebase); in the latter case the returned archive
// has the shift undone, so its bytes equal the pre-embedding original.
// shifted reports which case was found.
func ParseEmbedded(data []byte, start int) (a *Archive, shifted bool, err error) {
	if start < 0 || start > len(data) {
		return nil, false, fmt.Errorf("%w: embed offset %d", ErrTruncated, start)
	}
	slice := data[start:]
	if len(slice) < 4 || binutil.U32LE(slice, 0) != localHeaderSig {
		return nil, false, ErrBadSignature
	}

	eocdOffset, eocd, err := findEOCD(slice)
	if err != nil {
		return nil, false, err
	}
	if err := checkZip64(eocd); err != nil {
		return nil, false, err
	}

	sub := bytes.Clone(slice[:eocdOffset+eocdLen+int(eocd.CommentLen)])

	// Self-anchored: the declared directory offset lands on a directory
	// record inside the slice.
	dirPos := int(eocd.DirOffset)
	if dirPos+centralHeaderLen <= len(sub) && binutil.U32LE(sub, dirPos) == centralHeaderSig {
		arch, err := Parse(sub)
		return arch, false, err
	}

	// File-anchored: offsets carry the embedding shift; undo it.
	dirPos = int(eocd.DirOffset) - start
	if dirPos < 0 || dirPos+centralHeaderLen > len(sub) ||
		binutil.U32LE(sub, dirPos) != centralHeaderSig {
		return nil, false, fmt.Errorf("%w: directory not at declared offset", ErrTrailerNotFound)
	}
	entries, err := readEntries(sub, dirPos, int(eocd.TotalEntries))
	if err != nil {
		return nil, false, err
	}

	arch := &Archive{
		data:       sub,
		eocd:       eocd,
		eocdOffset: eocdOffset,
		entries:    entries,
		dirPos:     dirPos,
	}
	restored, err := arch.Rebase(int64(-start))
	if err != nil {
		return nil, false, err
	}
	restored.rebased = false
	return restored, true, nil
}

// entryDataBounds returns the byte range of an entry's stored data given a
// self-anchored archive.
func (a *Archive) entryDataBounds(e Entry) (startOff, endOff int, err error) {
	off := int(e.LocalHeaderOffset)
	if off < 0 || off+localHeaderLen > len(a.data) {
		return 0, 0, fmt.Errorf("%w: local header of %q", ErrTruncated, e.Name)
	}
	if binutil.U32LE(a.data, off) != localHeaderSig {
		return 0, 0, fmt.Errorf("%w: local header of %q", ErrBadSignature, e.Name)
	}
	nameLen := int(binutil.U16LE(a.data, off+26))
	extraLen := int(binutil.U16LE(a.data, off+28))
	startOff = off + localHeaderLen + nameLen + extraLen
	endOff = startOff + int(e.CompressedSize)
	if endOff > len(a.data) {
		return 0, 0, fmt.Errorf("%w: data of %q", ErrTruncated, e.Name)
	}
	return startOff, endOff, nil
}

// EntryData returns the stored (still compressed, if applicable) bytes of
// the named entry.
func (a *Archive) EntryData(name string) ([]byte, error) {
	for _, e := range a.entries {
		if e.Name != name {
			continue
		}
		start, end, err := a.entryDataBounds(e)
		if err != nil {
			return nil, err
		}
		return a.data[start:end], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, name)
}
