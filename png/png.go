// Package png implements parsing and rebuilding of PNG chunk streams.
//
// A PNG file is the fixed 8-byte signature followed by length-prefixed,
// CRC-protected chunks. The package verifies every stored CRC on parse and
// recomputes them on encode, so a cached checksum is never trusted after a
// chunk's payload changes. Mutating operations are transforms: they return a
// new [File] with all chunk offsets recomputed rather than editing in place.
package png

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/meigma/polyglot/internal/binutil"
)

// Signature is the fixed 8-byte prefix of every PNG file.
var Signature = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// chunkOverhead is the length field, type tag, and CRC surrounding a
// chunk's payload.
const chunkOverhead = 12

// Sentinel errors for PNG parsing and rebuilding.
var (
	// ErrBadSignature is returned when the 8-byte PNG prefix is absent.
	ErrBadSignature = errors.New("png: bad signature")

	// ErrTruncated is returned when a declared chunk length exceeds the
	// remaining bytes.
	ErrTruncated = errors.New("png: truncated chunk stream")

	// ErrChecksumMismatch is returned when a chunk's stored CRC disagrees
	// with the recomputed one.
	ErrChecksumMismatch = errors.New("png: crc mismatch")

	// ErrChunkNotFound is returned when a required chunk type is absent.
	ErrChunkNotFound = errors.New("png: chunk not found")

	// ErrChunkTooLarge is returned when a chunk payload exceeds the 32-bit
	// length field.
	ErrChunkTooLarge = errors.New("png: chunk exceeds length field")
)

// ChunkType is a four-byte PNG chunk tag.
type ChunkType [4]byte

// Chunk types used by this module.
var (
	TypeIHDR = ChunkType{'I', 'H', 'D', 'R'}
	TypeIDAT = ChunkType{'I', 'D', 'A', 'T'}
	TypeIEND = ChunkType{'I', 'E', 'N', 'D'}
	TypeTEXT = ChunkType{'t', 'E', 'X', 't'}
)

func (t ChunkType) String() string { return string(t[:]) }

// Chunk is a single parsed chunk.
type Chunk struct {
	Type ChunkType

	// Data is the chunk payload without framing.
	Data []byte

	// CRC is the checksum over type tag and payload. It is kept current by
	// Parse and the File transforms; Encode recomputes it regardless.
	CRC uint32

	// DataOffset is the absolute byte offset of Data within the encoded
	// file, maintained across rebuilds.
	DataOffset int
}

// File is an ordered chunk sequence owning its payload bytes.
type File struct {
	chunks []Chunk

	// encodedLen is the byte length of the stream through the IEND CRC.
	// It bounds an embedded PNG byte-exactly during extraction.
	encodedLen int
}

// Checksum computes the CRC-32 over a chunk's type tag and payload.
func Checksum(typ ChunkType, data []byte) uint32 {
	crc := crc32.NewIEEE()
	crc.Write(typ[:])
	crc.Write(data)
	return crc.Sum32()
}

// Parse reads a chunk stream, verifying every stored CRC.
//
// Parsing stops at the first IEND chunk; bytes after it are ignored but
// counted out of [File.EncodedLen]. This is a deliberate boundary: trailing
// bytes belong to whatever was appended after the image, not to the image.
func Parse(data []byte) (*File, error) {
	if len(data) < len(Signature) || !bytes.Equal(data[:len(Signature)], Signature[:]) {
		return nil, ErrBadSignature
	}

	off := len(Signature)
	var chunks []Chunk
	for off+chunkOverhead <= len(data) {
		length := int(binutil.U32BE(data, off))
		var typ ChunkType
		copy(typ[:], data[off+4:off+8])

		dataStart := off + 8
		if length > len(data)-dataStart-4 {
			return nil, fmt.Errorf("%w: %s declares %d bytes, %d remain",
				ErrTruncated, typ, length, len(data)-dataStart-4)
		}
		dataEnd := dataStart + length

		body := data[dataStart:dataEnd]
		stored := binutil.U32BE(data, dataEnd)
		if sum := Checksum(typ, body); sum != stored {
			return nil, fmt.Errorf("%w: chunk %s", ErrChecksumMismatch, typ)
		}

		chunks = append(chunks, Chunk{
			Type:       typ,
			Data:       bytes.Clone(body),
			CRC:        stored,
			DataOffset: dataStart,
		})
		off = dataEnd + 4

		if typ == TypeIEND {
			break
		}
	}

	if len(chunks) == 0 || chunks[len(chunks)-1].Type != TypeIEND {
		return nil, fmt.Errorf("%w: no terminal IEND", ErrTruncated)
	}

	return &File{chunks: chunks, encodedLen: off}, nil
}

// Chunks returns the parsed chunks in order. The returned slice and its
// payloads alias the file and must be treated as read-only.
func (f *File) Chunks() []Chunk { return f.chunks }

// EncodedLen returns the byte length of the stream through the IEND CRC.
func (f *File) EncodedLen() int { return f.encodedLen }

// FindFirst returns the first chunk of the given type.
func (f *File) FindFirst(typ ChunkType) (Chunk, bool) {
	for _, c := range f.chunks {
		if c.Type == typ {
			return c, true
		}
	}
	return Chunk{}, false
}

// Encode serializes the file, recomputing every length and CRC from the
// current payloads.
func (f *File) Encode() []byte {
	size := len(Signature)
	for _, c := range f.chunks {
		size += chunkOverhead + len(c.Data)
	}

	out := make([]byte, 0, size)
	out = append(out, Signature[:]...)
	for _, c := range f.chunks {
		out = binutil.AppendU32BE(out, uint32(len(c.Data)))
		out = append(out, c.Type[:]...)
		out = append(out, c.Data...)
		out = binutil.AppendU32BE(out, Checksum(c.Type, c.Data))
	}
	return out
}

// AppendToFirst returns a new file whose first chunk of the given type has
// extra appended to its payload. Every following chunk's offset shifts even
// though its content is untouched, so the whole chunk list is rebuilt.
func (f *File) AppendToFirst(typ ChunkType, extra []byte) (*File, error) {
	idx := -1
	for i, c := range f.chunks {
		if c.Type == typ {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, typ)
	}
	if len(f.chunks[idx].Data)+len(extra) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %s", ErrChunkTooLarge, typ)
	}

	chunks := cloneChunks(f.chunks)
	grown := make([]byte, 0, len(chunks[idx].Data)+len(extra))
	grown = append(grown, chunks[idx].Data...)
	grown = append(grown, extra...)
	chunks[idx].Data = grown

	return rebuild(chunks), nil
}

// InsertBeforeEnd returns a new file with a fresh chunk spliced in
// immediately before the terminal IEND chunk.
func (f *File) InsertBeforeEnd(typ ChunkType, data []byte) (*File, error) {
	if len(data) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %s", ErrChunkTooLarge, typ)
	}
	end := -1
	for i, c := range f.chunks {
		if c.Type == TypeIEND {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, TypeIEND)
	}

	chunks := make([]Chunk, 0, len(f.chunks)+1)
	chunks = append(chunks, cloneChunks(f.chunks[:end])...)
	chunks = append(chunks, Chunk{Type: typ, Data: bytes.Clone(data)})
	chunks = append(chunks, cloneChunks(f.chunks[end:])...)

	return rebuild(chunks), nil
}

// TextPayload builds a tEXt chunk payload: keyword, NUL separator, data.
func TextPayload(keyword string, data []byte) []byte {
	out := make([]byte, 0, len(keyword)+1+len(data))
	out = append(out, keyword...)
	out = append(out, 0)
	out = append(out, data...)
	return out
}

// SplitText splits a tEXt chunk payload into keyword and data. ok is false
// when the NUL separator is missing.
func SplitText(payload []byte) (keyword string, data []byte, ok bool) {
	i := bytes.IndexByte(payload, 0)
	if i < 0 {
		return "", nil, false
	}
	return string(payload[:i]), payload[i+1:], true
}

func cloneChunks(chunks []Chunk) []Chunk {
	out := make([]Chunk, len(chunks))
	copy(out, chunks)
	return out
}

// rebuild recomputes every chunk's offset and CRC after a payload change.
func rebuild(chunks []Chunk) *File {
	off := len(Signature)
	for i := range chunks {
		chunks[i].DataOffset = off + 8
		chunks[i].CRC = Checksum(chunks[i].Type, chunks[i].Data)
		off += chunkOverhead + len(chunks[i].Data)
	}
	return &File{chunks: chunks, encodedLen: off}
}
