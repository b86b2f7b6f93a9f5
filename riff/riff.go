// Package riff implements the RIFF chunk container as used by WAV files,
// enough to embed and recover a foreign payload in a custom chunk.
//
// RIFF shares the length-prefixed chunk pattern with PNG but uses
// little-endian sizes, no checksums, and a leading whole-file size field
// that must be kept in step when chunks are added.
package riff

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/meigma/polyglot/internal/binutil"
)

// headerLen is the RIFF tag, file size field, and WAVE form type.
const headerLen = 12

// chunkHeaderLen is a chunk's FourCC plus its size field.
const chunkHeaderLen = 8

// Sentinel errors for RIFF parsing and embedding.
var (
	// ErrBadSignature is returned when the RIFF prefix or WAVE form type
	// is absent.
	ErrBadSignature = errors.New("riff: bad signature")

	// ErrTruncated is returned when a declared size exceeds the remaining
	// bytes.
	ErrTruncated = errors.New("riff: truncated chunk")

	// ErrChunkNotFound is returned when a mandatory chunk is absent.
	ErrChunkNotFound = errors.New("riff: chunk not found")

	// ErrSizeOverflow is returned when growing the file would overflow the
	// 32-bit RIFF size field.
	ErrSizeOverflow = errors.New("riff: size overflows 32-bit field")
)

// FourCC is a four-character chunk identifier.
type FourCC [4]byte

func (f FourCC) String() string { return string(f[:]) }

// Chunk identifiers used by this module. FourCCImage is the custom chunk
// carrying an embedded image in audio-dominant polyglots.
var (
	tagRIFF = FourCC{'R', 'I', 'F', 'F'}
	tagWAVE = FourCC{'W', 'A', 'V', 'E'}

	FourCCFmt   = FourCC{'f', 'm', 't', ' '}
	FourCCData  = FourCC{'d', 'a', 't', 'a'}
	FourCCImage = FourCC{'p', 'n', 'G', ' '}
)

// Chunk is one RIFF chunk without framing.
type Chunk struct {
	ID   FourCC
	Data []byte
}

// File is a parsed WAV file: the chunk list in on-disk order, with the
// mandatory fmt and data chunks verified present.
type File struct {
	chunks []Chunk
}

// Bound returns the total byte length a RIFF file starting at data[0]
// declares for itself: the header plus its leading size field. It bounds an
// embedded WAV byte-exactly during extraction.
func Bound(data []byte) (int, error) {
	if len(data) < headerLen || !bytes.Equal(data[:4], tagRIFF[:]) {
		return 0, ErrBadSignature
	}
	total := int(binutil.U32LE(data, 4)) + 8
	if total > len(data) {
		return 0, fmt.Errorf("%w: declares %d bytes, %d present", ErrTruncated, total, len(data))
	}
	return total, nil
}

// Parse reads a WAV file, bounded by its own declared size so trailing
// foreign bytes are tolerated.
func Parse(data []byte) (*File, error) {
	total, err := Bound(data)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(data[8:12], tagWAVE[:]) {
		return nil, fmt.Errorf("%w: not a WAVE form", ErrBadSignature)
	}
	data = data[:total]

	var chunks []Chunk
	off := headerLen
	for off+chunkHeaderLen <= len(data) {
		var id FourCC
		copy(id[:], data[off:off+4])
		size := int(binutil.U32LE(data, off+4))

		start := off + chunkHeaderLen
		if size > len(data)-start {
			return nil, fmt.Errorf("%w: %s declares %d bytes, %d remain",
				ErrTruncated, id, size, len(data)-start)
		}
		chunks = append(chunks, Chunk{ID: id, Data: bytes.Clone(data[start : start+size])})

		// Chunk bodies are word-aligned.
		off = start + size + size%2
	}

	f := &File{chunks: chunks}
	for _, id := range []FourCC{FourCCFmt, FourCCData} {
		if _, ok := f.Chunk(id); !ok {
			return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, id)
		}
	}
	return f, nil
}

// Chunks returns the chunk list in on-disk order; read-only.
func (f *File) Chunks() []Chunk { return f.chunks }

// Chunk returns the payload of the first chunk with the given identifier.
func (f *File) Chunk(id FourCC) ([]byte, bool) {
	for _, c := range f.chunks {
		if c.ID == id {
			return c.Data, true
		}
	}
	return nil, false
}

// EmbedChunk returns a new file with a chunk appended after the existing
// ones, growing the declared RIFF size. Appending after the audio data
// keeps every player-visible offset unchanged.
func (f *File) EmbedChunk(id FourCC, payload []byte) (*File, error) {
	if len(payload) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %s payload", ErrSizeOverflow, id)
	}
	grown := uint64(f.encodedSize()) + uint64(chunkHeaderLen+len(payload)+len(payload)%2)
	if grown-8 > math.MaxUint32 {
		return nil, fmt.Errorf("%w: file size", ErrSizeOverflow)
	}

	chunks := make([]Chunk, 0, len(f.chunks)+1)
	chunks = append(chunks, f.chunks...)
	chunks = append(chunks, Chunk{ID: id, Data: bytes.Clone(payload)})
	return &File{chunks: chunks}, nil
}

// Encode serializes the file, recomputing the declared RIFF size and
// word-aligning every chunk body.
func (f *File) Encode() []byte {
	size := f.encodedSize()
	out := make([]byte, 0, size)
	out = append(out, tagRIFF[:]...)
	out = binutil.AppendU32LE(out, uint32(size-8))
	out = append(out, tagWAVE[:]...)
	for _, c := range f.chunks {
		out = append(out, c.ID[:]...)
		out = binutil.AppendU32LE(out, uint32(len(c.Data)))
		out = append(out, c.Data...)
		if len(c.Data)%2 == 1 {
			out = append(out, 0)
		}
	}
	return out
}

func (f *File) encodedSize() int {
	size := headerLen
	for _, c := range f.chunks {
		size += chunkHeaderLen + len(c.Data) + len(c.Data)%2
	}
	return size
}
