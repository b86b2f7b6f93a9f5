// Package flac implements the FLAC metadata block layout, enough to hide a
// foreign payload inside a PADDING block without moving a single byte of
// the surrounding file.
//
// A FLAC file is the fLaC signature, a STREAMINFO block, further metadata
// blocks until one carries the last-block flag, then audio frames. PADDING
// blocks are structurally inert, so rewriting their body in place keeps
// every other block and the frame data at its original offset.
package flac

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// signature is the fixed 4-byte FLAC prefix.
var signature = [4]byte{'f', 'L', 'a', 'C'}

// blockHeaderLen is the type/last-flag byte plus the 24-bit length.
const blockHeaderLen = 4

// streamInfoLen is the fixed size of a STREAMINFO block body.
const streamInfoLen = 34

// Sentinel errors for FLAC parsing and embedding.
var (
	// ErrBadSignature is returned when the fLaC prefix is absent.
	ErrBadSignature = errors.New("flac: bad signature")

	// ErrTruncated is returned when a block extends past the buffer.
	ErrTruncated = errors.New("flac: truncated metadata block")

	// ErrNoPadding is returned when no PADDING block can hold the payload.
	ErrNoPadding = errors.New("flac: no padding block large enough")
)

// BlockType identifies a metadata block kind.
type BlockType uint8

// Metadata block kinds. Anything else parses as an opaque block carrying
// its raw bytes.
const (
	BlockStreamInfo    BlockType = 0
	BlockPadding       BlockType = 1
	BlockApplication   BlockType = 2
	BlockSeekTable     BlockType = 3
	BlockVorbisComment BlockType = 4
	BlockCuesheet      BlockType = 5
	BlockPicture       BlockType = 6
)

func (t BlockType) String() string {
	switch t {
	case BlockStreamInfo:
		return "STREAMINFO"
	case BlockPadding:
		return "PADDING"
	case BlockApplication:
		return "APPLICATION"
	case BlockSeekTable:
		return "SEEKTABLE"
	case BlockVorbisComment:
		return "VORBIS_COMMENT"
	case BlockCuesheet:
		return "CUESHEET"
	case BlockPicture:
		return "PICTURE"
	default:
		return fmt.Sprintf("RESERVED(%d)", uint8(t))
	}
}

// Block is one metadata block body with its kind. The last-block flag is
// not stored; Encode derives it from position.
type Block struct {
	Type BlockType
	Data []byte
}

// StreamInfo is the decoded STREAMINFO block.
type StreamInfo struct {
	MinBlockSize  uint16
	MaxBlockSize  uint16
	MinFrameSize  uint32
	MaxFrameSize  uint32
	SampleRate    uint32
	Channels      uint8
	BitsPerSample uint8
	TotalSamples  uint64
	MD5           [16]byte
}

// File is a parsed FLAC file: metadata blocks plus the audio frames kept
// verbatim so Encode round-trips the whole file.
type File struct {
	blocks []Block
	frames []byte
}

// Parse reads the signature and metadata blocks, retaining everything
// after the last metadata block untouched.
func Parse(data []byte) (*File, error) {
	if len(data) < len(signature) || !bytes.Equal(data[:4], signature[:]) {
		return nil, ErrBadSignature
	}

	var blocks []Block
	off := len(signature)
	for {
		if off+blockHeaderLen > len(data) {
			return nil, fmt.Errorf("%w: header at %d", ErrTruncated, off)
		}
		last := data[off]&0x80 != 0
		typ := BlockType(data[off] & 0x7f)
		length := int(data[off+1])<<16 | int(data[off+2])<<8 | int(data[off+3])

		start := off + blockHeaderLen
		if length > len(data)-start {
			return nil, fmt.Errorf("%w: %s declares %d bytes, %d remain",
				ErrTruncated, typ, length, len(data)-start)
		}
		blocks = append(blocks, Block{Type: typ, Data: bytes.Clone(data[start : start+length])})
		off = start + length

		if last {
			break
		}
	}

	if blocks[0].Type != BlockStreamInfo || len(blocks[0].Data) != streamInfoLen {
		return nil, fmt.Errorf("%w: first block must be STREAMINFO", ErrTruncated)
	}

	return &File{blocks: blocks, frames: bytes.Clone(data[off:])}, nil
}

// Blocks returns the metadata blocks in on-disk order; read-only.
func (f *File) Blocks() []Block { return f.blocks }

// StreamInfo decodes the mandatory first block.
func (f *File) StreamInfo() StreamInfo {
	d := f.blocks[0].Data
	packed := binary.BigEndian.Uint64(d[10:18])
	return StreamInfo{
		MinBlockSize:  binary.BigEndian.Uint16(d[0:2]),
		MaxBlockSize:  binary.BigEndian.Uint16(d[2:4]),
		MinFrameSize:  uint32(d[4])<<16 | uint32(d[5])<<8 | uint32(d[6]),
		MaxFrameSize:  uint32(d[7])<<16 | uint32(d[8])<<8 | uint32(d[9]),
		SampleRate:    uint32(packed >> 44),
		Channels:      uint8(packed>>41&0x7) + 1,
		BitsPerSample: uint8(packed>>36&0x1f) + 1,
		TotalSamples:  packed & 0xfffffffff,
		MD5:           [16]byte(d[18:34]),
	}
}

// InjectIntoPadding returns a new file whose first PADDING block large
// enough for payload holds it, zero-filled to the block's original length.
// Block lengths never change, so no offset in the file moves.
func (f *File) InjectIntoPadding(payload []byte) (*File, error) {
	idx := -1
	for i, b := range f.blocks {
		if b.Type == BlockPadding && len(b.Data) >= len(payload) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: need %d bytes", ErrNoPadding, len(payload))
	}

	blocks := make([]Block, len(f.blocks))
	copy(blocks, f.blocks)
	body := make([]byte, len(blocks[idx].Data))
	copy(body, payload)
	blocks[idx].Data = body

	return &File{blocks: blocks, frames: f.frames}, nil
}

// Encode serializes the file. The last-block flag is set on the final
// metadata block regardless of how the blocks were assembled.
func (f *File) Encode() []byte {
	size := len(signature) + len(f.frames)
	for _, b := range f.blocks {
		size += blockHeaderLen + len(b.Data)
	}

	out := make([]byte, 0, size)
	out = append(out, signature[:]...)
	for i, b := range f.blocks {
		head := byte(b.Type)
		if i == len(f.blocks)-1 {
			head |= 0x80
		}
		out = append(out, head,
			byte(len(b.Data)>>16), byte(len(b.Data)>>8), byte(len(b.Data)))
		out = append(out, b.Data...)
	}
	return append(out, f.frames...)
}
