package polyglot

import (
	"bytes"
	"fmt"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/polyglot/flac"
	"github.com/meigma/polyglot/png"
	"github.com/meigma/polyglot/riff"
	"github.com/meigma/polyglot/zip"
)

// Payload is an embedded byte sequence recovered by Extract.
type Payload struct {
	// Format identifies what the payload parses as.
	Format Format

	// Data holds the payload, restored to a standalone file. Archives
	// whose offsets were rebased at embed time are shifted back, so Data
	// is byte-identical to the original input when Exact holds.
	Data []byte

	// Offset is where the payload began in the polyglot file.
	Offset int

	// Exact reports whether Data was bounded by the payload's own
	// structure. When false, Data runs to the end of the polyglot file
	// and may carry trailing bytes the inner format ignores.
	Exact bool

	// Digest fingerprints Data.
	Digest digest.Digest
}

// Extract recovers the embedded payload from a polyglot file. The
// dominant format decides where to look: image containers are searched
// for audio then archive payloads, archives for an image entry, and audio
// containers for their image chunk or padding block.
func Extract(data []byte) (*Payload, error) {
	switch DetectDominant(data) {
	case FormatPNG:
		return extractFromPNG(data)
	case FormatZIP:
		return extractFromZIP(data)
	case FormatWAV:
		return extractFromWAV(data)
	case FormatFLAC:
		return extractFromFLAC(data)
	default:
		return nil, ErrUnknownFormat
	}
}

func extractFromPNG(data []byte) (*Payload, error) {
	img, err := png.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse outer image: %w", err)
	}

	// Chunk-strategy payloads live in a tEXt chunk and need no scanning.
	if p, ok := textPayload(img); ok {
		return p, nil
	}

	// Audio before archive: the RIFF tag is unambiguous, while an archive
	// probe could misread unrelated bytes.
	if off := indexAfter(data, riffSignature, len(png.Signature)); off >= 0 {
		if n, err := riff.Bound(data[off:]); err == nil && off+n <= len(data) {
			if _, err := riff.Parse(data[off : off+n]); err == nil {
				return newPayload(FormatWAV, bytes.Clone(data[off:off+n]), off, true), nil
			}
		}
	}

	start := innerZipStart(data)
	arc, shifted, err := zip.ParseEmbedded(data, start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadNotFound, err)
	}
	if shifted || arc.OffsetsAnchored() {
		return newPayload(FormatZIP, arc.Bytes(), start, true), nil
	}
	// The archive's offsets anchor to neither itself nor the file, so its
	// true extent is unknowable; hand back everything from the first
	// local header onward.
	return newPayload(FormatZIP, bytes.Clone(data[start:]), start, false), nil
}

func extractFromZIP(data []byte) (*Payload, error) {
	if _, err := zip.Parse(data); err != nil {
		return nil, fmt.Errorf("parse outer archive: %w", err)
	}

	off := bytes.Index(data, png.Signature[:])
	if off < 0 {
		return nil, ErrPayloadNotFound
	}
	img, err := png.Parse(data[off:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadNotFound, err)
	}
	n := img.EncodedLen()
	return newPayload(FormatPNG, bytes.Clone(data[off:off+n]), off, true), nil
}

func extractFromWAV(data []byte) (*Payload, error) {
	wav, err := riff.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse outer audio: %w", err)
	}
	payload, ok := wav.Chunk(riff.FourCCImage)
	if !ok {
		return nil, ErrPayloadNotFound
	}
	if _, err := png.Parse(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadNotFound, err)
	}
	off := bytes.Index(data, payload)
	return newPayload(FormatPNG, bytes.Clone(payload), off, true), nil
}

func extractFromFLAC(data []byte) (*Payload, error) {
	f, err := flac.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse outer audio: %w", err)
	}
	payload, ok := paddedPNG(f)
	if !ok {
		return nil, ErrPayloadNotFound
	}
	off := bytes.Index(data, payload)
	return newPayload(FormatPNG, bytes.Clone(payload), off, true), nil
}

// textPayload recovers an archive stored by the chunk strategy. Only tEXt
// payloads that parse as archives qualify; ordinary metadata text is
// skipped.
func textPayload(img *png.File) (*Payload, bool) {
	for _, c := range img.Chunks() {
		if c.Type != png.TypeTEXT {
			continue
		}
		_, body, ok := png.SplitText(c.Data)
		if !ok {
			continue
		}
		if _, err := zip.Parse(body); err != nil {
			continue
		}
		off := c.DataOffset + (len(c.Data) - len(body))
		return newPayload(FormatZIP, bytes.Clone(body), off, true), true
	}
	return nil, false
}

// innerZipStart locates where an embedded archive's bytes begin: the first
// local header signature after the image signature, or 0 when none exists
// so the trailer scan still gets a chance to report a precise failure.
func innerZipStart(data []byte) int {
	if off := indexAfter(data, zipSignature, len(png.Signature)); off >= 0 {
		return off
	}
	return 0
}

func newPayload(f Format, data []byte, off int, exact bool) *Payload {
	p := &Payload{
		Format: f,
		Data:   data,
		Exact:  exact,
		Digest: digest.FromBytes(data),
	}
	if off >= 0 {
		p.Offset = off
	}
	return p
}
