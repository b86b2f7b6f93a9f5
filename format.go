package polyglot

import (
	"bytes"

	"github.com/meigma/polyglot/png"
)

// Format identifies a container format by its leading signature.
type Format int

const (
	FormatUnknown Format = iota
	FormatPNG
	FormatZIP
	FormatWAV
	FormatFLAC
)

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatZIP:
		return "zip"
	case FormatWAV:
		return "wav"
	case FormatFLAC:
		return "flac"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler for report output.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Leading signatures of the supported formats. They are pairwise disjoint,
// so dominance detection cannot be ambiguous.
var (
	zipSignature  = []byte{'P', 'K', 0x03, 0x04}
	riffSignature = []byte{'R', 'I', 'F', 'F'}
	flacSignature = []byte{'f', 'L', 'a', 'C'}
)

// DetectDominant classifies a buffer by the format signature at byte zero.
// Whatever follows the signature is irrelevant: dominance is purely about
// which parser must run first.
func DetectDominant(data []byte) Format {
	switch {
	case len(data) >= len(png.Signature) && bytes.Equal(data[:len(png.Signature)], png.Signature[:]):
		return FormatPNG
	case len(data) >= 4 && bytes.Equal(data[:4], zipSignature):
		return FormatZIP
	case len(data) >= 4 && bytes.Equal(data[:4], riffSignature):
		return FormatWAV
	case len(data) >= 4 && bytes.Equal(data[:4], flacSignature):
		return FormatFLAC
	default:
		return FormatUnknown
	}
}

// indexAfter returns the absolute offset of the first occurrence of sig at
// or after start, or -1.
func indexAfter(data, sig []byte, start int) int {
	if start >= len(data) {
		return -1
	}
	i := bytes.Index(data[start:], sig)
	if i < 0 {
		return -1
	}
	return start + i
}
