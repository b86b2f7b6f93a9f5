package polyglot

import (
	"bytes"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/polyglot/flac"
	"github.com/meigma/polyglot/png"
	"github.com/meigma/polyglot/riff"
	"github.com/meigma/polyglot/zip"
)

// Status summarizes a validation report.
type Status string

const (
	// StatusValid means both the dominant and an embedded format parsed.
	StatusValid Status = "valid"
	// StatusInvalidOuter means the embedded payload is intact but the
	// dominant format did not parse.
	StatusInvalidOuter Status = "invalid-outer"
	// StatusInvalidInner means the dominant format parsed but no intact
	// embedded payload was found.
	StatusInvalidInner Status = "invalid-inner"
	// StatusInvalidBoth means neither interpretation parsed.
	StatusInvalidBoth Status = "invalid-both"
)

// FormatReport records one format's parse attempt. Err is nil on success;
// otherwise it holds the parse failure so callers can distinguish "absent"
// from "present but corrupt".
type FormatReport struct {
	Format Format `json:"format"`
	OK     bool   `json:"ok"`
	Err    error  `json:"-"`
	Detail string `json:"detail,omitempty"`
}

// Report is the outcome of Validate. Outer describes the dominant format
// and Inner the embedded one. Both parse attempts always run, even when
// the first fails, so a report carries both failure reasons.
type Report struct {
	Size  int          `json:"size"`
	Outer FormatReport `json:"outer"`
	Inner FormatReport `json:"inner"`

	// InnerOffset, InnerSize, and InnerDigest locate and fingerprint the
	// embedded payload when Inner.OK holds.
	InnerOffset int           `json:"inner_offset,omitempty"`
	InnerSize   int           `json:"inner_size,omitempty"`
	InnerDigest digest.Digest `json:"inner_digest,omitempty"`
}

// Status classifies the report.
func (r *Report) Status() Status {
	switch {
	case r.Outer.OK && r.Inner.OK:
		return StatusValid
	case r.Inner.OK:
		return StatusInvalidOuter
	case r.Outer.OK:
		return StatusInvalidInner
	default:
		return StatusInvalidBoth
	}
}

// Validate inspects data for polyglot structure. It never returns an
// error; every failure mode is captured inside the report, and an invalid
// report is a successful validation.
func Validate(data []byte) *Report {
	r := &Report{Size: len(data)}
	dom := DetectDominant(data)
	r.Outer = validateOuter(dom, data)
	r.validateInner(dom, data)
	return r
}

func validateOuter(dom Format, data []byte) FormatReport {
	var err error
	switch dom {
	case FormatPNG:
		_, err = png.Parse(data)
	case FormatZIP:
		_, err = zip.Parse(data)
	case FormatWAV:
		_, err = riff.Parse(data)
	case FormatFLAC:
		_, err = flac.Parse(data)
	default:
		return failure(FormatUnknown, ErrUnknownFormat)
	}
	if err != nil {
		return failure(dom, err)
	}
	return success(dom)
}

// validateInner locates and parses the embedded format independently of
// the outer verdict, so a corrupt outer with an intact payload is still
// reported as such. Signature probes run in a fixed order; the dominant
// format is skipped since it cannot be its own payload.
func (r *Report) validateInner(dom Format, data []byte) {
	start := outerHeaderLen(dom)

	// Container-aware paths first: an intact WAV names its image chunk and
	// an intact FLAC bounds its padding, no scanning needed.
	if dom == FormatWAV {
		if wav, err := riff.Parse(data); err == nil {
			r.innerFromWAV(data, wav)
			return
		}
	}
	if dom == FormatFLAC {
		if f, err := flac.Parse(data); err == nil {
			if payload, ok := paddedPNG(f); ok {
				r.Inner = success(FormatPNG)
				r.locateInner(data, payload)
				return
			}
			r.Inner = failure(FormatPNG, ErrPayloadNotFound)
			return
		}
	}

	if dom != FormatPNG {
		if off := indexAfter(data, png.Signature[:], start); off >= 0 {
			img, err := png.Parse(data[off:])
			if err != nil {
				r.Inner = failure(FormatPNG, err)
				return
			}
			r.Inner = success(FormatPNG)
			r.recordInner(data, off, img.EncodedLen())
			return
		}
	}

	if dom != FormatWAV {
		if off := indexAfter(data, riffSignature, start); off >= 0 {
			if n, err := riff.Bound(data[off:]); err == nil && off+n <= len(data) {
				if _, err := riff.Parse(data[off : off+n]); err == nil {
					r.Inner = success(FormatWAV)
					r.recordInner(data, off, n)
					return
				}
			}
		}
	}

	if dom != FormatZIP {
		if off := indexAfter(data, zipSignature, start); off >= 0 {
			arc, _, err := zip.ParseEmbedded(data, off)
			if err != nil {
				r.Inner = failure(FormatZIP, err)
				return
			}
			// ParseEmbedded anchors the directory, not the entries; an
			// entry whose offset no longer lands on its local header is a
			// structural failure of the embedded archive.
			if err := arc.VerifyOffsets(); err != nil {
				r.Inner = failure(FormatZIP, err)
				return
			}
			r.Inner = success(FormatZIP)
			r.InnerOffset = off
			r.InnerSize = len(arc.Bytes())
			r.InnerDigest = digest.FromBytes(arc.Bytes())
			return
		}
	}

	r.Inner = failure(FormatUnknown, ErrPayloadNotFound)
}

func (r *Report) innerFromWAV(data []byte, wav *riff.File) {
	payload, ok := wav.Chunk(riff.FourCCImage)
	if !ok {
		r.Inner = failure(FormatPNG, ErrPayloadNotFound)
		return
	}
	if _, err := png.Parse(payload); err != nil {
		r.Inner = failure(FormatPNG, err)
		return
	}
	r.Inner = success(FormatPNG)
	r.locateInner(data, payload)
}

func (r *Report) recordInner(data []byte, off, size int) {
	r.InnerOffset = off
	r.InnerSize = size
	r.InnerDigest = digest.FromBytes(data[off : off+size])
}

// locateInner fingerprints a payload recovered through a container walk,
// finding its position in the enclosing file by content.
func (r *Report) locateInner(data, payload []byte) {
	if off := bytes.Index(data, payload); off >= 0 {
		r.InnerOffset = off
	}
	r.InnerSize = len(payload)
	r.InnerDigest = digest.FromBytes(payload)
}

func success(f Format) FormatReport {
	return FormatReport{Format: f, OK: true}
}

func failure(f Format, err error) FormatReport {
	fr := FormatReport{Format: f, Err: err}
	if err != nil {
		fr.Detail = err.Error()
	}
	return fr
}

// outerHeaderLen is how many leading bytes belong to the dominant format's
// magic; the inner search starts past them. An unrecognized (possibly
// corrupted) magic still leaves everything past the first byte searchable.
func outerHeaderLen(dom Format) int {
	switch dom {
	case FormatPNG:
		return len(png.Signature)
	case FormatZIP, FormatWAV, FormatFLAC:
		return 4
	default:
		return 1
	}
}

// paddedPNG recovers an image hidden in a PADDING block, trimmed to its
// encoded length so trailing pad zeros are not part of the payload.
func paddedPNG(f *flac.File) ([]byte, bool) {
	for _, b := range f.Blocks() {
		if b.Type != flac.BlockPadding {
			continue
		}
		img, err := png.Parse(b.Data)
		if err != nil {
			continue
		}
		return b.Data[:img.EncodedLen()], true
	}
	return nil, false
}
