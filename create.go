package polyglot

import (
	"fmt"

	"github.com/meigma/polyglot/flac"
	"github.com/meigma/polyglot/png"
	"github.com/meigma/polyglot/riff"
	"github.com/meigma/polyglot/zip"
)

// Create grafts an archive into an image (or the image into a fresh
// archive) and returns the polyglot byte sequence. Both inputs are parsed
// up front, so a malformed input fails before any bytes are assembled and
// the caller never sees partial output.
//
// The default strategy wraps the archive verbatim in a tEXt chunk; see
// [Strategy] for the alternatives and their trade-offs.
func Create(image, archive []byte, opts ...CreateOption) ([]byte, error) {
	cfg := newCreateConfig(opts)

	img, err := png.Parse(image)
	if err != nil {
		return nil, fmt.Errorf("parse image: %w", err)
	}
	arc, err := zip.Parse(archive)
	if err != nil {
		return nil, fmt.Errorf("parse archive: %w", err)
	}

	log := cfg.log().With("strategy", string(cfg.strategy))
	switch cfg.strategy {
	case StrategyChunk:
		out, err := createChunk(cfg, img, arc)
		if err != nil {
			return nil, err
		}
		log.Debug("created polyglot", "bytes", len(out))
		return out, nil
	case StrategyImageData:
		out, err := createImageData(img, arc)
		if err != nil {
			return nil, err
		}
		log.Debug("created polyglot", "bytes", len(out))
		return out, nil
	case StrategyArchive:
		out, err := zip.BuildSingleEntry(cfg.entryName, image)
		if err != nil {
			return nil, err
		}
		log.Debug("created polyglot", "bytes", len(out))
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.strategy)
	}
}

// createChunk wraps the archive whole as the payload of a new tEXt chunk
// before IEND. The archive's internal offsets stay anchored to its own
// start and the chunk payload is read back verbatim, so no offset patch is
// needed; this is the lowest-risk strategy.
func createChunk(cfg *createConfig, img *png.File, arc *zip.Archive) ([]byte, error) {
	out, err := img.InsertBeforeEnd(png.TypeTEXT, png.TextPayload(cfg.keyword, arc.Bytes()))
	if err != nil {
		return nil, err
	}
	return out.Encode(), nil
}

// createImageData appends the archive to the first IDAT chunk's payload.
// The archive lands at a known absolute offset inside the output, so its
// directory offsets are rebased by exactly that amount first; the result
// is a file that archive tools accept end-to-end, not just a hidden blob.
func createImageData(img *png.File, arc *zip.Archive) ([]byte, error) {
	idat, ok := img.FindFirst(png.TypeIDAT)
	if !ok {
		return nil, fmt.Errorf("%w: %s", png.ErrChunkNotFound, png.TypeIDAT)
	}

	// The appended archive starts where the current IDAT payload ends.
	shift := idat.DataOffset + len(idat.Data)
	rebased, err := arc.Rebase(int64(shift))
	if err != nil {
		return nil, err
	}

	out, err := img.AppendToFirst(png.TypeIDAT, rebased.Bytes())
	if err != nil {
		return nil, err
	}
	return out.Encode(), nil
}

// CreateWAV builds a PNG+WAV polyglot. With imageDominant the audio bytes
// ride inside the image's first IDAT chunk; otherwise the image rides in a
// custom RIFF chunk appended after the audio data, leaving playback
// untouched.
func CreateWAV(image, audio []byte, imageDominant bool) ([]byte, error) {
	img, err := png.Parse(image)
	if err != nil {
		return nil, fmt.Errorf("parse image: %w", err)
	}
	wav, err := riff.Parse(audio)
	if err != nil {
		return nil, fmt.Errorf("parse audio: %w", err)
	}

	if imageDominant {
		out, err := img.AppendToFirst(png.TypeIDAT, audio)
		if err != nil {
			return nil, err
		}
		return out.Encode(), nil
	}

	out, err := wav.EmbedChunk(riff.FourCCImage, image)
	if err != nil {
		return nil, err
	}
	return out.Encode(), nil
}

// CreateFLAC hides the image inside the audio's first sufficiently large
// PADDING block. No offsets move, but the input must already carry enough
// padding; flac.ErrNoPadding reports when it does not.
func CreateFLAC(audio, image []byte) ([]byte, error) {
	f, err := flac.Parse(audio)
	if err != nil {
		return nil, fmt.Errorf("parse audio: %w", err)
	}
	if _, err := png.Parse(image); err != nil {
		return nil, fmt.Errorf("parse image: %w", err)
	}

	out, err := f.InjectIntoPadding(image)
	if err != nil {
		return nil, err
	}
	return out.Encode(), nil
}
