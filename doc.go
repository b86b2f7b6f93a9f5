// Package polyglot creates and dissects files that are valid in two
// container formats at once, most importantly PNG+ZIP: a single byte
// sequence that an image decoder reads as a PNG and an archive tool reads
// as a ZIP.
//
// The hard part is that the two formats police different invariants over
// the same bytes. PNG chunks carry CRCs over their payloads, so any byte
// smuggled into a chunk forces a checksum rewrite. ZIP directory entries
// carry absolute offsets to their local headers, so relocating the archive
// inside another file forces an offset rewrite. [Create] maintains both at
// once under three interchangeable strategies, and [Extract] inverts them
// to recover the embedded payload byte-exact.
//
// # Quick start
//
// Embed an archive in an image and get it back:
//
//	out, err := polyglot.Create(imageBytes, archiveBytes)
//	if err != nil {
//	    return err
//	}
//	payload, err := polyglot.Extract(out)
//	// payload.Data == archiveBytes
//
// Pick a different embedding strategy:
//
//	out, err := polyglot.Create(imageBytes, archiveBytes,
//	    polyglot.WithStrategy(polyglot.StrategyImageData),
//	)
//
// [Validate] reports both format interpretations of a candidate file
// independently, so a reader can tell "not a polyglot at all" apart from
// "outer is fine, embedded payload is corrupt".
//
// The format mechanics live in the subpackages: [png] for the checksummed
// chunk stream, [zip] for the offset-indexed archive, [riff] and [flac]
// for the audio sibling formats.
package polyglot
