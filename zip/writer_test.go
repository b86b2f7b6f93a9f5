package zip

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	t.Parallel()

	t.Run("stored entries round trip", func(t *testing.T) {
		t.Parallel()
		w := NewWriter()
		require.NoError(t, w.AddStored("a.txt", []byte("first")))
		require.NoError(t, w.AddStored("b.txt", []byte("second")))

		out, err := w.Finish()
		require.NoError(t, err)

		a := mustParse(t, out)
		require.Len(t, a.Entries(), 2)
		assert.True(t, a.OffsetsAnchored())

		got, err := a.EntryData("a.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), got)
		got, err = a.EntryData("b.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), got)
	})

	t.Run("compressible data deflates", func(t *testing.T) {
		t.Parallel()
		w := NewWriter()
		data := bytes.Repeat([]byte("abcdefgh"), 512)
		require.NoError(t, w.Add("rep.bin", data))

		out, err := w.Finish()
		require.NoError(t, err)

		a := mustParse(t, out)
		require.Len(t, a.Entries(), 1)
		e := a.Entries()[0]
		assert.Equal(t, uint16(MethodDeflate), e.Method)
		assert.Less(t, int(e.CompressedSize), len(data))
		assert.Equal(t, uint32(len(data)), e.UncompressedSize)
	})

	t.Run("incompressible data stays stored", func(t *testing.T) {
		t.Parallel()
		// A short unique string only grows under deflate.
		w := NewWriter()
		require.NoError(t, w.Add("tiny", []byte{0x01}))

		out, err := w.Finish()
		require.NoError(t, err)

		a := mustParse(t, out)
		require.Len(t, a.Entries(), 1)
		assert.Equal(t, uint16(MethodStored), a.Entries()[0].Method)
	})

	t.Run("empty archive", func(t *testing.T) {
		t.Parallel()
		out, err := NewWriter().Finish()
		require.NoError(t, err)
		// Nothing but a trailer; the leading byte is not a local header,
		// so this is not parseable as an embeddable archive.
		assert.Len(t, out, eocdLen)
	})
}

func TestBuildSingleEntry(t *testing.T) {
	t.Parallel()

	payload := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00, 0x01}
	out, err := BuildSingleEntry("image.png", payload)
	require.NoError(t, err)

	a := mustParse(t, out)
	require.Len(t, a.Entries(), 1)
	assert.Equal(t, "image.png", a.Entries()[0].Name)
	assert.Equal(t, uint16(MethodStored), a.Entries()[0].Method)

	got, err := a.EntryData("image.png")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
