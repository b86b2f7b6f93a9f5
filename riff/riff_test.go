package riff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/polyglot/internal/testutil"
)

func mustParse(tb testing.TB, data []byte) *File {
	tb.Helper()
	f, err := Parse(data)
	require.NoError(tb, err, "Parse failed")
	return f
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("empty data", func(t *testing.T) {
		t.Parallel()
		_, err := Parse(nil)
		assert.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("valid wave", func(t *testing.T) {
		t.Parallel()
		f := mustParse(t, testutil.WAV(t, 64))

		chunks := f.Chunks()
		require.Len(t, chunks, 2)
		assert.Equal(t, FourCCFmt, chunks[0].ID)
		assert.Equal(t, FourCCData, chunks[1].ID)

		data, ok := f.Chunk(FourCCData)
		require.True(t, ok)
		assert.Len(t, data, 64)
	})

	t.Run("odd data chunk is padded", func(t *testing.T) {
		t.Parallel()
		f := mustParse(t, testutil.WAV(t, 63))
		data, ok := f.Chunk(FourCCData)
		require.True(t, ok)
		assert.Len(t, data, 63)
	})

	t.Run("truncated", func(t *testing.T) {
		t.Parallel()
		data := testutil.WAV(t, 64)
		_, err := Parse(data[:20])
		assert.ErrorIs(t, err, ErrTruncated)
	})
}

func TestBound(t *testing.T) {
	t.Parallel()

	data := testutil.WAV(t, 64)
	n, err := Bound(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	// The bound comes from the declared size, not the buffer.
	n, err = Bound(append(data, []byte("suffix")...))
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
}

func TestEmbedChunk(t *testing.T) {
	t.Parallel()

	t.Run("appended after audio chunks", func(t *testing.T) {
		t.Parallel()
		f := mustParse(t, testutil.WAV(t, 64))
		payload := []byte("an image payload")

		out, err := f.EmbedChunk(FourCCImage, payload)
		require.NoError(t, err)

		reparsed := mustParse(t, out.Encode())
		got, ok := reparsed.Chunk(FourCCImage)
		require.True(t, ok)
		assert.Equal(t, payload, got)

		// Audio chunks stay where they were.
		audio, ok := reparsed.Chunk(FourCCData)
		require.True(t, ok)
		assert.Len(t, audio, 64)
	})

	t.Run("odd payload keeps file well formed", func(t *testing.T) {
		t.Parallel()
		f := mustParse(t, testutil.WAV(t, 64))
		out, err := f.EmbedChunk(FourCCImage, []byte("odd"))
		require.NoError(t, err)

		reparsed := mustParse(t, out.Encode())
		got, ok := reparsed.Chunk(FourCCImage)
		require.True(t, ok)
		assert.Equal(t, []byte("odd"), got)
	})
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	data := testutil.WAV(t, 64)
	f := mustParse(t, data)
	assert.Equal(t, data, f.Encode())
}
