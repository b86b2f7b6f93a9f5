package flac

import (
	"bytes"
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

	t.Run("valid stream", func(t *testing.T) {
		t.Parallel()
		f := mustParse(t, testutil.FLAC(t, 128))

		blocks := f.Blocks()
		require.Len(t, blocks, 2)
		assert.Equal(t, BlockStreamInfo, blocks[0].Type)
		assert.Equal(t, BlockPadding, blocks[1].Type)
		assert.Len(t, blocks[1].Data, 128)
	})

	t.Run("stream info decoding", func(t *testing.T) {
		t.Parallel()
		f := mustParse(t, testutil.FLAC(t, 16))
		info := f.StreamInfo()
		assert.Equal(t, uint32(44100), info.SampleRate)
		assert.Equal(t, uint8(2), info.Channels)
		assert.Equal(t, uint8(16), info.BitsPerSample)
		assert.Equal(t, uint64(1000), info.TotalSamples)
	})

	t.Run("truncated block", func(t *testing.T) {
		t.Parallel()
		data := testutil.FLAC(t, 128)
		_, err := Parse(data[:10])
		assert.ErrorIs(t, err, ErrTruncated)
	})
}

func TestInjectIntoPadding(t *testing.T) {
	t.Parallel()

	t.Run("payload fits", func(t *testing.T) {
		t.Parallel()
		data := testutil.FLAC(t, 128)
		f := mustParse(t, data)
		payload := []byte("hidden image bytes")

		out, err := f.InjectIntoPadding(payload)
		require.NoError(t, err)
		encoded := out.Encode()

		// The stream's byte length never changes.
		assert.Equal(t, len(data), len(encoded))

		reparsed := mustParse(t, encoded)
		pad := reparsed.Blocks()[1]
		require.Equal(t, BlockPadding, pad.Type)
		assert.True(t, bytes.HasPrefix(pad.Data, payload))
		assert.Equal(t, bytes.Repeat([]byte{0}, 128-len(payload)), pad.Data[len(payload):])
	})

	t.Run("payload too large", func(t *testing.T) {
		t.Parallel()
		f := mustParse(t, testutil.FLAC(t, 8))
		_, err := f.InjectIntoPadding(bytes.Repeat([]byte{1}, 9))
		assert.ErrorIs(t, err, ErrNoPadding)
	})
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	data := testutil.FLAC(t, 64)
	f := mustParse(t, data)
	assert.Equal(t, data, f.Encode(), "frames after the metadata blocks must survive")
}
