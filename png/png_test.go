package png

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/polyglot/internal/testutil"
)

// mustParse parses an image or fails the test.
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

	t.Run("bad signature", func(t *testing.T) {
		t.Parallel()
		data := testutil.PNG(t, 4, 4)
		data[0] ^= 0xff
		_, err := Parse(data)
		assert.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("valid image", func(t *testing.T) {
		t.Parallel()
		data := testutil.PNG(t, 4, 4)
		f := mustParse(t, data)

		chunks := f.Chunks()
		require.Len(t, chunks, 3)
		assert.Equal(t, TypeIHDR, chunks[0].Type)
		assert.Equal(t, TypeIDAT, chunks[1].Type)
		assert.Equal(t, TypeIEND, chunks[2].Type)
		assert.Equal(t, len(data), f.EncodedLen())
	})

	t.Run("corrupted checksum", func(t *testing.T) {
		t.Parallel()
		data := testutil.PNG(t, 4, 4)
		// Flip a byte inside the IHDR payload without fixing its CRC.
		data[16] ^= 0xff
		_, err := Parse(data)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("truncated chunk", func(t *testing.T) {
		t.Parallel()
		data := testutil.PNG(t, 4, 4)
		_, err := Parse(data[:len(data)-4])
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("stops at trailer", func(t *testing.T) {
		t.Parallel()
		data := append(testutil.PNG(t, 4, 4), []byte("trailing garbage")...)
		f := mustParse(t, data)
		require.Len(t, f.Chunks(), 3)
		assert.Less(t, f.EncodedLen(), len(data))
	})

	t.Run("data offset is absolute", func(t *testing.T) {
		t.Parallel()
		data := testutil.PNG(t, 4, 4)
		f := mustParse(t, data)

		ihdr, ok := f.FindFirst(TypeIHDR)
		require.True(t, ok)
		// Signature (8) + length (4) + type (4).
		assert.Equal(t, 16, ihdr.DataOffset)
		width := binary.BigEndian.Uint32(data[ihdr.DataOffset:])
		assert.Equal(t, uint32(4), width)
	})
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	data := testutil.PNG(t, 8, 8)
	f := mustParse(t, data)
	assert.Equal(t, data, f.Encode())
}

func TestChecksum(t *testing.T) {
	t.Parallel()

	data := testutil.PNG(t, 4, 4)
	f := mustParse(t, data)
	for _, c := range f.Chunks() {
		assert.Equal(t, c.CRC, Checksum(c.Type, c.Data), "chunk %s", c.Type)
	}
}

func TestAppendToFirst(t *testing.T) {
	t.Parallel()

	t.Run("grows payload and reparses", func(t *testing.T) {
		t.Parallel()
		f := mustParse(t, testutil.PNG(t, 4, 4))
		idat, ok := f.FindFirst(TypeIDAT)
		require.True(t, ok)

		extra := []byte("appended bytes")
		out, err := f.AppendToFirst(TypeIDAT, extra)
		require.NoError(t, err)

		reparsed := mustParse(t, out.Encode())
		grown, ok := reparsed.FindFirst(TypeIDAT)
		require.True(t, ok)
		assert.Equal(t, append(idat.Data, extra...), grown.Data)
	})

	t.Run("missing chunk type", func(t *testing.T) {
		t.Parallel()
		f := mustParse(t, testutil.PNG(t, 4, 4))
		_, err := f.AppendToFirst(ChunkType{'z', 'T', 'X', 't'}, []byte("x"))
		assert.ErrorIs(t, err, ErrChunkNotFound)
	})

	t.Run("original unchanged", func(t *testing.T) {
		t.Parallel()
		data := testutil.PNG(t, 4, 4)
		f := mustParse(t, data)
		_, err := f.AppendToFirst(TypeIDAT, []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, data, f.Encode())
	})
}

func TestInsertBeforeEnd(t *testing.T) {
	t.Parallel()

	f := mustParse(t, testutil.PNG(t, 4, 4))
	payload := TextPayload("Comment", []byte("hidden"))
	out, err := f.InsertBeforeEnd(TypeTEXT, payload)
	require.NoError(t, err)

	reparsed := mustParse(t, out.Encode())
	chunks := reparsed.Chunks()
	require.Len(t, chunks, 4)
	assert.Equal(t, TypeTEXT, chunks[2].Type)
	assert.Equal(t, TypeIEND, chunks[3].Type)

	keyword, body, ok := SplitText(chunks[2].Data)
	require.True(t, ok)
	assert.Equal(t, "Comment", keyword)
	assert.Equal(t, []byte("hidden"), body)
}

func TestSplitText(t *testing.T) {
	t.Parallel()

	t.Run("no separator", func(t *testing.T) {
		t.Parallel()
		_, _, ok := SplitText([]byte("no separator here"))
		assert.False(t, ok)
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()
		keyword, body, ok := SplitText([]byte("key\x00"))
		require.True(t, ok)
		assert.Equal(t, "key", keyword)
		assert.Empty(t, body)
	})
}
