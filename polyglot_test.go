package polyglot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/polyglot/internal/testutil"
	"github.com/meigma/polyglot/png"
	"github.com/meigma/polyglot/zip"
)

func sampleArchive(tb testing.TB) []byte {
	tb.Helper()
	return testutil.Zip(tb,
		testutil.ZipEntry{Name: "notes.txt", Data: []byte("hidden cargo")},
		testutil.ZipEntry{Name: "blob.bin", Data: bytes.Repeat([]byte{0x5a}, 300)},
	)
}

func TestDetectDominant(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data []byte
		want Format
	}{
		{name: "png", data: testutil.PNG(t, 4, 4), want: FormatPNG},
		{name: "zip", data: sampleArchive(t), want: FormatZIP},
		{name: "wav", data: testutil.WAV(t, 32), want: FormatWAV},
		{name: "flac", data: testutil.FLAC(t, 32), want: FormatFLAC},
		{name: "empty", data: nil, want: FormatUnknown},
		{name: "garbage", data: []byte("neither format"), want: FormatUnknown},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, DetectDominant(tc.data))
		})
	}
}

func TestCreateChunkStrategy(t *testing.T) {
	t.Parallel()

	image := testutil.PNG(t, 8, 8)
	archive := sampleArchive(t)

	out, err := Create(image, archive)
	require.NoError(t, err)

	t.Run("outer still parses", func(t *testing.T) {
		t.Parallel()
		img, err := png.Parse(out)
		require.NoError(t, err)
		_, ok := img.FindFirst(png.TypeTEXT)
		assert.True(t, ok)
	})

	t.Run("payload recovered byte for byte", func(t *testing.T) {
		t.Parallel()
		p, err := Extract(out)
		require.NoError(t, err)
		assert.Equal(t, FormatZIP, p.Format)
		assert.True(t, p.Exact)
		assert.Equal(t, archive, p.Data)
	})

	t.Run("custom keyword", func(t *testing.T) {
		t.Parallel()
		out, err := Create(image, archive, WithKeyword("Payload"))
		require.NoError(t, err)

		img, err := png.Parse(out)
		require.NoError(t, err)
		text, ok := img.FindFirst(png.TypeTEXT)
		require.True(t, ok)
		keyword, body, ok := png.SplitText(text.Data)
		require.True(t, ok)
		assert.Equal(t, "Payload", keyword)
		assert.Equal(t, archive, body)
	})
}

func TestCreateImageDataStrategy(t *testing.T) {
	t.Parallel()

	image := testutil.PNG(t, 8, 8)
	archive := sampleArchive(t)

	out, err := Create(image, archive, WithStrategy(StrategyImageData))
	require.NoError(t, err)

	t.Run("outer still parses", func(t *testing.T) {
		t.Parallel()
		_, err := png.Parse(out)
		assert.NoError(t, err)
	})

	t.Run("embedded offsets anchor to the file", func(t *testing.T) {
		t.Parallel()
		start := bytes.Index(out, []byte{'P', 'K', 3, 4})
		require.Positive(t, start)

		a, shifted, err := zip.ParseEmbedded(out, start)
		require.NoError(t, err)
		assert.True(t, shifted, "creation must have rebased the directory")
		assert.Equal(t, archive, a.Bytes())
	})

	t.Run("payload recovered byte for byte", func(t *testing.T) {
		t.Parallel()
		p, err := Extract(out)
		require.NoError(t, err)
		assert.Equal(t, FormatZIP, p.Format)
		assert.True(t, p.Exact)
		assert.Equal(t, archive, p.Data)
	})
}

func TestCreateArchiveStrategy(t *testing.T) {
	t.Parallel()

	image := testutil.PNG(t, 8, 8)
	archive := sampleArchive(t)

	out, err := Create(image, archive, WithStrategy(StrategyArchive))
	require.NoError(t, err)

	t.Run("archive dominant", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, FormatZIP, DetectDominant(out))

		a, err := zip.Parse(out)
		require.NoError(t, err)
		require.Len(t, a.Entries(), 1)
		assert.Equal(t, "image.png", a.Entries()[0].Name)
	})

	t.Run("image recovered byte for byte", func(t *testing.T) {
		t.Parallel()
		p, err := Extract(out)
		require.NoError(t, err)
		assert.Equal(t, FormatPNG, p.Format)
		assert.Equal(t, image, p.Data)
	})

	t.Run("custom entry name", func(t *testing.T) {
		t.Parallel()
		out, err := Create(image, archive,
			WithStrategy(StrategyArchive), WithEntryName("cover.png"))
		require.NoError(t, err)

		a, err := zip.Parse(out)
		require.NoError(t, err)
		require.Len(t, a.Entries(), 1)
		assert.Equal(t, "cover.png", a.Entries()[0].Name)
	})
}

func TestCreateErrors(t *testing.T) {
	t.Parallel()

	image := testutil.PNG(t, 4, 4)
	archive := sampleArchive(t)

	t.Run("bad image", func(t *testing.T) {
		t.Parallel()
		_, err := Create([]byte("not an image"), archive)
		assert.ErrorIs(t, err, png.ErrBadSignature)
	})

	t.Run("bad archive", func(t *testing.T) {
		t.Parallel()
		_, err := Create(image, []byte("not an archive"))
		assert.ErrorIs(t, err, zip.ErrBadSignature)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		t.Parallel()
		_, err := Create(image, archive, WithStrategy("bogus"))
		assert.ErrorIs(t, err, ErrUnknownStrategy)
	})
}

func TestCreateWAV(t *testing.T) {
	t.Parallel()

	image := testutil.PNG(t, 8, 8)
	audio := testutil.WAV(t, 64)

	t.Run("audio dominant", func(t *testing.T) {
		t.Parallel()
		out, err := CreateWAV(image, audio, false)
		require.NoError(t, err)
		assert.Equal(t, FormatWAV, DetectDominant(out))

		p, err := Extract(out)
		require.NoError(t, err)
		assert.Equal(t, FormatPNG, p.Format)
		assert.True(t, p.Exact)
		assert.Equal(t, image, p.Data)
	})

	t.Run("image dominant", func(t *testing.T) {
		t.Parallel()
		out, err := CreateWAV(image, audio, true)
		require.NoError(t, err)
		assert.Equal(t, FormatPNG, DetectDominant(out))

		p, err := Extract(out)
		require.NoError(t, err)
		assert.Equal(t, FormatWAV, p.Format)
		assert.True(t, p.Exact)
		assert.Equal(t, audio, p.Data)
	})
}

func TestCreateFLAC(t *testing.T) {
	t.Parallel()

	image := testutil.PNG(t, 4, 4)

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		audio := testutil.FLAC(t, len(image)+64)
		out, err := CreateFLAC(audio, image)
		require.NoError(t, err)
		assert.Equal(t, FormatFLAC, DetectDominant(out))
		assert.Len(t, out, len(audio))

		p, err := Extract(out)
		require.NoError(t, err)
		assert.Equal(t, FormatPNG, p.Format)
		assert.Equal(t, image, p.Data)
	})

	t.Run("insufficient padding", func(t *testing.T) {
		t.Parallel()
		audio := testutil.FLAC(t, 4)
		_, err := CreateFLAC(audio, image)
		assert.Error(t, err)
	})
}

func TestExtractErrors(t *testing.T) {
	t.Parallel()

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()
		_, err := Extract([]byte("nothing recognizable"))
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})

	t.Run("plain image has no payload", func(t *testing.T) {
		t.Parallel()
		_, err := Extract(testutil.PNG(t, 4, 4))
		assert.ErrorIs(t, err, ErrPayloadNotFound)
	})

	t.Run("plain archive has no payload", func(t *testing.T) {
		t.Parallel()
		_, err := Extract(sampleArchive(t))
		assert.ErrorIs(t, err, ErrPayloadNotFound)
	})

	t.Run("plain audio has no payload", func(t *testing.T) {
		t.Parallel()
		_, err := Extract(testutil.WAV(t, 32))
		assert.ErrorIs(t, err, ErrPayloadNotFound)
	})
}
