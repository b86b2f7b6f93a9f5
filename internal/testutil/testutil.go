// Package testutil builds minimal but fully valid fixture files for the
// container formats under test. Builders construct bytes by hand rather
// than through the packages under test, so a fixture cannot inherit a
// parser's bugs.
package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/klauspost/compress/zlib"
)

// PNG returns a valid single-IDAT image. The pixel payload is a zlib
// stream of width*height zero bytes per row plus filter bytes, enough for
// any decoder that checks stream integrity.
func PNG(tb testing.TB, width, height int) []byte {
	tb.Helper()

	var buf bytes.Buffer
	buf.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(height))
	ihdr[8] = 8 // bit depth
	ihdr[9] = 0 // grayscale
	writeChunk(&buf, "IHDR", ihdr)

	raw := make([]byte, height*(width+1))
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	if _, err := zw.Write(raw); err != nil {
		tb.Fatalf("compress fixture pixels: %v", err)
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("close fixture compressor: %v", err)
	}
	writeChunk(&buf, "IDAT", z.Bytes())

	writeChunk(&buf, "IEND", nil)
	return buf.Bytes()
}

// PNGWithText returns a PNG carrying a tEXt chunk before IEND.
func PNGWithText(tb testing.TB, keyword string, text []byte) []byte {
	tb.Helper()

	img := PNG(tb, 4, 4)
	iend := img[len(img)-12:]
	var buf bytes.Buffer
	buf.Write(img[:len(img)-12])

	payload := append([]byte(keyword), 0)
	payload = append(payload, text...)
	writeChunk(&buf, "tEXt", payload)
	buf.Write(iend)
	return buf.Bytes()
}

func writeChunk(buf *bytes.Buffer, typ string, data []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(data)))
	buf.Write(n[:])
	buf.WriteString(typ)
	buf.Write(data)

	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	binary.BigEndian.PutUint32(n[:], crc.Sum32())
	buf.Write(n[:])
}

// ZipEntry is one stored file in a fixture archive.
type ZipEntry struct {
	Name string
	Data []byte
}

// Zip returns a valid archive holding the given entries stored
// uncompressed, with directory offsets anchored to the archive start.
func Zip(tb testing.TB, entries ...ZipEntry) []byte {
	tb.Helper()

	var buf bytes.Buffer
	offsets := make([]int, len(entries))
	for i, e := range entries {
		offsets[i] = buf.Len()
		crc := crc32.ChecksumIEEE(e.Data)
		writeLE32(&buf, 0x04034b50)
		writeLE16(&buf, 20) // version needed
		writeLE16(&buf, 0)  // flags
		writeLE16(&buf, 0)  // method: stored
		writeLE16(&buf, 0)  // mod time
		writeLE16(&buf, 0)  // mod date
		writeLE32(&buf, crc)
		writeLE32(&buf, uint32(len(e.Data)))
		writeLE32(&buf, uint32(len(e.Data)))
		writeLE16(&buf, uint16(len(e.Name)))
		writeLE16(&buf, 0) // extra len
		buf.WriteString(e.Name)
		buf.Write(e.Data)
	}

	dirStart := buf.Len()
	for i, e := range entries {
		crc := crc32.ChecksumIEEE(e.Data)
		writeLE32(&buf, 0x02014b50)
		writeLE16(&buf, 20) // version made by
		writeLE16(&buf, 20) // version needed
		writeLE16(&buf, 0)  // flags
		writeLE16(&buf, 0)  // method
		writeLE16(&buf, 0)  // mod time
		writeLE16(&buf, 0)  // mod date
		writeLE32(&buf, crc)
		writeLE32(&buf, uint32(len(e.Data)))
		writeLE32(&buf, uint32(len(e.Data)))
		writeLE16(&buf, uint16(len(e.Name)))
		writeLE16(&buf, 0) // extra len
		writeLE16(&buf, 0) // comment len
		writeLE16(&buf, 0) // disk number
		writeLE16(&buf, 0) // internal attrs
		writeLE32(&buf, 0) // external attrs
		writeLE32(&buf, uint32(offsets[i]))
		buf.WriteString(e.Name)
	}
	dirSize := buf.Len() - dirStart

	writeLE32(&buf, 0x06054b50)
	writeLE16(&buf, 0) // disk number
	writeLE16(&buf, 0) // directory disk
	writeLE16(&buf, uint16(len(entries)))
	writeLE16(&buf, uint16(len(entries)))
	writeLE32(&buf, uint32(dirSize))
	writeLE32(&buf, uint32(dirStart))
	writeLE16(&buf, 0) // comment len
	return buf.Bytes()
}

// WAV returns a valid RIFF/WAVE file with fmt and data chunks holding
// sampleBytes of PCM audio.
func WAV(tb testing.TB, sampleBytes int) []byte {
	tb.Helper()

	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:2], 1)      // PCM
	binary.LittleEndian.PutUint16(fmtChunk[2:4], 1)      // mono
	binary.LittleEndian.PutUint32(fmtChunk[4:8], 44100)  // sample rate
	binary.LittleEndian.PutUint32(fmtChunk[8:12], 88200) // byte rate
	binary.LittleEndian.PutUint16(fmtChunk[12:14], 2)    // block align
	binary.LittleEndian.PutUint16(fmtChunk[14:16], 16)   // bits per sample

	var body bytes.Buffer
	body.WriteString("WAVE")
	body.WriteString("fmt ")
	writeLE32(&body, uint32(len(fmtChunk)))
	body.Write(fmtChunk)
	body.WriteString("data")
	writeLE32(&body, uint32(sampleBytes))
	body.Write(make([]byte, sampleBytes))
	if sampleBytes%2 != 0 {
		body.WriteByte(0)
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	writeLE32(&buf, uint32(body.Len()))
	buf.Write(body.Bytes())
	return buf.Bytes()
}

// FLAC returns a valid stream with a STREAMINFO block, a PADDING block of
// the given size, and a short dummy frame section.
func FLAC(tb testing.TB, paddingSize int) []byte {
	tb.Helper()

	var buf bytes.Buffer
	buf.WriteString("fLaC")

	info := make([]byte, 34)
	binary.BigEndian.PutUint16(info[0:2], 4096) // min block size
	binary.BigEndian.PutUint16(info[2:4], 4096) // max block size
	// sample rate 44100, 2 channels, 16 bits, 1000 samples
	packed := uint64(44100)<<44 | uint64(1)<<41 | uint64(15)<<36 | 1000
	binary.BigEndian.PutUint64(info[10:18], packed)
	writeBlock(&buf, 0, info, false)

	writeBlock(&buf, 1, make([]byte, paddingSize), true)

	buf.Write([]byte{0xff, 0xf8, 0x69, 0x18}) // frame sync placeholder
	return buf.Bytes()
}

func writeBlock(buf *bytes.Buffer, typ byte, data []byte, last bool) {
	head := typ
	if last {
		head |= 0x80
	}
	buf.WriteByte(head)
	buf.WriteByte(byte(len(data) >> 16))
	buf.WriteByte(byte(len(data) >> 8))
	buf.WriteByte(byte(len(data)))
	buf.Write(data)
}

func writeLE16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeLE32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
