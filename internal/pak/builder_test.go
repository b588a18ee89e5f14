package pak

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// archiveBuilder lays out a test archive as header, payloads, file list.
type archiveBuilder struct {
	t        testing.TB
	version  uint32
	entries  []Entry
	payloads bytes.Buffer
}

func newArchiveBuilder(t testing.TB) *archiveBuilder {
	return &archiveBuilder{t: t, version: 18}
}

func compressBlock(t testing.TB, data []byte) []byte {
	var c lz4.Compressor
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := c.CompressBlock(data, dst)
	if err != nil {
		t.Fatalf("lz4 compress: %v", err)
	}
	if n == 0 {
		t.Fatalf("lz4 compress: %d bytes are incompressible", len(data))
	}
	return dst[:n]
}

func compressZlib(t testing.TB, data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("zlib compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib compress: %v", err)
	}
	return buf.Bytes()
}

func compressZstd(t testing.TB, data []byte) []byte {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd encoder: %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

// addRaw appends onDisk as the payload of e, filling in its offset.
func (b *archiveBuilder) addRaw(e Entry, onDisk []byte) *archiveBuilder {
	off := uint64(HeaderSize + b.payloads.Len())
	e.OffsetLo = uint32(off)
	e.OffsetHi = uint16(off >> 32)
	e.SizeOnDisk = uint32(len(onDisk))
	b.payloads.Write(onDisk)
	b.entries = append(b.entries, e)
	return b
}

func (b *archiveBuilder) addStored(name string, data []byte) *archiveBuilder {
	return b.addRaw(Entry{Name: name}, data)
}

func (b *archiveBuilder) addCompressed(name string, m Method, data []byte) *archiveBuilder {
	var onDisk []byte
	switch m {
	case MethodZlib:
		onDisk = compressZlib(b.t, data)
	case MethodZstd:
		onDisk = compressZstd(b.t, data)
	default:
		onDisk = compressBlock(b.t, data)
	}
	return b.addRaw(Entry{Name: name, Flags: uint8(m), UncompressedSize: uint32(len(data))}, onDisk)
}

func encodeRecord(e Entry) []byte {
	rec := make([]byte, RecordSize)
	copy(rec, e.Name)
	p := rec[NameSize:]
	binary.LittleEndian.PutUint32(p[0:4], e.OffsetLo)
	binary.LittleEndian.PutUint16(p[4:6], e.OffsetHi)
	p[6] = e.Part
	p[7] = e.Flags
	binary.LittleEndian.PutUint32(p[8:12], e.SizeOnDisk)
	binary.LittleEndian.PutUint32(p[12:16], e.UncompressedSize)
	return rec
}

func encodeHeader(version uint32, h Header) []byte {
	buf := &bytes.Buffer{}
	buf.Write(Signature[:])
	binary.Write(buf, binary.LittleEndian, version)
	binary.Write(buf, binary.LittleEndian, rawHeader{
		FileListOffset: h.FileListOffset,
		FileListSize:   h.FileListSize,
		Flags:          h.Flags,
		Priority:       h.Priority,
		Hash:           h.Hash,
		NumParts:       h.NumParts,
	})
	return buf.Bytes()
}

// encodeFileList returns the on-disk file list: counts then compressed
// records.
func encodeFileList(t testing.TB, entries []Entry) []byte {
	var list []byte
	for _, e := range entries {
		list = append(list, encodeRecord(e)...)
	}
	var compressed []byte
	if len(list) > 0 {
		compressed = compressBlock(t, list)
	}

	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, int32(len(entries)))
	binary.Write(buf, binary.LittleEndian, int32(len(compressed)))
	buf.Write(compressed)
	return buf.Bytes()
}

func (b *archiveBuilder) bytes() []byte {
	list := encodeFileList(b.t, b.entries)
	h := Header{
		FileListOffset: uint64(HeaderSize + b.payloads.Len()),
		FileListSize:   uint32(len(list)),
		NumParts:       1,
		Hash:           [16]byte{0xde, 0xad, 0xbe, 0xef},
	}

	out := encodeHeader(b.version, h)
	out = append(out, b.payloads.Bytes()...)
	return append(out, list...)
}

func (b *archiveBuilder) source() *bytes.Reader {
	return bytes.NewReader(b.bytes())
}
