package pak

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	NameSize   = 256
	RecordSize = NameSize + 16
)

var (
	errEmptyName   = errors.New("empty entry name")
	errEmbeddedNUL = errors.New("entry name contains a NUL before its padding")
	errInvalidUTF8 = errors.New("entry name is not valid UTF-8")
	errShortRecord = errors.New("short file list record")
)

// Entry is one packed file as listed in the file list.
type Entry struct {
	Name             string
	OffsetLo         uint32
	OffsetHi         uint16
	Part             uint8
	Flags            uint8
	SizeOnDisk       uint32
	UncompressedSize uint32
}

// CombineOffset joins the low 32 and high 16 bits of an entry offset into
// the absolute 48-bit position in the archive.
func CombineOffset(lo uint32, hi uint16) uint64 {
	return uint64(lo) | uint64(hi)<<32
}

func (e Entry) Offset() uint64 { return CombineOffset(e.OffsetLo, e.OffsetHi) }

// Stored reports whether the payload is kept uncompressed.
func (e Entry) Stored() bool { return e.UncompressedSize == 0 }

// Method is the codec the payload must be decoded with.
func (e Entry) Method() Method {
	if e.Stored() {
		return MethodNone
	}
	return MethodFromFlags(e.Flags)
}

// OutputSize is the length of the file written for this entry.
func (e Entry) OutputSize() int64 {
	if e.Stored() {
		return int64(e.SizeOnDisk)
	}
	return int64(e.UncompressedSize)
}

// DecodeEntry decodes one fixed-size file list record.
func DecodeEntry(rec []byte) (Entry, error) {
	if len(rec) < RecordSize {
		return Entry{}, fmt.Errorf("%w: %d bytes", errShortRecord, len(rec))
	}

	name, err := DecodeName(rec[:NameSize])
	if err != nil {
		return Entry{}, err
	}

	p := rec[NameSize:RecordSize]
	return Entry{
		Name:             name,
		OffsetLo:         binary.LittleEndian.Uint32(p[0:4]),
		OffsetHi:         binary.LittleEndian.Uint16(p[4:6]),
		Part:             p[6],
		Flags:            p[7],
		SizeOnDisk:       binary.LittleEndian.Uint32(p[8:12]),
		UncompressedSize: binary.LittleEndian.Uint32(p[12:16]),
	}, nil
}

// DecodeName strips the NUL padding of a name field. A NUL inside the name
// itself is treated as corruption.
func DecodeName(field []byte) (string, error) {
	name := bytes.TrimRight(field, "\x00")
	if len(name) == 0 {
		return "", errEmptyName
	}
	if i := bytes.IndexByte(name, 0); i >= 0 {
		return "", fmt.Errorf("%w at byte %d", errEmbeddedNUL, i)
	}
	if !utf8.Valid(name) {
		return "", errInvalidUTF8
	}
	return string(name), nil
}
