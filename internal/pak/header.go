package pak

import (
	"encoding/binary"
	"io"
)

// HeaderSize is the number of bytes from the start of the archive to the end
// of the header: magic, version and the fixed header fields.
const HeaderSize = 40

// Header describes where the compressed file list lives. Hash is stored in
// the archive but never checked.
type Header struct {
	Version        uint32
	FileListOffset uint64
	FileListSize   uint32
	Flags          uint8
	Priority       uint8
	Hash           [16]byte
	NumParts       uint16
}

type rawHeader struct {
	FileListOffset uint64
	FileListSize   uint32
	Flags          uint8
	Priority       uint8
	Hash           [16]byte
	NumParts       uint16
}

// ReadHeader decodes the header fields that follow the version. The file
// list offset is not bounds checked here.
func ReadHeader(r io.Reader, version uint32) (Header, error) {
	var raw rawHeader
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return Header{}, readError(StageHeader, err)
	}

	return Header{
		Version:        version,
		FileListOffset: raw.FileListOffset,
		FileListSize:   raw.FileListSize,
		Flags:          raw.Flags,
		Priority:       raw.Priority,
		Hash:           raw.Hash,
		NumParts:       raw.NumParts,
	}, nil
}
