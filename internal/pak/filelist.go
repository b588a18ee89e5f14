package pak

import (
	"encoding/binary"
	"fmt"
	"io"
)

// An LZ4 block never expands its input by more than this factor.
const maxBlockRatio = 255

type fileListHead struct {
	NumFiles       int32
	CompressedSize int32
}

// ReadFileList reads and decompresses the file list the header points at and
// decodes every record in it, in archive order.
func ReadFileList(src Source, h Header) ([]Entry, error) {
	size := src.Size()
	if h.FileListOffset > uint64(size) {
		return nil, newError(ErrTruncated, StageFileList,
			fmt.Errorf("file list offset %d beyond archive size %d", h.FileListOffset, size))
	}
	r := io.NewSectionReader(src, int64(h.FileListOffset), size-int64(h.FileListOffset))

	var head fileListHead
	if err := binary.Read(r, binary.LittleEndian, &head); err != nil {
		return nil, readError(StageFileList, err)
	}
	if head.NumFiles < 0 || head.CompressedSize < 0 {
		return nil, newError(ErrFormat, StageFileList,
			fmt.Errorf("negative file count %d or list size %d", head.NumFiles, head.CompressedSize))
	}
	if remaining := r.Size() - 8; int64(head.CompressedSize) > remaining {
		return nil, newError(ErrTruncated, StageFileList,
			fmt.Errorf("list of %d bytes but only %d remain", head.CompressedSize, remaining))
	}

	compressed := make([]byte, head.CompressedSize)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, readError(StageFileList, err)
	}
	if head.NumFiles == 0 {
		return []Entry{}, nil
	}

	listSize := int64(head.NumFiles) * RecordSize
	if listSize > int64(head.CompressedSize)*maxBlockRatio+RecordSize {
		return nil, newError(ErrFormat, StageFileList,
			fmt.Errorf("%d entries cannot fit in %d compressed bytes", head.NumFiles, head.CompressedSize))
	}

	list, err := DecompressBlock(compressed, int(listSize))
	if err != nil {
		return nil, newError(ErrDecompression, StageFileList, err)
	}

	entries := make([]Entry, head.NumFiles)
	for i := range entries {
		e, err := DecodeEntry(list[i*RecordSize : (i+1)*RecordSize])
		if err != nil {
			return nil, newError(ErrFormat, StageFileList, fmt.Errorf("record %d: %w", i, err))
		}
		entries[i] = e
	}
	return entries, nil
}
