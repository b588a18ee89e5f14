package pak

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Method is a payload codec. The low nibble of an entry's flags selects it.
type Method uint8

const (
	MethodNone Method = iota
	MethodZlib
	MethodLZ4
	MethodZstd
)

func (m Method) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodZlib:
		return "zlib"
	case MethodLZ4:
		return "lz4"
	case MethodZstd:
		return "zstd"
	}
	return fmt.Sprintf("method(%d)", uint8(m))
}

// MethodFromFlags picks the codec for a compressed entry. Flags that name no
// known codec fall back to LZ4.
func MethodFromFlags(flags uint8) Method {
	switch m := Method(flags & 0x0F); m {
	case MethodZlib, MethodZstd:
		return m
	}
	return MethodLZ4
}

// DecompressBlock decodes an LZ4 block whose decoded length must be exactly
// size bytes.
func DecompressBlock(src []byte, size int) ([]byte, error) {
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, err
	}
	if n != size {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, n, size)
	}
	return dst, nil
}

// decoder holds codec state shared by the extraction workers of one run.
type decoder struct {
	zstd *zstd.Decoder
}

func newDecoder() (*decoder, error) {
	zd, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &decoder{zstd: zd}, nil
}

func (d *decoder) Close() {
	d.zstd.Close()
}

func (d *decoder) decompress(m Method, src []byte, size int) ([]byte, error) {
	switch m {
	case MethodNone:
		return src, nil
	case MethodZlib:
		return inflate(src, size)
	case MethodZstd:
		out, err := d.zstd.DecodeAll(src, make([]byte, 0, size))
		if err != nil {
			return nil, err
		}
		if len(out) != size {
			return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(out), size)
		}
		return out, nil
	default:
		return DecompressBlock(src, size)
	}
}

func inflate(src []byte, size int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	dst := make([]byte, size)
	if n, err := io.ReadFull(zr, dst); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, n, size)
		}
		return nil, err
	}

	var extra [1]byte
	if n, _ := io.ReadFull(zr, extra[:]); n != 0 {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrSizeMismatch, size)
	}
	return dst, nil
}
