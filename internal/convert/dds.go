package convert

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/mauserzjeh/dxt"
)

var (
	ErrNotDDS            = errors.New("not a DDS file")
	ErrUnsupportedFormat = errors.New("unsupported DDS pixel format")
)

const (
	ddsHeaderSize = 124
	maxDimension  = 16384
)

type ddsPixelFormat struct {
	Size        uint32
	Flags       uint32
	FourCC      [4]byte
	RGBBitCount uint32
	RBitMask    uint32
	GBitMask    uint32
	BBitMask    uint32
	ABitMask    uint32
}

type ddsHeader struct {
	Magic             [4]byte
	Size              uint32
	Flags             uint32
	Height            uint32
	Width             uint32
	PitchOrLinearSize uint32
	Depth             uint32
	MipMapCount       uint32
	Reserved1         [11]uint32
	PixelFormat       ddsPixelFormat
	Caps              [4]uint32
	Reserved2         uint32
}

// DecodeDDS decodes the top mip level of a DXT1 or DXT5 DDS texture.
func DecodeDDS(r io.Reader) (image.Image, error) {
	var h ddsHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDDS, err)
	}
	if string(h.Magic[:]) != "DDS " || h.Size != ddsHeaderSize {
		return nil, fmt.Errorf("%w: magic %q, header size %d", ErrNotDDS, h.Magic[:], h.Size)
	}

	w, ht := h.Width, h.Height
	if w == 0 || ht == 0 || w > maxDimension || ht > maxDimension {
		return nil, fmt.Errorf("invalid dimensions %dx%d", w, ht)
	}

	var blockSize uint32
	fourCC := string(h.PixelFormat.FourCC[:])
	switch fourCC {
	case "DXT1":
		blockSize = 8
	case "DXT5":
		blockSize = 16
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, fourCC)
	}

	blocksW := (w + 3) / 4
	blocksH := (ht + 3) / 4
	data := make([]byte, blocksW*blocksH*blockSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("reading %s blocks: %w", fourCC, err)
	}

	var pix []byte
	var err error
	if fourCC == "DXT1" {
		pix, err = dxt.DecodeDXT1(data, uint(w), uint(ht))
	} else {
		pix, err = dxt.DecodeDXT5(data, uint(w), uint(ht))
	}
	if err != nil {
		return nil, err
	}

	// Some decoders emit whole 4x4 blocks; crop back to the declared size.
	stride := int(w) * 4
	if len(pix) != int(w*ht)*4 {
		stride = int(blocksW) * 16
		if len(pix) < stride*int(blocksH)*4 {
			return nil, fmt.Errorf("decoder returned %d bytes for %dx%d", len(pix), w, ht)
		}
	}

	img := &image.RGBA{
		Pix:    pix,
		Stride: stride,
		Rect:   image.Rect(0, 0, stride/4, len(pix)/stride),
	}
	return img.SubImage(image.Rect(0, 0, int(w), int(ht))), nil
}
