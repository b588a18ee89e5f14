package pak

import (
	"bytes"
	"errors"
	"io"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSignature(t *testing.T) {
	t.Parallel()

	Convey("ReadSignature", t, func() {
		Convey("good", func() {
			buf := bytes.NewReader([]byte{'L', 'S', 'P', 'K', 18, 0, 0, 0})
			v, err := ReadSignature(buf)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 18)
			So(buf.Len(), ShouldEqual, 0)
		})

		Convey("bad magic stops after four bytes", func() {
			buf := bytes.NewReader([]byte{'P', 'K', 3, 4, 18, 0, 0, 0, 0xff})
			_, err := ReadSignature(buf)
			So(errors.Is(err, ErrFormat), ShouldBeTrue)
			So(buf.Len(), ShouldEqual, 5)

			var perr *Error
			So(errors.As(err, &perr), ShouldBeTrue)
			So(perr.Stage, ShouldEqual, StageSignature)
			So(err.Error(), ShouldContainSubstring, "signature")
		})

		Convey("short magic", func() {
			_, err := ReadSignature(bytes.NewReader([]byte{'L', 'S'}))
			So(errors.Is(err, ErrTruncated), ShouldBeTrue)
			So(errors.Is(err, io.ErrUnexpectedEOF), ShouldBeTrue)
		})

		Convey("missing version", func() {
			_, err := ReadSignature(bytes.NewReader([]byte{'L', 'S', 'P', 'K', 1}))
			So(errors.Is(err, ErrTruncated), ShouldBeTrue)
		})
	})
}

func TestHeader(t *testing.T) {
	t.Parallel()

	Convey("ReadHeader", t, func() {
		want := Header{
			Version:        18,
			FileListOffset: 0x0000_1234_5678_9abc,
			FileListSize:   77,
			Flags:          3,
			Priority:       50,
			Hash:           [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
			NumParts:       2,
		}
		raw := encodeHeader(18, want)
		So(raw, ShouldHaveLength, HeaderSize)

		Convey("decodes every field in order", func() {
			r := bytes.NewReader(raw)
			v, err := ReadSignature(r)
			So(err, ShouldBeNil)
			h, err := ReadHeader(r, v)
			So(err, ShouldBeNil)
			So(h, ShouldResemble, want)
		})

		Convey("little-endian layout", func() {
			So(raw[8:16], ShouldResemble, []byte{0xbc, 0x9a, 0x78, 0x56, 0x34, 0x12, 0, 0})
			So(raw[16:20], ShouldResemble, []byte{77, 0, 0, 0})
			So(raw[20], ShouldEqual, 3)
			So(raw[21], ShouldEqual, 50)
			So(raw[38:40], ShouldResemble, []byte{2, 0})
		})

		Convey("truncated", func() {
			r := bytes.NewReader(raw[8 : HeaderSize-1])
			_, err := ReadHeader(r, 18)
			So(errors.Is(err, ErrTruncated), ShouldBeTrue)

			var perr *Error
			So(errors.As(err, &perr), ShouldBeTrue)
			So(perr.Stage, ShouldEqual, StageHeader)
		})
	})
}
