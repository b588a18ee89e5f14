package pak

import (
	"io"

	"golang.org/x/exp/mmap"
)

// Source is a random-access view of a whole archive. *bytes.Reader and
// *io.SectionReader satisfy it.
type Source interface {
	io.ReaderAt
	Size() int64
}

// MappedFile is an archive mapped into memory for positioned reads.
type MappedFile struct {
	r *mmap.ReaderAt
}

func OpenMapped(path string) (*MappedFile, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	return &MappedFile{r: r}, nil
}

func (f *MappedFile) ReadAt(p []byte, off int64) (int, error) { return f.r.ReadAt(p, off) }

func (f *MappedFile) Size() int64 { return int64(f.r.Len()) }

func (f *MappedFile) Close() error { return f.r.Close() }
