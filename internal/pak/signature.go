package pak

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Signature is the magic every LSPK archive starts with.
var Signature = [4]byte{'L', 'S', 'P', 'K'}

// ReadSignature checks the archive magic and returns the format version that
// follows it. Nothing past the magic is read when it does not match.
func ReadSignature(r io.Reader) (uint32, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return 0, readError(StageSignature, err)
	}
	if magic != Signature {
		return 0, newError(ErrFormat, StageSignature, fmt.Errorf("bad magic %q", magic[:]))
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return 0, readError(StageSignature, err)
	}
	return version, nil
}
