package pak

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Error kinds. Match them with errors.Is.
var (
	ErrFormat        = errors.New("format error")
	ErrTruncated     = errors.New("truncated archive")
	ErrDecompression = errors.New("decompression failed")
	ErrFilesystem    = errors.New("filesystem error")
)

// ErrSizeMismatch is wrapped by decompression errors whose output length
// differs from the declared size.
var ErrSizeMismatch = errors.New("decompressed size mismatch")

// Stage is the extraction step an error was raised in.
type Stage int

const (
	StageOpen Stage = iota
	StageSignature
	StageHeader
	StageFileList
	StageOutput
	StageEntry
)

func (s Stage) String() string {
	switch s {
	case StageOpen:
		return "open"
	case StageSignature:
		return "signature"
	case StageHeader:
		return "header"
	case StageFileList:
		return "file list"
	case StageOutput:
		return "output root"
	case StageEntry:
		return "entry"
	}
	return "unknown"
}

// Error carries the kind and stage of an extraction failure. Index and Name
// are only set for StageEntry.
type Error struct {
	Kind  error
	Stage Stage
	Index int
	Name  string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("pak: ")
	b.WriteString(e.Stage.String())
	if e.Stage == StageEntry {
		fmt.Fprintf(&b, " %d", e.Index)
		if e.Name != "" {
			fmt.Fprintf(&b, " (%s)", e.Name)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func newError(kind error, stage Stage, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

func entryError(kind error, index int, name string, err error) *Error {
	return &Error{Kind: kind, Stage: StageEntry, Index: index, Name: name, Err: err}
}

// readError classifies a failed read: running out of bytes is truncation,
// anything else is an I/O failure of the underlying file.
func readError(stage Stage, err error) *Error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return newError(ErrTruncated, stage, io.ErrUnexpectedEOF)
	}
	return newError(ErrFilesystem, stage, err)
}

// fatal reports whether err must abort the whole run rather than only the
// entry it occurred in.
func fatal(err error) bool {
	return errors.Is(err, ErrFormat) || errors.Is(err, ErrTruncated)
}
