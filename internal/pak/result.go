package pak

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
)

// Extracted describes one file written to disk.
type Extracted struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Digest string `json:"blake2b,omitempty"`
}

// Failure is an entry that could not be extracted. The run carried on past
// it.
type Failure struct {
	Index int
	Name  string
	Err   error
}

// Result summarises an extraction run. Entries and Failures are in file
// list order.
type Result struct {
	Root     string
	Header   Header
	Entries  []Extracted
	Failures []Failure
}

// Bytes is the total size of the files written.
func (r *Result) Bytes() int64 {
	var n int64
	for _, e := range r.Entries {
		n += e.Size
	}
	return n
}

// Err joins the errors of all failed entries, or returns nil when every
// entry was extracted.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f.Err
	}
	return errors.Join(errs...)
}

type manifestFailure struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

type manifest struct {
	Version  uint32            `json:"version"`
	Hash     string            `json:"hash"`
	NumParts uint16            `json:"num_parts"`
	Root     string            `json:"root"`
	Entries  []Extracted       `json:"entries"`
	Failures []manifestFailure `json:"failures,omitempty"`
}

// WriteManifest writes the result as indented JSON.
func (r *Result) WriteManifest(w io.Writer) error {
	m := manifest{
		Version:  r.Header.Version,
		Hash:     hex.EncodeToString(r.Header.Hash[:]),
		NumParts: r.Header.NumParts,
		Root:     r.Root,
		Entries:  r.Entries,
	}
	if m.Entries == nil {
		m.Entries = []Extracted{}
	}
	for _, f := range r.Failures {
		m.Failures = append(m.Failures, manifestFailure{Index: f.Index, Name: f.Name, Error: f.Err.Error()})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
