// Package pak unpacks LSPK game archives.
package pak

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/remeh/sizedwaitgroup"
	"golang.org/x/crypto/blake2b"

	"github.com/byteblender21/bg3-modding-utilities/internal/utils"
)

type Options struct {
	// Root overrides the extraction directory used by ExtractFile.
	Root string
	// Workers bounds how many entries are extracted at once. Zero means one
	// per CPU.
	Workers int
	// Digests records a BLAKE2b-256 digest of every written file.
	Digests bool
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

type outcome struct {
	extracted Extracted
	failure   *Failure
}

type extractor struct {
	src     Source
	root    string
	opts    Options
	dec     *decoder
	total   int
	done    atomic.Int32
	results []outcome
}

// ExtractFile unpacks the archive at path. Unless opts.Root is set, files go
// to the archive path with its extension removed.
func ExtractFile(ctx context.Context, path string, opts Options) (*Result, error) {
	utils.Debug("Unpacker: Opening archive %s", path)
	f, err := OpenMapped(path)
	if err != nil {
		return nil, newError(ErrFilesystem, StageOpen, err)
	}
	defer f.Close()

	root := opts.Root
	if root == "" {
		root = utils.ExtractionRoot(path)
	}
	return Extract(ctx, f, root, opts)
}

// Extract decodes the archive in src and writes every entry below root.
//
// Format and truncation errors abort the run and are returned. An entry that
// fails to decompress or write is recorded in Result.Failures and the
// remaining entries are still extracted. Nothing is written before the file
// list has been decoded.
func Extract(ctx context.Context, src Source, root string, opts Options) (*Result, error) {
	r := io.NewSectionReader(src, 0, src.Size())

	version, err := ReadSignature(r)
	if err != nil {
		return nil, err
	}
	utils.Debug("Unpacker: Pak version: %d", version)

	header, err := ReadHeader(r, version)
	if err != nil {
		return nil, err
	}
	utils.Debug("Unpacker: File list at %d, flags %#x, priority %d, parts %d",
		header.FileListOffset, header.Flags, header.Priority, header.NumParts)

	entries, err := ReadFileList(src, header)
	if err != nil {
		return nil, err
	}
	utils.Info("Unpacker: %d entries, extracting to %s", len(entries), root)

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, newError(ErrFilesystem, StageOutput, err)
	}

	dec, err := newDecoder()
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	x := &extractor{
		src:     src,
		root:    root,
		opts:    opts,
		dec:     dec,
		total:   len(entries),
		results: make([]outcome, len(entries)),
	}
	if err := x.run(ctx, entries); err != nil {
		return nil, err
	}

	res := &Result{Root: root, Header: header, Entries: make([]Extracted, 0, len(entries))}
	for _, o := range x.results {
		if o.failure != nil {
			res.Failures = append(res.Failures, *o.failure)
			continue
		}
		res.Entries = append(res.Entries, o.extracted)
	}

	utils.Info("Unpacker: Extracted %d files (%s), %d failed",
		len(res.Entries), humanize.Bytes(uint64(res.Bytes())), len(res.Failures))
	return res, nil
}

func (x *extractor) run(ctx context.Context, entries []Entry) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	swg := sizedwaitgroup.New(x.opts.workers())
	for _, group := range x.plan(entries) {
		if ctx.Err() != nil {
			break
		}
		if err := swg.AddWithContext(ctx); err != nil {
			break
		}
		go func(group []int) {
			defer swg.Done()
			for _, i := range group {
				if ctx.Err() != nil {
					return
				}
				if err := x.extractEntry(i, entries[i]); err != nil {
					cancel(err)
					return
				}
			}
		}(group)
	}
	swg.Wait()

	return context.Cause(ctx)
}

// plan splits the entries into groups that can be written concurrently.
// Entries resolving to the same output path, or where one entry's path is a
// parent directory of another's, share a group. Groups and the indices in
// each group are in file list order, so a later duplicate overwrites an
// earlier one.
func (x *extractor) plan(entries []Entry) [][]int {
	parent := make([]int, len(entries))
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		switch {
		case ra < rb:
			parent[rb] = ra
		case rb < ra:
			parent[ra] = rb
		}
	}

	owner := make(map[string]int, len(entries))
	paths := make([]string, len(entries))
	for i, e := range entries {
		parent[i] = i
		_, path, err := utils.EntryPath(x.root, e.Name)
		if err != nil {
			continue
		}
		paths[i] = path
		if j, ok := owner[path]; ok {
			union(i, j)
		} else {
			owner[path] = i
		}
	}

	root := filepath.Clean(x.root)
	for i, path := range paths {
		if path == "" {
			continue
		}
		for dir := filepath.Dir(path); dir != root && dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			if j, ok := owner[dir]; ok {
				union(i, j)
			}
		}
	}

	var groups [][]int
	slot := make(map[int]int)
	for i := range entries {
		r := find(i)
		g, ok := slot[r]
		if !ok {
			g = len(groups)
			slot[r] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	if len(groups) < len(entries) {
		utils.Debug("Unpacker: %d entries share output paths, writing them in file list order", len(entries)-len(groups))
	}
	return groups
}

// extractEntry writes one entry. It only returns errors that must stop the
// run; recoverable failures are stored in x.results.
func (x *extractor) extractEntry(i int, e Entry) error {
	n := x.done.Add(1)
	utils.Debug("Unpacker: Extracting file %d/%d: %s", n, x.total, e.Name)

	data, err := x.readPayload(i, e)
	if err != nil {
		if fatal(err) {
			return err
		}
		x.fail(i, e, err)
		return nil
	}

	dir, path, err := utils.EntryPath(x.root, e.Name)
	if err != nil {
		x.fail(i, e, entryError(ErrFilesystem, i, e.Name, err))
		return nil
	}
	if err := utils.WriteFile(dir, path, data); err != nil {
		x.fail(i, e, entryError(ErrFilesystem, i, e.Name, err))
		return nil
	}

	out := Extracted{Index: i, Name: e.Name, Path: path, Size: int64(len(data))}
	if x.opts.Digests {
		sum := blake2b.Sum256(data)
		out.Digest = hex.EncodeToString(sum[:])
	}
	x.results[i].extracted = out
	return nil
}

func (x *extractor) readPayload(i int, e Entry) ([]byte, error) {
	off := e.Offset()
	end := off + uint64(e.SizeOnDisk)
	if size := uint64(x.src.Size()); off > size || end > size {
		return nil, entryError(ErrTruncated, i, e.Name,
			fmt.Errorf("payload [%d, %d) beyond archive size %d", off, end, size))
	}
	if e.Part != 0 {
		utils.Warn("Unpacker: %s is stored in archive part %d, reading it from the primary archive", e.Name, e.Part)
	}
	utils.Debug("Unpacker:   offset %d, %d bytes on disk, %s, %d bytes uncompressed",
		off, e.SizeOnDisk, e.Method(), e.UncompressedSize)

	payload := make([]byte, e.SizeOnDisk)
	if n, err := x.src.ReadAt(payload, int64(off)); n < len(payload) {
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, entryError(ErrFilesystem, i, e.Name, err)
		}
		return nil, entryError(ErrTruncated, i, e.Name, io.ErrUnexpectedEOF)
	}

	data, err := x.dec.decompress(e.Method(), payload, int(e.UncompressedSize))
	if err != nil {
		return nil, entryError(ErrDecompression, i, e.Name, err)
	}
	return data, nil
}

func (x *extractor) fail(i int, e Entry, err error) {
	utils.Debug("Unpacker: %v", err)
	x.results[i].failure = &Failure{Index: i, Name: e.Name, Err: err}
}
