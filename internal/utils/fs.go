package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyFileName = errors.New("entry has no file name")
	ErrUnsafePath    = errors.New("entry path escapes the extraction root")
)

// ExtractionRoot returns the directory an archive is unpacked into: the
// archive path without its extension, next to the archive itself. Paths with
// no extension, or nothing left once it is removed, get an "_unpacked" suffix.
func ExtractionRoot(archivePath string) string {
	stem := strings.TrimSuffix(archivePath, filepath.Ext(archivePath))
	if stem == archivePath || stem == "" || os.IsPathSeparator(stem[len(stem)-1]) {
		return archivePath + "_unpacked"
	}
	return stem
}

// SplitEntryName splits a '/'-separated entry name into its directory part
// and its leaf file name. The directory is empty for top-level entries.
func SplitEntryName(name string) (dir, file string) {
	i := strings.LastIndex(name, "/")
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}

// EntryPath resolves an entry name below root and returns the directory that
// must exist before the file is written, plus the full file path.
func EntryPath(root, name string) (dir, path string, err error) {
	d, f := SplitEntryName(name)
	if f == "" {
		return "", "", fmt.Errorf("%w: %q", ErrEmptyFileName, name)
	}
	if strings.HasPrefix(name, "/") || filepath.IsAbs(filepath.FromSlash(name)) {
		return "", "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}

	dir = filepath.Join(root, filepath.FromSlash(d))
	path = filepath.Join(dir, f)

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return dir, path, nil
}

// WriteFile creates dir (and its parents) and writes data to path, replacing
// any file already there.
func WriteFile(dir, path string, data []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
