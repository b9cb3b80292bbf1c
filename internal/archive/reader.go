package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
)

var (
	// ErrCorruptArchive marks an archive that cannot be opened or read.
	ErrCorruptArchive = errors.New("corrupt archive")
	// ErrPasswordProtected marks an encrypted archive.
	ErrPasswordProtected = errors.New("password protected archive")
)

// entry is one file inside an archive, independent of the container format.
type entry struct {
	name string // slash-separated path inside the archive
	size int64
	open func() (io.ReadCloser, error)
}

// reader is a uniform view over a zip or 7z archive.
type reader struct {
	entries []entry
	close   func() error
}

// openArchive opens path with the reader matching its extension.
func openArchive(path string) (*reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return openZip(path)
	case ".7z":
		return openSevenZip(path)
	default:
		return nil, fmt.Errorf("%w: unsupported container %s", ErrCorruptArchive, filepath.Base(path))
	}
}

func openZip(path string) (*reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, filepath.Base(path), err)
	}

	entries := make([]entry, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		// Bit 0 of the general purpose flags marks an encrypted entry;
		// archive/zip cannot decrypt those.
		if f.Flags&0x1 != 0 {
			zr.Close()
			return nil, fmt.Errorf("%w: %s", ErrPasswordProtected, filepath.Base(path))
		}
		file := f
		entries = append(entries, entry{
			name: file.Name,
			size: int64(file.UncompressedSize64),
			open: func() (io.ReadCloser, error) { return file.Open() },
		})
	}
	return &reader{entries: entries, close: zr.Close}, nil
}

func openSevenZip(path string) (*reader, error) {
	szr, err := sevenzip.OpenReader(path)
	if err != nil {
		if isPasswordErr(err) {
			return nil, fmt.Errorf("%w: %s", ErrPasswordProtected, filepath.Base(path))
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, filepath.Base(path), err)
	}

	entries := make([]entry, 0, len(szr.File))
	for _, f := range szr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		file := f
		entries = append(entries, entry{
			name: file.Name,
			size: file.FileInfo().Size(),
			open: func() (io.ReadCloser, error) { return file.Open() },
		})
	}
	return &reader{entries: entries, close: szr.Close}, nil
}

func isPasswordErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypt")
}
