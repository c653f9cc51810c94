package acquire

import (
	"bytes"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// File is a candidate input file with a declared MIME type.
type File interface {
	// Name is the base file name.
	Name() string

	// Type is the declared MIME type. It is not verified against the content.
	Type() string

	// Open returns a reader over the file content.
	Open() (io.ReadCloser, error)
}

// DiskFile is a File backed by a path on disk. Its declared type is derived
// from the file extension, the way a platform file picker reports it.
type DiskFile struct {
	Path string
}

func (f DiskFile) Name() string { return filepath.Base(f.Path) }

func (f DiskFile) Type() string { return mime.TypeByExtension(filepath.Ext(f.Path)) }

func (f DiskFile) Open() (io.ReadCloser, error) { return os.Open(f.Path) }

// MemFile is an in-memory File.
type MemFile struct {
	FileName string
	MimeType string
	Data     []byte
}

func (f MemFile) Name() string { return f.FileName }

func (f MemFile) Type() string { return f.MimeType }

func (f MemFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.Data)), nil
}
