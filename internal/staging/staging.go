// Package staging copies uploads to request-scoped temporary files.
package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spherical/pitch-analyzer/internal/domain"
)

// ErrTooLarge is returned when an upload exceeds the staging limit.
var ErrTooLarge = errors.New("upload exceeds size limit")

// File is a staged upload. Cleanup removes it and may be called repeatedly.
type File struct {
	Path string
	Name string
	Size int64

	once sync.Once
	err  error
}

// Cleanup removes the staged file.
func (f *File) Cleanup() error {
	f.once.Do(func() {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			f.err = err
		}
	})
	return f.err
}

// Stage copies r into a new temp file under dir, keeping the extension of
// name. A positive limit caps the number of bytes accepted.
func Stage(dir, name string, r io.Reader, limit int64) (*File, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	ext := strings.ToLower(filepath.Ext(name))

	tmp, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return nil, domain.IOError("create temp file", err)
	}

	f := &File{Path: tmp.Name(), Name: filepath.Base(name)}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, copyErr := io.Copy(tmp, src)
	closeErr := tmp.Close()

	switch {
	case copyErr != nil:
		f.Cleanup()
		return nil, domain.IOError("write temp file", copyErr)
	case closeErr != nil:
		f.Cleanup()
		return nil, domain.IOError("close temp file", closeErr)
	case limit > 0 && n > limit:
		f.Cleanup()
		return nil, domain.ValidationError(fmt.Sprintf("file exceeds %d bytes", limit), ErrTooLarge)
	}

	f.Size = n
	return f, nil
}

// TempDir creates a request-scoped directory and returns a function that
// removes it with everything inside.
func TempDir(parent, pattern string) (string, func(), error) {
	dir, err := os.MkdirTemp(parent, pattern)
	if err != nil {
		return "", func() {}, domain.IOError("create temp directory", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}
