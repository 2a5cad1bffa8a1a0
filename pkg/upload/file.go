package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const defaultContentType = "application/octet-stream"

// File is a selected file. Content is opened lazily at submission time.
type File struct {
	Name        string
	ContentType string
	Size        int64
	open        func() (io.ReadCloser, error)
}

// NewFile wraps an arbitrary content source.
func NewFile(name, contentType string, open func() (io.ReadCloser, error)) File {
	if contentType == "" {
		contentType = contentTypeFor(name, nil)
	}
	return File{Name: name, ContentType: contentType, open: open}
}

// MemFile holds data in memory.
func MemFile(name string, data []byte) File {
	buf := append([]byte(nil), data...)
	return File{
		Name:        name,
		ContentType: contentTypeFor(name, buf),
		Size:        int64(len(buf)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(buf)), nil
		},
	}
}

// DiskFile references a regular file on disk.
func DiskFile(path string) (File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return File{}, errors.New("upload: file path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("upload: stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return File{}, fmt.Errorf("upload: %s is not a regular file", path)
	}
	return File{
		Name:        filepath.Base(path),
		ContentType: contentTypeFor(path, nil),
		Size:        info.Size(),
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// DiskFiles resolves every path, stopping at the first failure.
func DiskFiles(paths ...string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		f, err := DiskFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// Open returns the file content.
func (f File) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("upload: %s has no content", f.Name)
	}
	return f.open()
}

func contentTypeFor(name string, sniff []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	if len(sniff) > 0 {
		return http.DetectContentType(sniff)
	}
	return defaultContentType
}
