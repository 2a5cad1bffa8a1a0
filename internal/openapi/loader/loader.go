// Package loader reads API contract documents from disk, an fs.FS or over
// HTTP. Parsing is left to the caller.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"
)

// maxDocumentSize bounds a fetched document.
const maxDocumentSize = 8 << 20

// Option configures a Loader.
type Option func(*Loader)

// WithFS resolves "fs:" locations against files.
func WithFS(files fs.FS) Option {
	return func(l *Loader) {
		l.fs = files
	}
}

// WithHTTPClient enables http(s) locations. Without it URLs are rejected.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Loader) {
		l.http = client
	}
}

// WithTimeout bounds HTTP fetches.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// Loader fetches raw documents by location.
type Loader struct {
	fs      fs.FS
	http    *http.Client
	timeout time.Duration
}

// New constructs a Loader.
func New(options ...Option) *Loader {
	l := &Loader{}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Load reads location. "http://" and "https://" locations are fetched,
// "fs:<path>" is read from the configured fs.FS and anything else is a local
// file path.
func (l *Loader) Load(ctx context.Context, location string) ([]byte, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("openapi loader: location is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		if l.http == nil {
			return nil, errors.New("openapi loader: http support disabled")
		}
		return l.loadHTTP(ctx, location)
	case strings.HasPrefix(location, "fs:"):
		return l.loadFS(strings.TrimPrefix(location, "fs:"))
	default:
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("openapi loader: read %s: %w", location, err)
		}
		return data, nil
	}
}

func (l *Loader) loadFS(name string) ([]byte, error) {
	if l.fs == nil {
		return nil, errors.New("openapi loader: filesystem is not configured")
	}
	if name == "" {
		return nil, errors.New("openapi loader: fs path is required")
	}
	data, err := fs.ReadFile(l.fs, name)
	if err != nil {
		return nil, fmt.Errorf("openapi loader: read fs:%s: %w", name, err)
	}
	return data, nil
}

func (l *Loader) loadHTTP(ctx context.Context, url string) ([]byte, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("openapi loader: build request: %w", err)
	}
	req.Header.Set("Accept", "application/yaml, application/json")

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openapi loader: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("openapi loader: fetch %s: %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("openapi loader: read %s: %w", url, err)
	}
	return data, nil
}
