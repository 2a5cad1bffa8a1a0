// Package preview issues locally scoped references to selected image files.
// Every reference is owned by a Registry and stays valid until released.
package preview

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// RefScheme prefixes every reference.
const RefScheme = "blob:"

// ErrReleased reports a lookup of a released or unknown reference.
var ErrReleased = errors.New("preview: reference released")

// Ref identifies a preview, e.g. "blob:6f1c...".
type Ref string

// ID returns the reference without its scheme.
func (r Ref) ID() string {
	return strings.TrimPrefix(string(r), RefScheme)
}

// Opener returns a fresh reader for the previewed content.
type Opener func() (io.ReadCloser, error)

// Entry is a live preview.
type Entry struct {
	Ref         Ref
	Name        string
	ContentType string
	open        Opener
}

// Open returns the previewed content.
func (e Entry) Open() (io.ReadCloser, error) {
	if e.open == nil {
		return nil, fmt.Errorf("preview: %s has no content", e.Ref)
	}
	return e.open()
}

// Registry owns preview references. It is safe for concurrent use and serves
// live previews over HTTP at "/<id>".
type Registry struct {
	mu      sync.RWMutex
	entries map[Ref]Entry
	newID   func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithIDGenerator overrides the reference id source.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(options ...Option) *Registry {
	r := &Registry{
		entries: make(map[Ref]Entry),
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Create registers content and returns its reference.
func (r *Registry) Create(name, contentType string, open Opener) Ref {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref := Ref(RefScheme + r.newID())
	for {
		if _, taken := r.entries[ref]; !taken {
			break
		}
		ref = Ref(RefScheme + r.newID())
	}
	r.entries[ref] = Entry{
		Ref:         ref,
		Name:        name,
		ContentType: contentType,
		open:        open,
	}
	return ref
}

// Release invalidates refs. Unknown refs are ignored.
func (r *Registry) Release(refs ...Ref) {
	if len(refs) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range refs {
		delete(r.entries, ref)
	}
}

// Lookup returns the live entry for ref.
func (r *Registry) Lookup(ref Ref) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[ref]
	if !ok {
		return Entry{}, ErrReleased
	}
	return entry, nil
}

// Len reports how many references are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Close releases every reference.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[Ref]Entry)
	return nil
}

// ServeHTTP streams the previewed bytes for GET /<id>.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.Trim(req.URL.Path, "/")
	entry, err := r.Lookup(Ref(RefScheme + id))
	if err != nil {
		http.NotFound(w, req)
		return
	}
	rc, err := entry.Open()
	if err != nil {
		http.Error(w, "preview unavailable", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	if entry.ContentType != "" {
		w.Header().Set("Content-Type", entry.ContentType)
	}
	w.Header().Set("Cache-Control", "no-store")
	if req.Method == http.MethodHead {
		return
	}
	_, _ = io.Copy(w, rc)
}
