// Package testsupport holds shared test helpers: a fake backend bound to an
// httptest server, fixture files on disk and template output capture.
package testsupport

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-certupload/internal/fakeapi"
)

// Token is the bearer token StartBackend requires unless overridden.
const Token = "test-token"

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// StartBackend serves a fake backend requiring Token. Extra options are
// applied after the token so they can override it. The server is closed when
// the test ends.
func StartBackend(t *testing.T, options ...fakeapi.Option) (*fakeapi.Server, *httptest.Server) {
	t.Helper()
	backend := fakeapi.New(append([]fakeapi.Option{fakeapi.WithToken(Token)}, options...)...)
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	return backend, srv
}

// DefaultFixtures are the files WriteFixtures creates when given none.
func DefaultFixtures() map[string]string {
	return map[string]string{
		"main.jrxml": "<jasperReport/>",
		"seal.png":   "\x89PNG\r\n\x1a\n",
		"logo.png":   "\x89PNG\r\n\x1a\n",
	}
}

// WriteFixtures writes files into a fresh temp dir and returns it.
func WriteFixtures(t *testing.T, files map[string]string) string {
	t.Helper()
	if files == nil {
		files = DefaultFixtures()
	}
	dir := t.TempDir()
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir fixture dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write fixture %s: %v", name, err)
		}
	}
	return dir
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	return out, buf.String()
}
