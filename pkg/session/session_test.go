package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStatic(t *testing.T) {
	token, err := Static(" abc ").Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if token != "abc" {
		t.Fatalf("expected abc, got %q", token)
	}

	if _, err := Static("").Token(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestFile_MissingFileHasNoToken(t *testing.T) {
	src := NewFile(filepath.Join(t.TempDir(), "session.yaml"))
	if _, err := src.Token(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestFile_ReadsAuthToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := os.WriteFile(path, []byte("authToken: secret\nother: 1\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	token, err := NewFile(path).Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if token != "secret" {
		t.Fatalf("expected secret, got %q", token)
	}
}

func TestFile_SaveKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := os.WriteFile(path, []byte("theme: dark\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	src := NewFile(path)
	if err := src.Save("fresh"); err != nil {
		t.Fatalf("save: %v", err)
	}
	token, err := src.Token()
	if err != nil || token != "fresh" {
		t.Fatalf("expected fresh token, got %q (%v)", token, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(data); !strings.Contains(got, "theme: dark") {
		t.Fatalf("expected other keys preserved, got %q", got)
	}
}

func TestFile_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := os.WriteFile(path, []byte("authToken: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := NewFile(path).Token()
	if err == nil || errors.Is(err, ErrNoToken) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestFirst(t *testing.T) {
	src := First(Static(""), Static("second"))
	token, err := src.Token()
	if err != nil || token != "second" {
		t.Fatalf("expected second, got %q (%v)", token, err)
	}

	boom := errors.New("boom")
	src = First(TokenSourceFunc(func() (string, error) { return "", boom }), Static("never"))
	if _, err := src.Token(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := First().Token(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}
