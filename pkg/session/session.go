// Package session supplies the bearer token the upload controller reads once
// at mount. Sources are injected so the controller never touches ambient
// storage directly.
package session

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TokenKey is the key holding the bearer token inside a session file.
const TokenKey = "authToken"

// ErrNoToken reports that the source holds no token. Callers treat it as
// "not signed in" rather than as a failure.
var ErrNoToken = errors.New("session: no token")

// TokenSource resolves the bearer token used for API calls.
type TokenSource interface {
	Token() (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func() (string, error)

// Token implements TokenSource.
func (fn TokenSourceFunc) Token() (string, error) {
	return fn()
}

// Static returns a source that always yields token. An empty token yields
// ErrNoToken.
func Static(token string) TokenSource {
	token = strings.TrimSpace(token)
	return TokenSourceFunc(func() (string, error) {
		if token == "" {
			return "", ErrNoToken
		}
		return token, nil
	})
}

// File reads the token from a YAML session file:
//
//	authToken: eyJhbGciOi...
//
// A missing file or a missing key yields ErrNoToken.
type File struct {
	Path string
}

// NewFile returns a session file source rooted at path.
func NewFile(path string) *File {
	return &File{Path: strings.TrimSpace(path)}
}

// Token implements TokenSource.
func (f *File) Token() (string, error) {
	if f == nil || f.Path == "" {
		return "", ErrNoToken
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("session: read %s: %w", f.Path, err)
	}

	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return "", fmt.Errorf("session: decode %s: %w", f.Path, err)
	}
	raw, ok := values[TokenKey]
	if !ok || raw == nil {
		return "", ErrNoToken
	}
	token := strings.TrimSpace(fmt.Sprint(raw))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Save writes token to the session file, keeping other keys intact.
func (f *File) Save(token string) error {
	if f == nil || f.Path == "" {
		return errors.New("session: file path is required")
	}
	values := map[string]any{}
	if data, err := os.ReadFile(f.Path); err == nil {
		if err := yaml.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("session: decode %s: %w", f.Path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: read %s: %w", f.Path, err)
	}
	if values == nil {
		values = map[string]any{}
	}
	values[TokenKey] = token

	out, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := os.WriteFile(f.Path, out, 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", f.Path, err)
	}
	return nil
}

// First returns a source that tries each source in order and yields the first
// token found. Errors other than ErrNoToken stop the search.
func First(sources ...TokenSource) TokenSource {
	return TokenSourceFunc(func() (string, error) {
		for _, src := range sources {
			if src == nil {
				continue
			}
			token, err := src.Token()
			if err == nil && token != "" {
				return token, nil
			}
			if err != nil && !errors.Is(err, ErrNoToken) {
				return "", err
			}
		}
		return "", ErrNoToken
	})
}
