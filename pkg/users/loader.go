package users

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goliatone/go-certupload/pkg/api"
)

// maxPayloadBytes bounds the user list body.
const maxPayloadBytes = 4 << 20

// StatusError reports a non-2xx user list response.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	text := strings.TrimSpace(strings.TrimPrefix(e.Status, fmt.Sprint(e.StatusCode)))
	if text == "" {
		text = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("Failed to fetch users: %s", text)
}

// Loader fetches the user list.
type Loader struct {
	client *api.Client
}

// NewLoader returns a loader issuing requests through client.
func NewLoader(client *api.Client) *Loader {
	return &Loader{client: client}
}

// Load issues one authenticated GET and returns the normalised list.
func (l *Loader) Load(ctx context.Context, token string) ([]SelectableUser, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("users: loader has no client")
	}
	req, err := l.client.NewRequest(ctx, api.OperationListUsers, token, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("users: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPayloadBytes))
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("users: read body: %w", err)
	}
	payload, err := DecodePayload(body)
	if err != nil {
		return nil, err
	}
	return payload.Users(), nil
}
