// Package certupload is the entry point for embedding the certificate template
// upload client. It wires the API client, the embedded contract and the form
// controller with their defaults.
package certupload

import (
	"io/fs"

	"github.com/goliatone/go-certupload/pkg/api"
	"github.com/goliatone/go-certupload/pkg/renderers/html"
	"github.com/goliatone/go-certupload/pkg/upload"
)

// DefaultBaseURL is the backend used when none is configured.
const DefaultBaseURL = api.DefaultBaseURL

// NewClient builds an API client for baseURL against the embedded contract.
func NewClient(baseURL string, options ...api.Option) (*api.Client, error) {
	return api.NewClient(baseURL, options...)
}

// NewController builds a form controller talking to baseURL with a default
// HTTP client. Use upload.NewController directly to customise the client.
func NewController(baseURL string, options ...upload.Option) (*upload.Controller, error) {
	client, err := api.NewClient(baseURL)
	if err != nil {
		return nil, err
	}
	return upload.NewController(client, options...)
}

// Contract returns the embedded OpenAPI document describing the backend.
func Contract() []byte {
	return api.RawContract()
}

// EmbeddedTemplates exposes the HTML summary templates so callers can copy
// and override them.
func EmbeddedTemplates() fs.FS {
	return html.Templates()
}
