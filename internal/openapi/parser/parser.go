package parser

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Operation is the subset of an OpenAPI operation the upload client needs to
// issue a request.
type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	ContentType string
	// FormFields lists the request body properties, sorted.
	FormFields []string
	// Secured reports whether a security requirement applies.
	Secured bool
}

// Options tunes parsing.
type Options struct {
	// Validate runs the kin-openapi document validation before extraction.
	Validate bool
}

// Parser converts raw OpenAPI documents into operations keyed by id.
type Parser struct {
	options Options
}

// New constructs a Parser with the given options.
func New(options Options) *Parser {
	return &Parser{options: options}
}

// Operations loads raw and returns every operation keyed by operationId.
func (p *Parser) Operations(ctx context.Context, raw []byte) (map[string]Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("openapi parser: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi parser: load document: %w", err)
	}
	if p.options.Validate {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi parser: validate: %w", err)
		}
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		return nil, errors.New("openapi parser: document does not contain any paths")
	}

	globalSecurity := len(spec.Security) > 0
	operations := make(map[string]Operation)
	for path, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			collected := collectOperation(method, path, op, globalSecurity)
			if _, dup := operations[collected.ID]; dup {
				return nil, fmt.Errorf("openapi parser: duplicate operation id %q", collected.ID)
			}
			operations[collected.ID] = collected
		}
	}

	if len(operations) == 0 {
		return nil, errors.New("openapi parser: no operations extracted")
	}
	return operations, nil
}

func collectOperation(method, path string, op *openapi3.Operation, globalSecurity bool) Operation {
	id := op.OperationID
	if id == "" {
		id = strings.ToLower(method) + ":" + path
	}
	out := Operation{
		ID:      id,
		Method:  strings.ToUpper(method),
		Path:    path,
		Summary: op.Summary,
		Secured: globalSecurity,
	}
	if op.Security != nil {
		out.Secured = len(*op.Security) > 0
	}
	out.ContentType, out.FormFields = requestFields(op.RequestBody)
	return out
}

func requestFields(body *openapi3.RequestBodyRef) (string, []string) {
	if body == nil || body.Value == nil {
		return "", nil
	}
	for _, mediaType := range []string{"multipart/form-data", "application/x-www-form-urlencoded", "application/json"} {
		mt, ok := body.Value.Content[mediaType]
		if !ok || mt == nil {
			continue
		}
		return mediaType, propertyNames(mt.Schema)
	}
	return "", nil
}

func propertyNames(ref *openapi3.SchemaRef) []string {
	if ref == nil || ref.Value == nil || len(ref.Value.Properties) == 0 {
		return nil
	}
	names := make([]string, 0, len(ref.Value.Properties))
	for name := range ref.Value.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
