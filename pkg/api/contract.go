package api

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-certupload/internal/openapi/parser"
)

// Operation ids used by the upload controller.
const (
	OperationListUsers      = "listUsers"
	OperationCreateTemplate = "createTemplate"
)

// Operation aliases the parsed operation metadata.
type Operation = parser.Operation

//go:embed openapi.yaml
var embeddedContract []byte

// Contract indexes the backend operations by id.
type Contract struct {
	operations map[string]Operation
}

// ParseContract builds a Contract from a raw OpenAPI document.
func ParseContract(ctx context.Context, raw []byte) (*Contract, error) {
	ops, err := parser.New(parser.Options{Validate: true}).Operations(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &Contract{operations: ops}, nil
}

var (
	defaultOnce     sync.Once
	defaultContract *Contract
	defaultErr      error
)

// DefaultContract returns the contract compiled into the binary.
func DefaultContract() (*Contract, error) {
	defaultOnce.Do(func() {
		defaultContract, defaultErr = ParseContract(context.Background(), embeddedContract)
	})
	return defaultContract, defaultErr
}

// RawContract returns a copy of the embedded OpenAPI document.
func RawContract() []byte {
	return append([]byte(nil), embeddedContract...)
}

// Operation resolves an operation by id.
func (c *Contract) Operation(id string) (Operation, bool) {
	if c == nil {
		return Operation{}, false
	}
	op, ok := c.operations[id]
	return op, ok
}

// MustOperation resolves an operation or returns a descriptive error.
func (c *Contract) MustOperation(id string) (Operation, error) {
	op, ok := c.Operation(id)
	if !ok {
		return Operation{}, fmt.Errorf("api: unknown operation %q", id)
	}
	return op, nil
}

// IDs lists the known operation ids, sorted.
func (c *Contract) IDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.operations))
	for id := range c.operations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
