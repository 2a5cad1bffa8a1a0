package upload

import (
	"errors"
	"fmt"
)

var (
	// ErrSubmitInFlight is returned when Submit is called while a previous
	// submission has not resolved yet.
	ErrSubmitInFlight = errors.New("upload: submission in flight")
	// ErrTornDown is returned by operations on a torn down controller.
	ErrTornDown = errors.New("upload: controller torn down")
	// ErrUnknownUser reports a selection that is not in the user list.
	ErrUnknownUser = errors.New("upload: unknown user")
)

// Field names a validated form field.
type Field string

const (
	FieldTemplateName Field = "templateName"
	FieldImageType    Field = "imageType"
	FieldUser         Field = "createdBy"
	FieldJRXML        Field = "jrxml"
)

// ValidationError is a local, pre-network rejection.
type ValidationError struct {
	Field   Field
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("upload: %s: %s", e.Field, e.Message)
}

// RejectedError is a non-2xx answer from the template endpoint. Message is
// the response body as text.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upload: rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("upload: rejected with status %d: %s", e.StatusCode, e.Message)
}

// TransportError wraps a failure to reach the server or to build the request.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "upload: transport failure"
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
