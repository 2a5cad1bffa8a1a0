package users

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// UnknownUsername is shown when a record carries none of the username aliases.
const UnknownUsername = "Unknown"

// UserID is an identifier as sent by the API. Numbers and strings are both
// accepted and kept in their textual form.
type UserID struct {
	value   string
	numeric bool
}

// NumericID builds a numeric identifier.
func NumericID(n int64) UserID {
	return UserID{value: strconv.FormatInt(n, 10), numeric: true}
}

// StringID builds a textual identifier.
func StringID(s string) UserID {
	return UserID{value: s}
}

// String returns the identifier as sent in form fields.
func (id UserID) String() string {
	return id.value
}

// IsZero reports whether the identifier is unset.
func (id UserID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON keeps numeric identifiers numeric.
func (id UserID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON accepts a JSON number or string. null and "" are rejected
// with ErrMissingID.
func (id *UserID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ErrMissingID
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("%w: id: %v", ErrMalformedPayload, err)
		}
		if strings.TrimSpace(s) == "" {
			return ErrMissingID
		}
		*id = UserID{value: s}
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return fmt.Errorf("%w: id must be a number or string", ErrMalformedPayload)
		}
		*id = UserID{value: n.String(), numeric: true}
		return nil
	}
}

// SelectableUser is one entry of the user picker.
type SelectableUser struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

// Label renders the user the way the picker shows it.
func (u SelectableUser) Label() string {
	return u.Username
}
