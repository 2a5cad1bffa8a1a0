package users

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedPayload reports a payload that is neither a user array nor
	// an object carrying a users array.
	ErrMalformedPayload = errors.New("users: malformed payload")
	// ErrMissingID reports a user record without an id.
	ErrMissingID = errors.New("users: record without id")
)

// Shape tags the envelope a payload arrived in.
type Shape int

const (
	// ShapeList is a bare JSON array of records.
	ShapeList Shape = iota + 1
	// ShapeEnvelope is an object holding the records under "users".
	ShapeEnvelope
)

func (s Shape) String() string {
	switch s {
	case ShapeList:
		return "list"
	case ShapeEnvelope:
		return "envelope"
	default:
		return "unknown"
	}
}

// Record is one raw user record. The display name may arrive under any of
// three keys.
type Record struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
	UserName string `json:"userName"`
	Name     string `json:"name"`
}

// DisplayName picks the first non-empty alias, or UnknownUsername. A
// whitespace-only alias counts as non-empty.
func (r Record) DisplayName() string {
	for _, candidate := range []string{r.Username, r.UserName, r.Name} {
		if candidate != "" {
			return candidate
		}
	}
	return UnknownUsername
}

// Payload is a decoded /profile/all response.
type Payload struct {
	Shape   Shape
	Records []Record
}

// Users normalises the records.
func (p Payload) Users() []SelectableUser {
	out := make([]SelectableUser, 0, len(p.Records))
	for _, rec := range p.Records {
		out = append(out, SelectableUser{ID: rec.ID, Username: rec.DisplayName()})
	}
	return out
}

// DecodePayload decodes either accepted response shape. Any other shape is
// ErrMalformedPayload; records without an id are ErrMissingID.
func DecodePayload(data []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Payload{}, fmt.Errorf("%w: empty body", ErrMalformedPayload)
	}

	switch trimmed[0] {
	case '[':
		records, err := decodeRecords(trimmed)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Shape: ShapeList, Records: records}, nil
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		users := bytes.TrimSpace(envelope["users"])
		if len(users) == 0 || users[0] != '[' {
			return Payload{}, fmt.Errorf("%w: object without users array", ErrMalformedPayload)
		}
		records, err := decodeRecords(users)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Shape: ShapeEnvelope, Records: records}, nil
	default:
		return Payload{}, fmt.Errorf("%w: expected array or object", ErrMalformedPayload)
	}
}

func decodeRecords(data []byte) ([]Record, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	records := make([]Record, 0, len(raw))
	for i, item := range raw {
		rec, err := decodeRecord(item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// decodeRecord looks keys up exactly; encoding/json struct tags would also
// match "ID" or "Username".
func decodeRecord(item json.RawMessage) (Record, error) {
	item = bytes.TrimSpace(item)
	if len(item) == 0 || item[0] != '{' {
		return Record{}, fmt.Errorf("%w: not an object", ErrMalformedPayload)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var rec Record
	rawID, ok := fields["id"]
	if !ok {
		return Record{}, ErrMissingID
	}
	if err := json.Unmarshal(rawID, &rec.ID); err != nil {
		return Record{}, err
	}
	if rec.ID.IsZero() {
		return Record{}, ErrMissingID
	}

	aliases := []struct {
		key  string
		dest *string
	}{
		{"username", &rec.Username},
		{"userName", &rec.UserName},
		{"name", &rec.Name},
	}
	for _, alias := range aliases {
		raw, ok := fields[alias.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, alias.dest); err != nil {
			return Record{}, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, alias.key, err)
		}
	}
	return rec, nil
}
