package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a start.gg identifier. The API returns most ids as JSON numbers but
// unfinished sets carry string ids such as "preview_123_1", so both forms
// decode into the same string-backed type.
type ID string

// UnmarshalJSON accepts a JSON string, a JSON number or null
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("failed to decode id %s: %w", string(data), err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the id as a plain string
func (id ID) String() string {
	return string(id)
}

// Less orders ids for display and tie-breaks. Numeric ids come first in
// numeric order; other ids follow in lexical order.
func (id ID) Less(other ID) bool {
	a, b := id.numeric(), other.numeric()
	switch {
	case a && b:
		if len(id) != len(other) {
			return len(id) < len(other)
		}
		return id < other
	case a != b:
		return a
	default:
		return id < other
	}
}

// numeric reports whether the id is a plain decimal number without leading zeros
func (id ID) numeric() bool {
	if id == "" || (len(id) > 1 && id[0] == '0') {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}
