// internal/models/id.go
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ID identifies a player or a room. IDs are random values from the full uint32 range
// and travel over the wire as decimal strings.
type ID uint32

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID parses the decimal form produced by String.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return ID(v), nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON accepts both the string form and a bare JSON number.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n uint32
		if numErr := json.Unmarshal(data, &n); numErr != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		*id = ID(n)
		return nil
	}
	parsed, err := ParseID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
