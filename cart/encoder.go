package cart

import (
	"encoding/json"
	"fmt"
)

// CurrentSchemaVersion is the leading byte of every encoded session blob.
const CurrentSchemaVersion byte = 1

// Encode serializes s as a schema version byte followed by its JSON form.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil session", ErrSessionCorrupt)
	}
	if s.CustomerID == "" {
		return nil, fmt.Errorf("%w: empty customer id", ErrSessionCorrupt)
	}

	body, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(body)+1)
	out = append(out, CurrentSchemaVersion)
	return append(out, body...), nil
}

// Decode parses a blob produced by [Encode]. Any malformed input yields
// [ErrSessionCorrupt].
func Decode(data []byte) (*Session, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: short blob", ErrSessionCorrupt)
	}
	if data[0] != CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: unsupported session schema version %d", ErrSessionCorrupt, data[0])
	}

	var s Session
	if err := json.Unmarshal(data[1:], &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	if s.CustomerID == "" {
		return nil, fmt.Errorf("%w: empty customer id", ErrSessionCorrupt)
	}
	if s.Items == nil {
		s.Items = []Item{}
	}
	return &s, nil
}
