package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrMalformedSession indicates the snapshot document could not be decoded.
// Flattening a half-parsed session is never attempted; callers surface this
// error instead of rendering a partial timeline.
var ErrMalformedSession = errors.New("malformed session document")

// Parse decodes a session snapshot document.
func Parse(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}
	if s.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session_id", ErrMalformedSession)
	}
	return &s, nil
}

// Load reads and decodes a session snapshot from a file.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session snapshot: %w", err)
	}
	return Parse(data)
}
