package session

import (
	"bytes"
	"encoding/json"
	"time"
)

// Data is the session record a handler reads and mutates.
type Data map[string]any

// Session is the per-request handle attached to the request context.
// Handlers mutate Values in place, replace it wholesale, or set it to nil
// to clear the session.
type Session struct {
	Values Data

	id       string
	original string // sid taken from the request cookie, empty for new sessions
	snapshot []byte
	maxAge   *time.Duration
	done     bool
}

func newSession(id, original string, values Data) *Session {
	s := &Session{
		Values:   values,
		id:       id,
		original: original,
	}
	// An unencodable initial record leaves the snapshot nil, which makes
	// Changed report true and the record gets written back.
	s.snapshot, _ = encode(values)
	return s
}

// ID returns the current session id.
func (s *Session) ID() string {
	return s.id
}

// IsNew reports whether the request carried no session cookie.
func (s *Session) IsNew() bool {
	return s.original == ""
}

// RegenerateID assigns a fresh session id. On commit the record moves to the
// new id and the old store entry is destroyed.
func (s *Session) RegenerateID() error {
	id, err := generateID()
	if err != nil {
		return err
	}
	s.id = id
	return nil
}

// SetMaxAge overrides the cookie max age for this request only.
// Negative durations are treated as zero, which yields a browser-session cookie.
func (s *Session) SetMaxAge(d time.Duration) {
	d = max(d, 0)
	s.maxAge = &d
}

// Changed reports whether Values differ from the record loaded for the request.
// Key order is irrelevant.
func (s *Session) Changed() bool {
	if s.snapshot == nil {
		return true
	}
	cur, err := encode(s.Values)
	if err != nil {
		return true
	}
	return !bytes.Equal(cur, s.snapshot)
}

// IsEmpty reports whether there is nothing to persist.
func (s *Session) IsEmpty() bool {
	return len(s.Values) == 0
}

// Get retrieves a value from session data.
func (s *Session) Get(key string) (any, bool) {
	if s == nil || s.Values == nil {
		return nil, false
	}
	v, ok := s.Values[key]
	return v, ok
}

// GetString retrieves a string value from session data.
func (s *Session) GetString(key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// GetInt retrieves an integer value. Numbers read back from a serializing
// store arrive as float64 and are converted when they hold a whole value.
func (s *Session) GetInt(key string) (int, bool) {
	v, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

// GetBool retrieves a boolean value from session data.
func (s *Session) GetBool(key string) (bool, bool) {
	v, ok := s.Get(key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Set stores a value in session data.
func (s *Session) Set(key string, value any) {
	if s.Values == nil {
		s.Values = make(Data)
	}
	s.Values[key] = value
}

// Delete removes a value from session data.
func (s *Session) Delete(key string) {
	delete(s.Values, key)
}

// Clear drops every value. The stored record and the cookie are removed on commit.
func (s *Session) Clear() {
	s.Values = nil
}

// encode produces the canonical form used for change detection.
// encoding/json writes map keys in sorted order.
func encode(v Data) ([]byte, error) {
	return json.Marshal(v)
}
