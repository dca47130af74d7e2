// Package session tracks the current identity, decides when an existing
// login can be reused, and logs out selected principals.
package session

import "github.com/carved4/kvwalk/internal/cloud"

// Current holds the identity every audit record is attributed to.
// The zero value is "unset".
type Current struct {
	s *cloud.Session
}

// Principal implements audit.Principal.
func (c *Current) Principal() string {
	if c == nil || c.s == nil {
		return ""
	}
	return c.s.Name
}

// Get returns a copy of the current session, or nil when unset.
func (c *Current) Get() *cloud.Session {
	if c.s == nil {
		return nil
	}
	s := *c.s
	return &s
}

func (c *Current) Set(s cloud.Session) {
	c.s = &s
}

func (c *Current) Clear() {
	c.s = nil
}

// Is reports whether name is the current principal.
func (c *Current) Is(name string) bool {
	return c.s != nil && c.s.Name == name
}
