package domain

import "github.com/chimera-systems/chimera/internal/errors"

// SessionId is an opaque, non-empty identifier for a persistent session
// hosted by a SessionPort implementation.
type SessionId string

// NewSessionId validates and constructs a SessionId.
func NewSessionId(s string) (SessionId, error) {
	if s == "" {
		return "", errors.Validation("session_id.new", "session id must not be empty")
	}
	return SessionId(s), nil
}

// String returns the underlying value.
func (s SessionId) String() string {
	return string(s)
}

// ConfigPath is a path string to a declarative configuration. The core
// treats it as an opaque token passed to BuildPort; it never interprets
// the path's contents.
type ConfigPath string

// NewConfigPath validates and constructs a ConfigPath.
func NewConfigPath(s string) (ConfigPath, error) {
	if s == "" {
		return "", errors.Validation("config_path.new", "config path must not be empty")
	}
	return ConfigPath(s), nil
}

// String returns the underlying value.
func (c ConfigPath) String() string {
	return string(c)
}
