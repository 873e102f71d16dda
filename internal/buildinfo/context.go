// Package buildinfo contains build-time metadata and the per-run session identity,
// kept separate from user configuration.
package buildinfo

import "github.com/google/uuid"

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// BuildInfo provides access to build metadata.
type BuildInfo interface {
	GetVersion() string
	GetBuildDate() string
	GetSessionID() string
}

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string

	// SessionID identifies one run of the binary in logs and telemetry
	SessionID string
}

// NewContext returns build metadata with a fresh random session id.
func NewContext(version, buildDate string) *Context {
	return &Context{
		Version:   version,
		BuildDate: buildDate,
		SessionID: uuid.NewString(),
	}
}

func valueOr(v string) string {
	if v == "" {
		return UnknownValue
	}
	return v
}

// GetVersion implements BuildInfo.GetVersion
func (c *Context) GetVersion() string {
	if c == nil {
		return UnknownValue
	}
	return valueOr(c.Version)
}

// GetBuildDate implements BuildInfo.GetBuildDate
func (c *Context) GetBuildDate() string {
	if c == nil {
		return UnknownValue
	}
	return valueOr(c.BuildDate)
}

// GetSessionID implements BuildInfo.GetSessionID
func (c *Context) GetSessionID() string {
	if c == nil {
		return UnknownValue
	}
	return valueOr(c.SessionID)
}
