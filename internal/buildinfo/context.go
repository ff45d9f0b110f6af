// Package buildinfo contains build-time metadata kept apart from user configuration.
package buildinfo

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// Context holds values injected with -ldflags at build time.
type Context struct {
	// Version is the git version tag
	Version string
	// BuildDate is when the binary was built
	BuildDate string
}

// NewContext returns build metadata.
func NewContext(version, buildDate string) *Context {
	return &Context{Version: version, BuildDate: buildDate}
}

// GetVersion returns the version or UnknownValue.
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date or UnknownValue.
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// Release is the release name attached to error reports, e.g. "visitprep@1.2.0".
func (c *Context) Release() string {
	return "visitprep@" + c.GetVersion()
}
