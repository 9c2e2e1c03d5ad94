package engine

import (
	"go.uber.org/zap"
)

// Defaults for a System.Data.SQLite assembly.
const (
	DefaultTargetType    = "System.Data.SQLite.UnsafeNativeMethods"
	DefaultLibrary       = "SQLite.Interop.dll"
	DefaultMarker        = "Initialize"
	DefaultPrefix        = "SQLite.Interop."
	DefaultSuffix        = ".dll"
	DefaultEnvironment   = "PROCESSOR_ARCHITECTURE"
	DefaultHelperLibrary = "kernel32.dll"
	DefaultHelperSymbol  = "GetProcAddress"
)

// Architecture maps a processor architecture name, as reported by the
// environment, to the platform qualifier of the native library file.
type Architecture struct {
	Name     string
	Platform string
}

// DefaultArchitectures returns the architecture table in insertion order.
func DefaultArchitectures() []Architecture {
	return []Architecture{
		{Name: "x86", Platform: "Win32"},
		{Name: "AMD64", Platform: "x64"},
		{Name: "IA64", Platform: "Itanium"},
		{Name: "ARM", Platform: "WinCE"},
	}
}

// Config configures the rewrite engine. Zero fields take their defaults.
type Config struct {
	Logger        *zap.Logger
	TargetType    string
	Library       string
	Marker        string
	Prefix        string
	Suffix        string
	Environment   string
	HelperLibrary string
	HelperSymbol  string
	Architectures []Architecture
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.TargetType == "" {
		c.TargetType = DefaultTargetType
	}
	if c.Library == "" {
		c.Library = DefaultLibrary
	}
	if c.Marker == "" {
		c.Marker = DefaultMarker
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Suffix == "" {
		c.Suffix = DefaultSuffix
	}
	if c.Environment == "" {
		c.Environment = DefaultEnvironment
	}
	if c.HelperLibrary == "" {
		c.HelperLibrary = DefaultHelperLibrary
	}
	if c.HelperSymbol == "" {
		c.HelperSymbol = DefaultHelperSymbol
	}
	if len(c.Architectures) == 0 {
		c.Architectures = DefaultArchitectures()
	}
	return c
}
