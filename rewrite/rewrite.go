package rewrite

import (
	"github.com/wippyai/dynbind/il"
	"github.com/wippyai/dynbind/rewrite/internal/engine"
)

// Architecture maps a processor architecture name to the platform
// qualifier of the native library file.
type Architecture = engine.Architecture

// Report describes the outcome of a rewrite.
type Report = engine.Report

// MethodReport records how one foreign import was rewritten.
type MethodReport = engine.MethodReport

// Config configures the rewrite. Zero fields take the values of
// DefaultConfig.
//
// The rewrite targets the foreign imports of TargetType bound to Library.
// The prologue replaces the call to Marker in the static initializer and
// loads the file Prefix + platform + Suffix, where platform is looked up in
// Architectures by the value of the Environment variable. Symbols are
// resolved through the HelperSymbol import of HelperLibrary.
type Config struct {
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

// DefaultConfig returns the configuration for System.Data.SQLite.
func DefaultConfig() Config {
	return Config{
		TargetType:    engine.DefaultTargetType,
		Library:       engine.DefaultLibrary,
		Marker:        engine.DefaultMarker,
		Prefix:        engine.DefaultPrefix,
		Suffix:        engine.DefaultSuffix,
		Environment:   engine.DefaultEnvironment,
		HelperLibrary: engine.DefaultHelperLibrary,
		HelperSymbol:  engine.DefaultHelperSymbol,
		Architectures: engine.DefaultArchitectures(),
	}
}

func (c Config) engine() *engine.Engine {
	return engine.New(engine.Config{
		Logger:        Logger(),
		TargetType:    c.TargetType,
		Library:       c.Library,
		Marker:        c.Marker,
		Prefix:        c.Prefix,
		Suffix:        c.Suffix,
		Environment:   c.Environment,
		HelperLibrary: c.HelperLibrary,
		HelperSymbol:  c.HelperSymbol,
		Architectures: c.Architectures,
	})
}

// Transform rewrites an encoded module and returns the encoded result.
//
// The input is decoded, rewritten, validated and encoded again. Nothing is
// returned unless every step succeeds.
func Transform(data []byte, cfg Config) ([]byte, *Report, error) {
	return cfg.engine().Transform(data)
}

// TransformModule rewrites m in place. On error m may be partially
// rewritten and should be discarded.
func TransformModule(m *il.Module, cfg Config) (*Report, error) {
	return cfg.engine().TransformModule(m)
}
