package engine

import (
	"testing"

	"github.com/wippyai/dynbind/il"
)

func TestNamer_Unique(t *testing.T) {
	typ := &il.TypeDef{Name: "T"}
	typ.AddField(&il.FieldDef{Name: "nativeLibrary"})
	typ.AddMethod(&il.MethodDef{Name: "GetProcAddress"})
	n := newNamer(typ)

	tests := []struct {
		in   string
		want string
	}{
		{"nativeLibrary", "nativeLibrary2"},
		{"nativeLibrary", "nativeLibrary3"},
		{"GetProcAddress", "GetProcAddress2"},
		{"fresh", "fresh"},
		{"fresh", "fresh2"},
	}
	for _, tt := range tests {
		if got := n.unique(tt.in); got != tt.want {
			t.Errorf("unique(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNamer_StemOverloads(t *testing.T) {
	typ := &il.TypeDef{Name: "T"}
	typ.AddField(&il.FieldDef{Name: "closePtr"})
	n := newNamer(typ)

	tests := []struct {
		in   string
		want string
	}{
		{"bind", "bind"},
		{"bind", "bind_2"},
		{"bind", "bind_3"},
		{"close", "close_2"},
	}
	for _, tt := range tests {
		if got := n.stem(tt.in); got != tt.want {
			t.Errorf("stem(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{Library: "custom.dll"}.withDefaults()
	if cfg.Library != "custom.dll" {
		t.Errorf("library overridden: %q", cfg.Library)
	}
	if cfg.TargetType != DefaultTargetType || cfg.Marker != DefaultMarker || cfg.Environment != DefaultEnvironment {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Logger == nil {
		t.Error("logger not defaulted")
	}
	want := []Architecture{{"x86", "Win32"}, {"AMD64", "x64"}, {"IA64", "Itanium"}, {"ARM", "WinCE"}}
	if len(cfg.Architectures) != len(want) {
		t.Fatalf("got %d architectures", len(cfg.Architectures))
	}
	for i, a := range want {
		if cfg.Architectures[i] != a {
			t.Errorf("architecture %d: got %+v, want %+v", i, cfg.Architectures[i], a)
		}
	}
}
