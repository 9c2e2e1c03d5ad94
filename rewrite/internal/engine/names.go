package engine

import (
	"strconv"

	"github.com/wippyai/dynbind/il"
)

// Suffixes of the members generated for each rewritten method.
const (
	delegateSuffix = "Delegate"
	fieldSuffix    = "Ptr"
)

// Fields added to the target type by the initializer prologue.
const (
	tableFieldName  = "architecturePlatforms"
	handleFieldName = "nativeLibrary"
)

// namer hands out member names that do not collide with anything already
// declared on the target type.
type namer struct {
	target *il.TypeDef
	taken  map[string]bool
}

func newNamer(target *il.TypeDef) *namer {
	n := &namer{target: target, taken: make(map[string]bool)}
	for _, nt := range target.NestedTypes {
		n.taken[nt.Name] = true
	}
	for _, f := range target.Fields {
		n.taken[f.Name] = true
	}
	for _, m := range target.Methods {
		n.taken[m.Name] = true
	}
	return n
}

// unique returns name, or name with the smallest numeric suffix from 2
// that is free.
func (n *namer) unique(name string) string {
	candidate := name
	for i := 2; n.taken[candidate]; i++ {
		candidate = name + strconv.Itoa(i)
	}
	n.taken[candidate] = true
	return candidate
}

// stem returns a method-derived base name such that both the delegate and
// the field built from it are free. Overloads get a numeric suffix.
func (n *namer) stem(method string) string {
	candidate := method
	for i := 2; n.taken[candidate+delegateSuffix] || n.taken[candidate+fieldSuffix]; i++ {
		candidate = method + "_" + strconv.Itoa(i)
	}
	n.taken[candidate+delegateSuffix] = true
	n.taken[candidate+fieldSuffix] = true
	return candidate
}
