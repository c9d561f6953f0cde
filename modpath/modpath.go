// Package modpath models hierarchical module paths for shader files.
//
// A module path is derived once, from a file's location relative to the shader
// root, and never changes afterwards. Directory names become path components and
// the file stem becomes the leaf component.
package modpath

import (
	"fmt"
	"strings"
)

// Separator joins components in the textual form of a path.
const Separator = "::"

// Origin tags how a path is anchored.
type Origin uint8

const (
	// OriginAbsolute anchors the path at the shader package root.
	OriginAbsolute Origin = iota
	// OriginPackageRelative anchors the path at the current module.
	OriginPackageRelative
)

// String returns the prefix segment used in the textual form.
func (o Origin) String() string {
	switch o {
	case OriginAbsolute:
		return "package"
	case OriginPackageRelative:
		return "self"
	default:
		return fmt.Sprintf("origin(%d)", uint8(o))
	}
}

// Path is an immutable module path: an origin plus an ordered component list.
// Components must be non-empty strings.
type Path struct {
	origin     Origin
	components []string
}

// New builds a path from origin and components. The component slice is copied.
func New(origin Origin, components ...string) Path {
	cs := make([]string, len(components))
	copy(cs, components)
	return Path{origin: origin, components: cs}
}

// Root returns the absolute path with no components.
func Root() Path {
	return Path{origin: OriginAbsolute}
}

// Parse reads the textual form "a::b::c". A leading "package::" segment selects
// the absolute origin, a leading "self::" the package-relative origin; without a
// prefix the path is absolute. Empty components are rejected.
func Parse(s string) (Path, error) {
	if s == "" {
		return Path{}, fmt.Errorf("empty module path")
	}
	segments := strings.Split(s, Separator)
	origin := OriginAbsolute
	switch segments[0] {
	case "package":
		segments = segments[1:]
	case "self":
		origin = OriginPackageRelative
		segments = segments[1:]
	}
	for _, seg := range segments {
		if seg == "" {
			return Path{}, fmt.Errorf("module path %q has an empty component", s)
		}
	}
	return New(origin, segments...), nil
}

// Origin reports how the path is anchored.
func (p Path) Origin() Origin { return p.origin }

// Components returns a copy of the component list.
func (p Path) Components() []string {
	cs := make([]string, len(p.components))
	copy(cs, p.components)
	return cs
}

// Len returns the number of components.
func (p Path) Len() int { return len(p.components) }

// IsRoot reports whether the path has no components.
func (p Path) IsRoot() bool { return len(p.components) == 0 }

// Leaf returns the last component, or "" for the root path.
func (p Path) Leaf() string {
	if len(p.components) == 0 {
		return ""
	}
	return p.components[len(p.components)-1]
}

// Append returns a new path with extra components appended; the receiver is
// left untouched.
func (p Path) Append(components ...string) Path {
	cs := make([]string, 0, len(p.components)+len(components))
	cs = append(cs, p.components...)
	cs = append(cs, components...)
	return Path{origin: p.origin, components: cs}
}

// String renders the textual form, e.g. "package::post::blur".
func (p Path) String() string {
	if len(p.components) == 0 {
		return p.origin.String()
	}
	return p.origin.String() + Separator + strings.Join(p.components, Separator)
}

// Equal reports structural equality.
func (p Path) Equal(other Path) bool {
	return p.Compare(other) == 0
}

// Compare orders paths structurally: first by origin, then component by
// component, shorter paths before their extensions.
func (p Path) Compare(other Path) int {
	if p.origin != other.origin {
		if p.origin < other.origin {
			return -1
		}
		return 1
	}
	n := min(len(p.components), len(other.components))
	for i := 0; i < n; i++ {
		if c := strings.Compare(p.components[i], other.components[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(p.components) < len(other.components):
		return -1
	case len(p.components) > len(other.components):
		return 1
	default:
		return 0
	}
}
