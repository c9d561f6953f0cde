// Package mangle converts module paths into flat, collision-free artifact
// identifiers and back.
//
// The encoding must agree between the build walker and any out-of-process
// lookup, so it is a pure function of its inputs: segments are joined with a
// single underscore, the origin becomes the leading segment ("package" for
// absolute paths, "self" for package-relative ones), and inside a segment every
// byte outside [A-Za-z0-9] is written as 'x' followed by two lowercase hex
// digits, with a literal 'x' doubled to "xx". Escaped segments therefore never
// contain an underscore, which keeps the scheme injective and reversible.
package mangle

import (
	"strings"

	"weslbuild/modpath"
)

// Mangler is the codec contract shared by the walker and its extensions.
type Mangler interface {
	// Mangle flattens a module path plus item name into one identifier.
	Mangle(path modpath.Path, name string) string
	// Unmangle inverts Mangle. It reports ok=false for any input the scheme
	// did not produce; it never fails.
	Unmangle(id string) (modpath.Path, string, bool)
}

// Escape is the default Mangler. The zero value is ready to use.
type Escape struct{}

// Mangle implements Mangler.
func (Escape) Mangle(path modpath.Path, name string) string {
	var b strings.Builder
	b.WriteString(path.Origin().String())
	for _, comp := range path.Components() {
		b.WriteByte('_')
		escapeSegment(&b, comp)
	}
	b.WriteByte('_')
	escapeSegment(&b, name)
	return b.String()
}

// Unmangle implements Mangler.
func (Escape) Unmangle(id string) (modpath.Path, string, bool) {
	segments := strings.Split(id, "_")
	if len(segments) < 2 {
		return modpath.Path{}, "", false
	}
	var origin modpath.Origin
	switch segments[0] {
	case "package":
		origin = modpath.OriginAbsolute
	case "self":
		origin = modpath.OriginPackageRelative
	default:
		return modpath.Path{}, "", false
	}
	decoded := make([]string, 0, len(segments)-1)
	for _, seg := range segments[1:] {
		s, ok := decodeSegment(seg)
		if !ok {
			return modpath.Path{}, "", false
		}
		decoded = append(decoded, s)
	}
	name := decoded[len(decoded)-1]
	return modpath.New(origin, decoded[:len(decoded)-1]...), name, true
}

// Mangle flattens path plus name with the default Escape codec.
func Mangle(path modpath.Path, name string) string {
	return Escape{}.Mangle(path, name)
}

// Unmangle inverts Mangle with the default Escape codec.
func Unmangle(id string) (modpath.Path, string, bool) {
	return Escape{}.Unmangle(id)
}

const hexDigits = "0123456789abcdef"

func plainByte(c byte) bool {
	return c >= 'a' && c <= 'z' && c != 'x' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9'
}

func escapeSegment(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case plainByte(c):
			b.WriteByte(c)
		case c == 'x':
			b.WriteString("xx")
		default:
			b.WriteByte('x')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		}
	}
}

func decodeSegment(seg string) (string, bool) {
	if seg == "" {
		return "", false
	}
	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if c != 'x' {
			if !plainByte(c) {
				return "", false
			}
			b.WriteByte(c)
			continue
		}
		if i+1 < len(seg) && seg[i+1] == 'x' {
			b.WriteByte('x')
			i++
			continue
		}
		if i+2 >= len(seg) {
			return "", false
		}
		hi := hexValue(seg[i+1])
		lo := hexValue(seg[i+2])
		if hi < 0 || lo < 0 {
			return "", false
		}
		b.WriteByte(byte(hi<<4 | lo))
		i += 2
	}
	return b.String(), true
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return -1
	}
}
