package minify

import "strings"

// Minify strips comments from WGSL source and collapses whitespace down to
// what the grammar needs. WGSL has no string literals, so the scan only has to
// track comments; block comments nest.
func Minify(source string) string {
	stripped := stripComments(source)
	return collapse(stripped)
}

func stripComments(source string) string {
	var b strings.Builder
	b.Grow(len(source))
	for i := 0; i < len(source); {
		if strings.HasPrefix(source[i:], "//") {
			end := strings.IndexByte(source[i:], '\n')
			if end < 0 {
				break
			}
			i += end // keep the newline as whitespace
			continue
		}
		if strings.HasPrefix(source[i:], "/*") {
			depth := 1
			i += 2
			for i < len(source) && depth > 0 {
				switch {
				case strings.HasPrefix(source[i:], "/*"):
					depth++
					i += 2
				case strings.HasPrefix(source[i:], "*/"):
					depth--
					i += 2
				default:
					i++
				}
			}
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(source[i])
		i++
	}
	return b.String()
}

// punct are the characters a space can be dropped next to.
const punct = "{}()[]<>;,:=+-*/%&|^!~.@"

func collapse(source string) string {
	fields := strings.Fields(source)
	var b strings.Builder
	b.Grow(len(source))
	for i, field := range fields {
		if i > 0 && needsSpace(fields[i-1], field) {
			b.WriteByte(' ')
		}
		b.WriteString(field)
	}
	return b.String()
}

// needsSpace reports whether dropping the space between prev and next would
// glue two tokens together. Identical sign characters stay separated so that
// "a - -b" cannot turn into a decrement.
func needsSpace(prev, next string) bool {
	last := prev[len(prev)-1]
	first := next[0]
	if strings.IndexByte(punct, last) < 0 && strings.IndexByte(punct, first) < 0 {
		return true
	}
	if last == first && strings.IndexByte("+-&|<>", last) >= 0 {
		return true
	}
	return false
}
