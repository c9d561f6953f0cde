package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"weslbuild/extension/bindgen"
)

// goConstGenerator emits a Go source file holding the compiled shader text as
// a string constant, named after the module leaf (FooBarWGSL for foo_bar).
type goConstGenerator struct {
	// PackageName is the package clause of generated files. Defaults to
	// "shaders".
	PackageName string
}

func (g goConstGenerator) Generate(source, sourcePath string, demangle bindgen.Demangle) (string, error) {
	pkg := g.PackageName
	if pkg == "" {
		pkg = "shaders"
	}
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	name := stem
	module := ""
	if path, leaf, ok := demangle(stem); ok {
		name = leaf
		module = path.String()
	}

	var b strings.Builder
	b.WriteString("// Code generated by weslbuild. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	if module != "" {
		fmt.Fprintf(&b, "// %sWGSL is the compiled source of %s.\n", exportName(name), module)
	}
	fmt.Fprintf(&b, "const %sWGSL = %q\n", exportName(name), source)
	return b.String(), nil
}

// exportName converts a shader stem like "blur_pass" to "BlurPass".
func exportName(stem string) string {
	var b strings.Builder
	upper := true
	for _, r := range stem {
		switch {
		case r == '_' || r == '-' || r == '.':
			upper = true
		case upper:
			b.WriteRune(asciiUpper(r))
			upper = false
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "Shader"
	}
	return b.String()
}

func asciiUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}
