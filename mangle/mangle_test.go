package mangle

import (
	"strings"
	"testing"

	"weslbuild/modpath"
)

func TestMangleRoundTrip(t *testing.T) {
	cases := []struct {
		path modpath.Path
		name string
	}{
		{modpath.Root(), "main"},
		{modpath.New(modpath.OriginAbsolute, "post", "blur"), "blur"},
		{modpath.New(modpath.OriginAbsolute, "my_shaders"), "depth_pass"},
		{modpath.New(modpath.OriginAbsolute, "fx-pack", "v2.1"), "lens.flare"},
		{modpath.New(modpath.OriginAbsolute, "x", "xx", "axb"), "xfile"},
		{modpath.New(modpath.OriginPackageRelative, "util"), "noise"},
		{modpath.New(modpath.OriginAbsolute, "日本語"), "シェーダ"},
	}
	for _, tc := range cases {
		id := Mangle(tc.path, tc.name)
		gotPath, gotName, ok := Unmangle(id)
		if !ok {
			t.Fatalf("Unmangle(%q) reported no match", id)
		}
		if !gotPath.Equal(tc.path) || gotName != tc.name {
			t.Fatalf("round trip of (%v, %q) via %q gave (%v, %q)",
				tc.path, tc.name, id, gotPath, gotName)
		}
	}
}

func TestMangleIsIdentifierSafe(t *testing.T) {
	path := modpath.New(modpath.OriginAbsolute, "a_b", "c-d", "e.f", "g/h")
	id := Mangle(path, "i j")
	for _, r := range id {
		safe := r == '_' ||
			r >= 'a' && r <= 'z' ||
			r >= 'A' && r <= 'Z' ||
			r >= '0' && r <= '9'
		if !safe {
			t.Fatalf("mangled id %q contains unsafe rune %q", id, r)
		}
	}
	if strings.ContainsAny(id, "/\\") {
		t.Fatalf("mangled id %q contains a path separator", id)
	}
}

func TestMangleInjective(t *testing.T) {
	// Pairs that a naive underscore-doubling scheme would collapse.
	a := Mangle(modpath.New(modpath.OriginAbsolute, "a"), "_b")
	b := Mangle(modpath.New(modpath.OriginAbsolute, "a_"), "b")
	if a == b {
		t.Fatalf("distinct inputs mangled to the same id %q", a)
	}

	c := Mangle(modpath.New(modpath.OriginAbsolute, "foo"), "bar")
	d := Mangle(modpath.Root(), "foo_bar")
	if c == d {
		t.Fatalf("distinct inputs mangled to the same id %q", c)
	}
}

func TestRootRoundTrip(t *testing.T) {
	id := Mangle(modpath.Root(), "main")
	if id != "package_main" {
		t.Fatalf("unexpected root mangling: %q", id)
	}
	path, name, ok := Unmangle(id)
	if !ok || !path.IsRoot() || name != "main" {
		t.Fatalf("root id %q did not round trip: (%v, %q, %v)", id, path, name, ok)
	}
}

func TestUnmangleRejectsForeignNames(t *testing.T) {
	inputs := []string{
		"",
		"main",
		"package",
		"package_",
		"crate_foo_bar",
		"package_foo_bar!",
		"package_ax5zb", // truncated escape
		"package_axq",   // invalid escape digit
		"package__foo",  // empty segment
		"Package_foo",
	}
	for _, in := range inputs {
		if _, _, ok := Unmangle(in); ok {
			t.Fatalf("Unmangle(%q) unexpectedly matched", in)
		}
	}
}

func TestUnmangleRelativePrefix(t *testing.T) {
	id := Mangle(modpath.New(modpath.OriginPackageRelative, "a"), "b")
	if !strings.HasPrefix(id, "self_") {
		t.Fatalf("expected self prefix, got %q", id)
	}
	path, _, ok := Unmangle(id)
	if !ok || path.Origin() != modpath.OriginPackageRelative {
		t.Fatalf("relative origin lost in %q", id)
	}
}
