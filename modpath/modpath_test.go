package modpath

import "testing"

func TestParseAbsolute(t *testing.T) {
	p, err := Parse("post::blur")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if p.Origin() != OriginAbsolute {
		t.Fatalf("expected absolute origin, got %v", p.Origin())
	}
	if p.String() != "package::post::blur" {
		t.Fatalf("unexpected string form: %q", p.String())
	}
}

func TestParsePrefixes(t *testing.T) {
	p, err := Parse("package::a::b")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !p.Equal(New(OriginAbsolute, "a", "b")) {
		t.Fatalf("package prefix not stripped: %v", p)
	}

	p, err = Parse("self::a")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if p.Origin() != OriginPackageRelative {
		t.Fatalf("expected package-relative origin, got %v", p.Origin())
	}
}

func TestParseRejectsEmptyComponents(t *testing.T) {
	for _, in := range []string{"", "a::::b", "::a", "a::"} {
		if _, err := Parse(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestRootPath(t *testing.T) {
	r := Root()
	if !r.IsRoot() {
		t.Fatalf("root path must have no components")
	}
	if r.Leaf() != "" {
		t.Fatalf("root leaf must be empty, got %q", r.Leaf())
	}
	if r.String() != "package" {
		t.Fatalf("unexpected root string form: %q", r.String())
	}
}

func TestAppendDoesNotMutate(t *testing.T) {
	base := New(OriginAbsolute, "a")
	child := base.Append("b")
	if base.Len() != 1 {
		t.Fatalf("append mutated the receiver: %v", base)
	}
	if child.Leaf() != "b" || child.Len() != 2 {
		t.Fatalf("unexpected appended path: %v", child)
	}
}

func TestCompareOrdering(t *testing.T) {
	cases := []struct {
		a, b Path
		want int
	}{
		{New(OriginAbsolute, "a"), New(OriginAbsolute, "a"), 0},
		{New(OriginAbsolute, "a"), New(OriginAbsolute, "b"), -1},
		{New(OriginAbsolute, "a"), New(OriginAbsolute, "a", "b"), -1},
		{New(OriginAbsolute, "a", "b"), New(OriginAbsolute, "a"), 1},
		{New(OriginAbsolute, "z"), New(OriginPackageRelative, "a"), -1},
	}
	for _, tc := range cases {
		if got := tc.a.Compare(tc.b); got != tc.want {
			t.Fatalf("Compare(%v, %v) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestComponentsCopy(t *testing.T) {
	p := New(OriginAbsolute, "a", "b")
	cs := p.Components()
	cs[0] = "mutated"
	if p.Components()[0] != "a" {
		t.Fatalf("Components must return a copy")
	}
}
