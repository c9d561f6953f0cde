package compile

import (
	"path/filepath"
	"testing"

	"weslbuild/mangle"
	"weslbuild/modpath"
)

func TestArtifactPath(t *testing.T) {
	got := ArtifactPath("/tmp/out", "package_post_blur_blur")
	want := filepath.Join("/tmp/out", "package_post_blur_blur.wgsl")
	if got != want {
		t.Fatalf("ArtifactPath = %q, want %q", got, want)
	}
}

func TestSessionSeal(t *testing.T) {
	s := NewSession("shaders", "out", nil, nil)
	if s.Mangler() == nil {
		t.Fatalf("session must default to the escape mangler")
	}
	if err := s.SetMangler(mangle.Escape{}); err != nil {
		t.Fatalf("SetMangler before seal failed: %v", err)
	}
	s.Seal()
	if err := s.SetMangler(mangle.Escape{}); err == nil {
		t.Fatalf("SetMangler after seal must fail")
	}
}

func TestSessionManglerAgreesWithPackageCodec(t *testing.T) {
	s := NewSession("shaders", "out", nil, nil)
	p := modpath.New(modpath.OriginAbsolute, "post", "blur")
	if s.Mangler().Mangle(p, "blur") != mangle.Mangle(p, "blur") {
		t.Fatalf("default session mangler disagrees with package-level codec")
	}
}
