// Package compile defines the contract between the build walker and the
// external shader compiler, plus the artifact naming shared with out-of-process
// lookups.
package compile

import (
	"fmt"
	"path/filepath"

	"weslbuild/mangle"
	"weslbuild/modpath"
)

// ArtifactExt is the extension of every compiled artifact.
const ArtifactExt = ".wgsl"

// ArtifactPath returns the deterministic on-disk location of a compiled
// artifact. It is a pure function: the walker uses it to know where the
// compiler just wrote, and lookup tooling uses it to find artifacts without
// re-running the build.
func ArtifactPath(outputDir, mangled string) string {
	return filepath.Join(outputDir, mangled+ArtifactExt)
}

// SourceMap correlates lines of a compiled artifact back to original source.
type SourceMap struct {
	// Source is the module file the artifact was generated from.
	Source string
	// Lines[i] is the 1-based source line that produced generated line i+1.
	Lines []int
}

// Compiler compiles one module and writes its artifact to
// ArtifactPath(outputDir, mangledName). A nil source map is allowed.
//
// Compilation is a direct blocking call; the walker never retries it.
type Compiler interface {
	Compile(module modpath.Path, mangledName string) (*SourceMap, error)
}

// Session is the shared compiler handle threaded through one build. It is
// mutable only before the walk starts: extensions may reconfigure it (for
// example select a mangler) during their root initialization, after which the
// walker seals it.
type Session struct {
	root     string
	outDir   string
	compiler Compiler
	mangler  mangle.Mangler
	sealed   bool
}

// NewSession creates a session for one build invocation. A nil mangler selects
// the default escape codec.
func NewSession(root, outputDir string, compiler Compiler, mangler mangle.Mangler) *Session {
	if mangler == nil {
		mangler = mangle.Escape{}
	}
	return &Session{
		root:     root,
		outDir:   outputDir,
		compiler: compiler,
		mangler:  mangler,
	}
}

// Root returns the shader root directory.
func (s *Session) Root() string { return s.root }

// OutputDir returns the shared artifact output directory.
func (s *Session) OutputDir() string { return s.outDir }

// Compiler returns the compiler backing this session.
func (s *Session) Compiler() Compiler { return s.compiler }

// Mangler returns the codec used for artifact names in this session.
func (s *Session) Mangler() mangle.Mangler { return s.mangler }

// SetMangler replaces the codec. It fails once the session is sealed, because
// artifact names must be stable across the whole walk.
func (s *Session) SetMangler(m mangle.Mangler) error {
	if s.sealed {
		return fmt.Errorf("session is sealed: the mangler cannot change after root initialization")
	}
	if m == nil {
		return fmt.Errorf("nil mangler")
	}
	s.mangler = m
	return nil
}

// Seal freezes the session. The walker calls this once root initialization of
// all extensions has completed.
func (s *Session) Seal() { s.sealed = true }
