// Package extension defines the lifecycle protocol for build plugins.
//
// Extensions observe one build walk at fixed points: once before traversal,
// around every non-root directory, after every compiled file, and once after
// the whole tree. Hooks run strictly sequentially, in registration order, so a
// later extension sees artifacts exactly as an earlier one left them; where an
// extension depends on running before or after another, that requirement must
// be documented by the extension.
//
// The first hook error aborts the remaining walk. Extensions that hold
// per-directory resources (open files, writers) should also implement
// io.Closer; the walker closes them when the build ends, on the error path
// included.
package extension

import (
	"fmt"

	"weslbuild/compile"
	"weslbuild/modpath"
)

// Stage names a lifecycle point, used when reporting hook failures.
type Stage string

const (
	// StageInitRoot runs once per extension before any traversal.
	StageInitRoot Stage = "init_root"
	// StageEnterModule runs before recursing into a non-root directory.
	StageEnterModule Stage = "enter_module"
	// StageExitModule runs after a non-root directory's subtree is done.
	StageExitModule Stage = "exit_module"
	// StagePostBuild runs after a file's artifact has been written.
	StagePostBuild Stage = "post_build"
	// StageExitRoot runs once per extension after the whole tree.
	StageExitRoot Stage = "exit_root"
)

// Extension is the capability every build plugin implements.
type Extension interface {
	// Name identifies the extension in wrapped errors and logs.
	Name() string

	// InitRoot runs before any traversal. It may reconfigure the session
	// (for example select a mangler); this is the only point at which the
	// session is still mutable.
	InitRoot(shaderRoot string, session *compile.Session) error

	// EnterModule runs before recursing into dir. The shader root itself
	// never gets this call.
	EnterModule(dir string) error

	// ExitModule runs after dir's entire subtree has been processed. The
	// shader root itself never gets this call.
	ExitModule(dir string) error

	// PostBuild runs after the compiler wrote artifactPath for module. The
	// artifact may have been rewritten in place by extensions registered
	// earlier. sourceMap is nil when the compiler produced none.
	PostBuild(module modpath.Path, artifactPath string, sourceMap *compile.SourceMap) error

	// ExitRoot runs after the whole tree has been processed.
	ExitRoot(shaderRoot string, session *compile.Session) error
}

// Base provides no-op hooks. Embed it to implement only the hooks an
// extension cares about; Name must still be provided.
type Base struct{}

// InitRoot implements Extension.
func (Base) InitRoot(string, *compile.Session) error { return nil }

// EnterModule implements Extension.
func (Base) EnterModule(string) error { return nil }

// ExitModule implements Extension.
func (Base) ExitModule(string) error { return nil }

// PostBuild implements Extension.
func (Base) PostBuild(modpath.Path, string, *compile.SourceMap) error { return nil }

// ExitRoot implements Extension.
func (Base) ExitRoot(string, *compile.Session) error { return nil }

// Error wraps a hook failure with the originating extension and stage.
type Error struct {
	Extension string
	Stage     Stage
	Err       error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("extension %s: %s: %v", e.Extension, e.Stage, e.Err)
}

// Unwrap returns the underlying hook error.
func (e *Error) Unwrap() error { return e.Err }

// Wrap annotates err with the extension's name and the failing stage. A nil
// err passes through.
func Wrap(ext Extension, stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Extension: ext.Name(), Stage: stage, Err: err}
}
