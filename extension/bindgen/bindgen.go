// Package bindgen generates typed bindings for every compiled shader.
//
// The code generator itself is an external collaborator behind the Generator
// interface; this extension feeds it each artifact, writes its output into a
// directory tree mirroring the shader tree, and maintains one index file per
// directory recording the modules and bindings below it. The index files are
// held as an explicit stack of open frames: a frame is pushed when the walk
// enters a directory and popped (flushed and closed) when the walk exits it,
// so the parent's index stays open and writable for any sibling entries that
// follow.
//
// bindgen pins the session to the escape mangler, because the demangle
// callback it hands to the generator only understands that scheme. Extensions
// that rewrite artifacts in place (for example a minifier) should be
// registered after bindgen so the generator sees the compiler's output.
package bindgen

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"weslbuild/compile"
	"weslbuild/mangle"
	"weslbuild/modpath"
)

// Demangle recovers the module path and item name behind a flat identifier.
// ok is false for identifiers the naming scheme did not produce; callers
// usually fall back to the root module.
type Demangle func(name string) (modpath.Path, string, bool)

// Generator turns one compiled shader into bindings text.
type Generator interface {
	// Generate receives the artifact source, the artifact's path (for
	// diagnostics), and the demangle callback for identifiers found in the
	// source.
	Generate(source, sourcePath string, demangle Demangle) (string, error)
}

// Options configures the extension.
type Options struct {
	// BindingRoot is the directory receiving generated bindings. Required.
	BindingRoot string
	// Generator produces the bindings text. Required.
	Generator Generator
	// FileExt is appended to the shader stem for generated files.
	// Defaults to ".go".
	FileExt string
	// IndexName is the per-directory index file name.
	// Defaults to "bindings.index".
	IndexName string
}

// Extension implements extension.Extension and io.Closer.
type Extension struct {
	opts   Options
	frames []*frame
}

type frame struct {
	dir  string
	file *os.File
	w    *bufio.Writer
}

// New creates the bindings extension.
func New(opts Options) *Extension {
	if opts.FileExt == "" {
		opts.FileExt = ".go"
	}
	if opts.IndexName == "" {
		opts.IndexName = "bindings.index"
	}
	return &Extension{opts: opts}
}

// Name implements extension.Extension.
func (e *Extension) Name() string { return "bindgen" }

// InitRoot implements extension.Extension.
func (e *Extension) InitRoot(_ string, session *compile.Session) error {
	if e.opts.BindingRoot == "" {
		return fmt.Errorf("missing binding root")
	}
	if e.opts.Generator == nil {
		return fmt.Errorf("missing generator")
	}
	if err := session.SetMangler(mangle.Escape{}); err != nil {
		return err
	}
	return e.pushFrame(e.opts.BindingRoot)
}

// EnterModule implements extension.Extension.
func (e *Extension) EnterModule(dir string) error {
	top, err := e.top()
	if err != nil {
		return err
	}
	name := filepath.Base(dir)
	if _, err := fmt.Fprintf(top.w, "mod %s\n", name); err != nil {
		return fmt.Errorf("failed to record module %q: %w", name, err)
	}
	return e.pushFrame(filepath.Join(top.dir, name))
}

// ExitModule implements extension.Extension.
func (e *Extension) ExitModule(dir string) error {
	if len(e.frames) <= 1 {
		return fmt.Errorf("exit of %q without a matching enter", dir)
	}
	return e.popFrame()
}

// PostBuild implements extension.Extension.
func (e *Extension) PostBuild(module modpath.Path, artifactPath string, _ *compile.SourceMap) error {
	top, err := e.top()
	if err != nil {
		return err
	}
	// #nosec G304 -- artifactPath comes from the build walker
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	text, err := e.opts.Generator.Generate(string(data), artifactPath, mangle.Unmangle)
	if err != nil {
		return fmt.Errorf("failed to generate bindings for %q: %w", module.String(), err)
	}

	name := module.Leaf()
	bindingPath := filepath.Join(top.dir, name+e.opts.FileExt)
	if err := os.WriteFile(bindingPath, []byte(text), 0o600); err != nil {
		return fmt.Errorf("failed to write bindings %q: %w", bindingPath, err)
	}
	if _, err := fmt.Fprintf(top.w, "bind %s\n", name); err != nil {
		return fmt.Errorf("failed to record binding %q: %w", name, err)
	}
	return nil
}

// ExitRoot implements extension.Extension.
func (e *Extension) ExitRoot(string, *compile.Session) error {
	if len(e.frames) != 1 {
		return fmt.Errorf("unbalanced module stack: %d frames open", len(e.frames))
	}
	return e.popFrame()
}

// Close releases any index files still open, for example after an aborted
// build. It is safe to call more than once.
func (e *Extension) Close() error {
	var firstErr error
	for len(e.frames) > 0 {
		if err := e.popFrame(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (e *Extension) top() (*frame, error) {
	if len(e.frames) == 0 {
		return nil, fmt.Errorf("extension not initialized")
	}
	return e.frames[len(e.frames)-1], nil
}

func (e *Extension) pushFrame(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create binding directory %q: %w", dir, err)
	}
	indexPath := filepath.Join(dir, e.opts.IndexName)
	// #nosec G304 -- indexPath is derived from the configured binding root
	f, err := os.Create(indexPath)
	if err != nil {
		return fmt.Errorf("failed to create index %q: %w", indexPath, err)
	}
	e.frames = append(e.frames, &frame{dir: dir, file: f, w: bufio.NewWriter(f)})
	return nil
}

func (e *Extension) popFrame() error {
	top := e.frames[len(e.frames)-1]
	e.frames = e.frames[:len(e.frames)-1]
	err := top.w.Flush()
	if closeErr := top.file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to finalize index in %q: %w", top.dir, err)
	}
	return nil
}
