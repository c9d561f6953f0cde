// Package weslbuild walks a shader source tree, compiles every module through
// an external compiler, and drives build extensions across the walk.
//
// The walk is single-threaded, depth-first, and deterministic: directory
// entries are processed in name order, all files of a directory strictly
// before any of its subdirectories, and extension hooks always run in
// registration order. The first error aborts the whole walk; there is no
// partial-success mode and no retry. Artifacts written before the failing step
// are left on disk.
package weslbuild

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"weslbuild/compile"
	"weslbuild/extension"
	"weslbuild/mangle"
	"weslbuild/modpath"
)

// Recognized shader source extensions: SourceExt is the source form, IRExt the
// already-compiled form. Everything else is silently skipped by the walk.
const (
	SourceExt = ".wesl"
	IRExt     = ".wgsl"
)

// ErrOutsideRoot reports a file whose path cannot be made relative to the
// declared shader root. This is a configuration error, never retried.
var ErrOutsideRoot = errors.New("file is outside the shader root")

// Notifier receives a notification for every shader source file the walk
// visits, before the file is compiled. Build-caching layers use this to track
// which files a rebuild depends on; the walker itself stays non-incremental.
type Notifier interface {
	FileTouched(path string)
}

// Options configures one build invocation.
type Options struct {
	// Root is the shader root directory. Required.
	Root string
	// OutputDir is the shared artifact output directory, supplied by the
	// hosting build environment. Required. The builder never creates it.
	OutputDir string
	// Compiler produces one artifact per module. Required.
	Compiler compile.Compiler
	// Extensions run at every lifecycle point, in this order.
	Extensions []extension.Extension
	// Mangler overrides the default escape codec. Extensions may still
	// replace it during root initialization.
	Mangler mangle.Mangler
	// Progress receives walk events. Optional.
	Progress ProgressSink
	// Notifier receives per-file touch notifications. Optional.
	Notifier Notifier
	// RootSinks receive the root location after a successful build. When
	// empty, the shader root is published to the process environment.
	RootSinks []RootSink
	// Logger for build output. When nil, logging is discarded.
	Logger *log.Logger
}

// Artifact describes one compiled shader.
type Artifact struct {
	Module  modpath.Path
	Mangled string
	Path    string
}

// Result reports what a successful build produced.
type Result struct {
	Root      string
	OutputDir string
	Artifacts []Artifact
	Touched   []string
	Timings   Timings
}

// Build runs the full pipeline: root initialization of every extension, the
// depth-first walk, root exit, and root-location publication.
func Build(opts Options) (Result, error) {
	var result Result
	if opts.Root == "" {
		return result, fmt.Errorf("missing shader root")
	}
	if opts.OutputDir == "" {
		return result, fmt.Errorf("missing output directory")
	}
	if opts.Compiler == nil {
		return result, fmt.Errorf("missing compiler")
	}
	info, err := os.Stat(opts.Root)
	if err != nil {
		return result, fmt.Errorf("failed to stat shader root: %w", err)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("shader root %q is not a directory", opts.Root)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	result.Root = opts.Root
	result.OutputDir = opts.OutputDir

	session := compile.NewSession(opts.Root, opts.OutputDir, opts.Compiler, opts.Mangler)
	defer closeExtensions(opts.Extensions, logger)

	initStart := time.Now()
	emit(opts.Progress, "", StageInit, StatusWorking, nil, 0)
	for _, ext := range opts.Extensions {
		logger.Debug("initializing extension", "extension", ext.Name())
		if err := ext.InitRoot(opts.Root, session); err != nil {
			err = extension.Wrap(ext, extension.StageInitRoot, err)
			emit(opts.Progress, "", StageInit, StatusError, err, time.Since(initStart))
			return result, err
		}
	}
	session.Seal()
	result.Timings.Add(StageInit, time.Since(initStart))
	emit(opts.Progress, "", StageInit, StatusDone, nil, result.Timings.Duration(StageInit))

	w := &walker{
		session:    session,
		extensions: opts.Extensions,
		progress:   opts.Progress,
		notifier:   opts.Notifier,
		logger:     logger,
		result:     &result,
	}
	if err := w.walkDir(opts.Root); err != nil {
		return result, err
	}

	finishStart := time.Now()
	for _, ext := range opts.Extensions {
		if err := ext.ExitRoot(opts.Root, session); err != nil {
			err = extension.Wrap(ext, extension.StageExitRoot, err)
			emit(opts.Progress, "", StageFinish, StatusError, err, time.Since(finishStart))
			return result, err
		}
	}

	sinks := opts.RootSinks
	if len(sinks) == 0 {
		sinks = []RootSink{EnvSink{}}
	}
	for _, sink := range sinks {
		if err := sink.PublishRoot(opts.Root, opts.OutputDir); err != nil {
			return result, err
		}
	}
	result.Timings.Add(StageFinish, time.Since(finishStart))
	emit(opts.Progress, "", StageFinish, StatusDone, nil, result.Timings.Duration(StageFinish))

	return result, nil
}

type walker struct {
	session    *compile.Session
	extensions []extension.Extension
	progress   ProgressSink
	notifier   Notifier
	logger     *log.Logger
	result     *Result
}

// walkDir processes every entry of dir, files strictly before subdirectories.
// Extensions that maintain a per-directory resource depend on all sibling
// files being finalized before any subdirectory hook mutates it.
func (w *walker) walkDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read shader directory %q: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !isShaderSource(entry.Name()) {
			continue
		}
		if err := w.buildFile(dir, entry.Name()); err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(dir, entry.Name())
		for _, ext := range w.extensions {
			if err := ext.EnterModule(sub); err != nil {
				return extension.Wrap(ext, extension.StageEnterModule, err)
			}
		}
		if err := w.walkDir(sub); err != nil {
			return err
		}
		for _, ext := range w.extensions {
			if err := ext.ExitModule(sub); err != nil {
				return extension.Wrap(ext, extension.StageExitModule, err)
			}
		}
	}
	return nil
}

func (w *walker) buildFile(dir, name string) error {
	full := filepath.Join(dir, name)
	module, err := DeriveModule(w.session.Root(), full)
	if err != nil {
		return err
	}
	mangled := w.session.Mangler().Mangle(module, module.Leaf())
	artifactPath := compile.ArtifactPath(w.session.OutputDir(), mangled)

	if w.notifier != nil {
		w.notifier.FileTouched(full)
	}
	w.result.Touched = append(w.result.Touched, full)

	compileStart := time.Now()
	emit(w.progress, full, StageCompile, StatusWorking, nil, 0)
	sourceMap, err := w.session.Compiler().Compile(module, mangled)
	if err != nil {
		err = fmt.Errorf("failed to compile %q: %w", module.String(), err)
		emit(w.progress, full, StageCompile, StatusError, err, time.Since(compileStart))
		return err
	}
	w.result.Timings.Add(StageCompile, time.Since(compileStart))
	emit(w.progress, full, StageCompile, StatusDone, nil, time.Since(compileStart))
	w.logger.Info("built", "module", module.String())

	postStart := time.Now()
	for _, ext := range w.extensions {
		if err := ext.PostBuild(module, artifactPath, sourceMap); err != nil {
			err = extension.Wrap(ext, extension.StagePostBuild, err)
			emit(w.progress, full, StagePostBuild, StatusError, err, time.Since(postStart))
			return err
		}
	}
	w.result.Timings.Add(StagePostBuild, time.Since(postStart))
	emit(w.progress, full, StagePostBuild, StatusDone, nil, time.Since(postStart))

	w.result.Artifacts = append(w.result.Artifacts, Artifact{
		Module:  module,
		Mangled: mangled,
		Path:    artifactPath,
	})
	return nil
}

// DeriveModule computes the absolute module path of a shader file from its
// location under the shader root: directory names become components and the
// file stem becomes the leaf.
func DeriveModule(root, file string) (modpath.Path, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return modpath.Path{}, fmt.Errorf("%q: %w: %v", file, ErrOutsideRoot, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return modpath.Path{}, fmt.Errorf("%q: %w", file, ErrOutsideRoot)
	}
	stem := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	if stem == "" {
		return modpath.Path{}, fmt.Errorf("shader file %q has no name", file)
	}
	components := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")
	if components[0] == "." {
		components = components[1:]
	}
	components = append(components, stem)
	return modpath.New(modpath.OriginAbsolute, components...), nil
}

func isShaderSource(name string) bool {
	switch filepath.Ext(name) {
	case SourceExt, IRExt:
		return true
	default:
		return false
	}
}

// closeExtensions releases per-directory resources still held by extensions
// after the build ends, on the error path included. Hook ordering guarantees
// do not apply here: Close is cleanup, not a lifecycle point.
func closeExtensions(extensions []extension.Extension, logger *log.Logger) {
	for _, ext := range extensions {
		closer, ok := ext.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			logger.Warn("extension cleanup failed", "extension", ext.Name(), "err", err)
		}
	}
}
