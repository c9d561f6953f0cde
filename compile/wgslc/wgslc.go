// Package wgslc is a validating passthrough compiler for plain WGSL trees.
//
// It resolves a module path to a source file under the shader root, optionally
// parses and validates the source with naga, and writes the artifact at its
// deterministic location. Import resolution and WESL-specific syntax are the
// job of a real resolver; wgslc exists so the pipeline runs end to end on
// trees that are already valid WGSL.
package wgslc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"

	"weslbuild/compile"
	"weslbuild/modpath"
)

// Options configures a Compiler.
type Options struct {
	// Validate parses and validates every module with naga before the
	// artifact is written.
	Validate bool
}

// Compiler implements compile.Compiler over a shader root directory.
type Compiler struct {
	root   string
	outDir string
	opts   Options
}

// New creates a compiler writing artifacts under outputDir.
func New(root, outputDir string, opts Options) *Compiler {
	return &Compiler{root: root, outDir: outputDir, opts: opts}
}

// Compile implements compile.Compiler.
func (c *Compiler) Compile(module modpath.Path, mangledName string) (*compile.SourceMap, error) {
	sourcePath, err := c.resolve(module)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- sourcePath is derived from the shader root and module path
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read module source: %w", err)
	}
	source := string(data)

	if c.opts.Validate {
		if err := validate(source); err != nil {
			return nil, fmt.Errorf("%s: %w", sourcePath, err)
		}
	}

	artifactPath := compile.ArtifactPath(c.outDir, mangledName)
	if err := os.WriteFile(artifactPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write artifact %q: %w", artifactPath, err)
	}
	return identityMap(sourcePath, source), nil
}

// resolve locates the file backing a module, preferring the source form over
// the already-compiled form.
func (c *Compiler) resolve(module modpath.Path) (string, error) {
	if module.IsRoot() {
		return "", fmt.Errorf("cannot compile the root module path")
	}
	base := filepath.Join(c.root, filepath.Join(module.Components()...))
	for _, ext := range []string{".wesl", ".wgsl"} {
		candidate := base + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("no source file for module %q under %q", module.String(), c.root)
}

func validate(source string) error {
	ast, err := naga.Parse(source)
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return fmt.Errorf("lowering failed: %w", err)
	}
	validationErrors, err := naga.Validate(module)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if len(validationErrors) > 0 {
		return fmt.Errorf("validation failed: %w", &validationErrors[0])
	}
	return nil
}

// identityMap records the trivial line-for-line correspondence between the
// artifact and its single source file.
func identityMap(sourcePath, source string) *compile.SourceMap {
	lines := strings.Count(source, "\n") + 1
	m := &compile.SourceMap{Source: sourcePath, Lines: make([]int, lines)}
	for i := range m.Lines {
		m.Lines[i] = i + 1
	}
	return m
}
