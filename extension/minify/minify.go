// Package minify shrinks compiled WGSL artifacts in place.
//
// Each artifact is parsed and validated with naga before the text is touched,
// so a minified artifact is guaranteed to have been well-formed. The rewrite
// happens in place: extensions that want the original compiler output (for
// example a bindings generator) must be registered before this one, and
// extensions that want the small form (for example a size report) after it.
package minify

import (
	"fmt"
	"os"

	"github.com/gogpu/naga"

	"weslbuild/compile"
	"weslbuild/extension"
	"weslbuild/modpath"
)

// ProfileEnvVar selects the build profile consulted by ReleaseOnly.
const ProfileEnvVar = "WESLBUILD_PROFILE"

// Options configures the extension.
type Options struct {
	// ReleaseOnly skips minification unless ProfileEnvVar is "release".
	ReleaseOnly bool
}

// Extension implements extension.Extension.
type Extension struct {
	extension.Base

	opts Options
}

// New creates the minifier extension.
func New(opts Options) *Extension {
	return &Extension{opts: opts}
}

// Name implements extension.Extension.
func (e *Extension) Name() string { return "minify" }

// PostBuild implements extension.Extension.
func (e *Extension) PostBuild(module modpath.Path, artifactPath string, _ *compile.SourceMap) error {
	if e.opts.ReleaseOnly && os.Getenv(ProfileEnvVar) != "release" {
		return nil
	}
	// #nosec G304 -- artifactPath comes from the build walker
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	source := string(data)

	ast, err := naga.Parse(source)
	if err != nil {
		return fmt.Errorf("%s: parse failed: %w", module.String(), err)
	}
	irModule, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return fmt.Errorf("%s: lowering failed: %w", module.String(), err)
	}
	validationErrors, err := naga.Validate(irModule)
	if err != nil {
		return fmt.Errorf("%s: validation failed: %w", module.String(), err)
	}
	if len(validationErrors) > 0 {
		return fmt.Errorf("%s: validation failed: %w", module.String(), &validationErrors[0])
	}

	if err := os.WriteFile(artifactPath, []byte(Minify(source)), 0o600); err != nil {
		return fmt.Errorf("failed to rewrite artifact: %w", err)
	}
	return nil
}
