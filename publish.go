package weslbuild

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// RootEnvVar is the environment variable carrying the shader root location to
// out-of-process lookup tooling after a successful build. It is the only
// cross-process state the builder publishes by default.
const RootEnvVar = "WESLBUILD_ROOT"

// RootSink receives the shader root and output locations once a build has
// fully succeeded.
type RootSink interface {
	PublishRoot(shaderRoot, outputDir string) error
}

// EnvSink publishes the shader root to a process environment variable.
type EnvSink struct {
	// Var overrides RootEnvVar when non-empty.
	Var string
}

// PublishRoot implements RootSink.
func (s EnvSink) PublishRoot(shaderRoot, _ string) error {
	name := s.Var
	if name == "" {
		name = RootEnvVar
	}
	if err := os.Setenv(name, shaderRoot); err != nil {
		return fmt.Errorf("failed to publish shader root to %s: %w", name, err)
	}
	return nil
}

// FileSink publishes the build locations as a small TOML manifest, for
// consumers that cannot observe this process's environment.
type FileSink struct {
	Path string
}

type locationManifest struct {
	ShaderRoot string `toml:"shader_root"`
	OutputDir  string `toml:"output_dir"`
}

// PublishRoot implements RootSink.
func (s FileSink) PublishRoot(shaderRoot, outputDir string) error {
	if s.Path == "" {
		return fmt.Errorf("file sink has no path")
	}
	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("failed to create location manifest: %w", err)
	}
	enc := toml.NewEncoder(f)
	encErr := enc.Encode(locationManifest{ShaderRoot: shaderRoot, OutputDir: outputDir})
	if closeErr := f.Close(); encErr == nil {
		encErr = closeErr
	}
	if encErr != nil {
		return fmt.Errorf("failed to write location manifest %q: %w", s.Path, encErr)
	}
	return nil
}
