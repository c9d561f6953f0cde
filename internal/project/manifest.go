// Package project locates and parses the weslbuild.toml build manifest.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file the CLI looks for, walking up from the start
// directory.
const ManifestName = "weslbuild.toml"

// ErrShadersSectionMissing indicates that [shaders] is missing.
var ErrShadersSectionMissing = errors.New("missing [shaders]")

// ErrShaderRootMissing indicates that [shaders].root is missing or empty.
var ErrShaderRootMissing = errors.New("missing [shaders].root")

// Manifest is a loaded build manifest.
type Manifest struct {
	// Path is the manifest file location.
	Path string
	// Dir is the directory containing the manifest; relative paths in the
	// config are resolved against it.
	Dir    string
	Config Config
}

// Config mirrors the TOML structure.
type Config struct {
	Shaders    ShadersConfig    `toml:"shaders"`
	Extensions ExtensionsConfig `toml:"extensions"`
}

// ShadersConfig locates the tree and the artifact output.
type ShadersConfig struct {
	Root   string `toml:"root"`
	Output string `toml:"output"`
	// Validate runs the compiler's WGSL validation pass.
	Validate bool `toml:"validate"`
}

// ExtensionsConfig toggles the built-in extensions. Registration order is
// fixed: bindgen, then minify, then sizereport.
type ExtensionsConfig struct {
	Bindgen    BindgenConfig    `toml:"bindgen"`
	Minify     MinifyConfig     `toml:"minify"`
	SizeReport SizeReportConfig `toml:"sizereport"`
}

// BindgenConfig configures the bindings generator extension.
type BindgenConfig struct {
	Enabled bool   `toml:"enabled"`
	Root    string `toml:"root"`
}

// MinifyConfig configures the minifier extension.
type MinifyConfig struct {
	Enabled     bool `toml:"enabled"`
	ReleaseOnly bool `toml:"release_only"`
}

// SizeReportConfig configures the size report extension.
type SizeReportConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Find walks up from startDir to locate the manifest.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load parses the manifest at path.
func Load(path string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("shaders") {
		return nil, fmt.Errorf("%s: %w", path, ErrShadersSectionMissing)
	}
	if strings.TrimSpace(cfg.Shaders.Root) == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrShaderRootMissing)
	}
	return &Manifest{
		Path:   path,
		Dir:    filepath.Dir(path),
		Config: cfg,
	}, nil
}

// ResolvePath resolves a config path against the manifest directory.
func (m *Manifest) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
