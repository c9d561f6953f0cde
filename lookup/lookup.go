// Package lookup resolves previously built artifacts by module path, without
// re-running the build.
//
// It is the out-of-process half of the artifact naming contract: the build
// publishes the shader root (by default through an environment variable) and
// lookup re-derives the artifact location from the module path alone, using
// the same codec and naming glue as the walker.
package lookup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"weslbuild"
	"weslbuild/compile"
	"weslbuild/mangle"
	"weslbuild/modpath"
)

// EnvRoot returns the shader root published by the last successful build in
// this process tree.
func EnvRoot() (string, bool) {
	root, ok := os.LookupEnv(weslbuild.RootEnvVar)
	if !ok || root == "" {
		return "", false
	}
	return root, true
}

// Artifact resolves the textual module path spec (e.g. "post::blur") to the
// artifact location under outputDir, after verifying that the shader actually
// exists under shaderRoot. The error for a missing shader names the deepest
// path component that still exists.
func Artifact(shaderRoot, outputDir, spec string) (string, error) {
	path, err := parseSpec(spec)
	if err != nil {
		return "", err
	}
	if err := verifyExists(shaderRoot, path); err != nil {
		return "", err
	}
	mangled := mangle.Mangle(path, path.Leaf())
	return compile.ArtifactPath(outputDir, mangled), nil
}

func parseSpec(spec string) (modpath.Path, error) {
	if strings.HasPrefix(spec, "package"+modpath.Separator) {
		return modpath.Path{}, fmt.Errorf(
			"module path %q is already based at the package root; drop the leading \"package\"", spec)
	}
	path, err := modpath.Parse(spec)
	if err != nil {
		return modpath.Path{}, err
	}
	if path.IsRoot() {
		return modpath.Path{}, fmt.Errorf("module path %q names no shader", spec)
	}
	return path, nil
}

// verifyExists checks that the module path resolves to a shader file and, when
// it does not, walks back up the components to report the last one that
// exists.
func verifyExists(shaderRoot string, path modpath.Path) error {
	components := path.Components()
	base := filepath.Join(shaderRoot, filepath.Join(components...))

	if shaderFileExists(base) {
		return nil
	}
	if info, err := os.Stat(base); err == nil && info.IsDir() {
		return fmt.Errorf("%q is a module, not a shader file; name a shader inside it", path.String())
	}

	dir := filepath.Dir(base)
	for i := len(components) - 2; i >= 0; i-- {
		if _, err := os.Stat(dir); err == nil {
			return fmt.Errorf("shader %q does not exist (last existing path component: %q)",
				path.String(), components[i])
		}
		dir = filepath.Dir(dir)
	}
	return fmt.Errorf("shader %q does not exist under %q", path.String(), shaderRoot)
}

func shaderFileExists(base string) bool {
	for _, ext := range []string{weslbuild.SourceExt, weslbuild.IRExt} {
		if info, err := os.Stat(base + ext); err == nil && !info.IsDir() {
			return true
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return false
		}
	}
	return false
}
