package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"weslbuild"
	"weslbuild/buildlog"
	"weslbuild/cache"
	"weslbuild/compile/wgslc"
	"weslbuild/extension"
	"weslbuild/extension/bindgen"
	"weslbuild/extension/minify"
	"weslbuild/extension/sizereport"
	"weslbuild/internal/project"
)

const noManifestMessage = "no weslbuild.toml found in this directory or any parent; run from a project or pass a path"

var buildCmd = &cobra.Command{
	Use:   "build [flags] [path]",
	Short: "Build a shader project",
	Long:  "Build a shader project using weslbuild.toml as the pipeline definition.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  buildExecution,
}

func init() {
	buildCmd.Flags().Bool("release", false, "build with the release profile")
	buildCmd.Flags().Bool("timings", false, "show per-stage timing information")
	buildCmd.Flags().Bool("no-cache", false, "skip the file digest cache")
	buildCmd.Flags().Bool("validate", false, "validate every module even if the manifest disables it")
}

func buildExecution(cmd *cobra.Command, args []string) error {
	release, err := cmd.Flags().GetBool("release")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	forceValidate, err := cmd.Flags().GetBool("validate")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}

	startDir := "."
	if len(args) > 0 && args[0] != "" {
		startDir = args[0]
	}
	manifest, err := loadManifest(startDir)
	if err != nil {
		return err
	}

	shaderRoot := manifest.ResolvePath(manifest.Config.Shaders.Root)
	outputDir := manifest.ResolvePath(manifest.Config.Shaders.Output)
	if outputDir == "" {
		outputDir = filepath.Join(manifest.Dir, "target", "shaders")
	}
	// The library contract is that the hosting environment supplies the
	// output directory; the CLI is that environment.
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if release {
		if err := os.Setenv(minify.ProfileEnvVar, "release"); err != nil {
			return fmt.Errorf("failed to set build profile: %w", err)
		}
	}

	logger := buildlog.New()
	compiler := wgslc.New(shaderRoot, outputDir, wgslc.Options{
		Validate: manifest.Config.Shaders.Validate || forceValidate,
	})

	opts := weslbuild.Options{
		Root:       shaderRoot,
		OutputDir:  outputDir,
		Compiler:   compiler,
		Extensions: configuredExtensions(manifest, logger),
		Logger:     logger,
	}
	if !quiet {
		opts.Progress = newRenderSink(os.Stdout, useColor(cmd, os.Stdout))
	}

	var digests *cache.Cache
	if !noCache {
		digests, err = cache.Open(outputDir)
		if err != nil {
			return err
		}
		opts.Notifier = digests
	}

	result, err := weslbuild.Build(opts)
	if err != nil {
		printStageTimings(os.Stdout, result.Timings, showTimings)
		var extErr *extension.Error
		if errors.As(err, &extErr) {
			return fmt.Errorf("extension %s failed during %s: %w", extErr.Extension, extErr.Stage, extErr.Err)
		}
		return err
	}

	if digests != nil {
		if err := digests.Flush(); err != nil {
			return err
		}
	}

	printStageTimings(os.Stdout, result.Timings, showTimings)
	if !quiet {
		_, fprintfErr := fmt.Fprintf(os.Stdout, "built %d shaders into %s\n",
			len(result.Artifacts), formatPathForOutput(manifest.Dir, result.OutputDir))
		if fprintfErr != nil {
			return fprintfErr
		}
	}
	return nil
}

// configuredExtensions instantiates the built-in extensions the manifest
// enables. Registration order is fixed: bindgen, then minify, then sizereport.
func configuredExtensions(manifest *project.Manifest, logger *log.Logger) []extension.Extension {
	cfg := manifest.Config.Extensions
	var exts []extension.Extension
	if cfg.Bindgen.Enabled {
		bindingRoot := manifest.ResolvePath(cfg.Bindgen.Root)
		if bindingRoot == "" {
			bindingRoot = filepath.Join(manifest.Dir, "bindings")
		}
		exts = append(exts, bindgen.New(bindgen.Options{
			BindingRoot: bindingRoot,
			Generator:   goConstGenerator{},
		}))
	}
	if cfg.Minify.Enabled {
		exts = append(exts, minify.New(minify.Options{ReleaseOnly: cfg.Minify.ReleaseOnly}))
	}
	if cfg.SizeReport.Enabled {
		exts = append(exts, sizereport.New(sizereport.Options{
			ReportPath: manifest.ResolvePath(cfg.SizeReport.Path),
			Logger:     logger,
		}))
	}
	return exts
}

// loadManifest walks up from startDir and parses the first manifest found.
func loadManifest(startDir string) (*project.Manifest, error) {
	path, ok, err := project.Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(noManifestMessage)
	}
	return project.Load(path)
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	if strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
