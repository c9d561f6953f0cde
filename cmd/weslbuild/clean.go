package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"weslbuild"
	"weslbuild/cache"
	"weslbuild/extension/sizereport"
	"weslbuild/mangle"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Remove compiled shader artifacts and the build cache",
	Long: `Remove compiled artifacts, the digest cache, and the size report from
the project's output directory. Only files the build pipeline produced are
removed; anything else in the directory is left alone.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func runClean(_ *cobra.Command, args []string) error {
	startDir := "."
	if len(args) > 0 && args[0] != "" {
		startDir = args[0]
	}
	manifest, err := loadManifest(startDir)
	if err != nil {
		return err
	}
	outputDir := manifest.ResolvePath(manifest.Config.Shaders.Output)
	if outputDir == "" {
		outputDir = filepath.Join(manifest.Dir, "target", "shaders")
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_, _ = fmt.Fprintln(os.Stdout, "output directory not found")
			return nil
		}
		return fmt.Errorf("failed to read output directory %q: %w", outputDir, err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !isBuildProduct(entry.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(outputDir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove %q: %w", entry.Name(), err)
		}
		removed++
	}
	_, err = fmt.Fprintf(os.Stdout, "removed %d files from %s\n",
		removed, formatPathForOutput(manifest.Dir, outputDir))
	return err
}

// isBuildProduct recognizes files the pipeline wrote: artifacts whose stem
// demangles to a module path, plus the cache and report files.
func isBuildProduct(name string) bool {
	switch name {
	case cache.FileName, sizereport.DefaultReportName:
		return true
	}
	if filepath.Ext(name) != weslbuild.IRExt {
		return false
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	_, _, ok := mangle.Unmangle(stem)
	return ok
}
