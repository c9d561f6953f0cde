package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"weslbuild/lookup"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [flags] <module-path>",
	Short: "Resolve a module path to its compiled artifact",
	Long: `Resolve a module path like "util::blur" to the on-disk path of its
compiled artifact. The shader root comes from --root, the surrounding
project manifest, or the WESLBUILD_ROOT environment variable, in that order.`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().String("root", "", "shader root directory")
	lookupCmd.Flags().String("out", "", "artifact output directory")
}

func runLookup(cmd *cobra.Command, args []string) error {
	shaderRoot, err := cmd.Flags().GetString("root")
	if err != nil {
		return err
	}
	outputDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}

	if shaderRoot == "" || outputDir == "" {
		manifest, manifestErr := loadManifest(".")
		if manifestErr == nil {
			if shaderRoot == "" {
				shaderRoot = manifest.ResolvePath(manifest.Config.Shaders.Root)
			}
			if outputDir == "" {
				outputDir = manifest.ResolvePath(manifest.Config.Shaders.Output)
			}
		}
	}
	if shaderRoot == "" {
		if envRoot, ok := lookup.EnvRoot(); ok {
			shaderRoot = envRoot
		}
	}
	if shaderRoot == "" {
		return errors.New("no shader root: pass --root, run inside a project, or build first")
	}
	if outputDir == "" {
		return errors.New("no output directory: pass --out or run inside a project")
	}

	artifactPath, err := lookup.Artifact(shaderRoot, outputDir, args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, artifactPath)
	return err
}
