// Package sizereport records the on-disk size of every compiled artifact and
// writes a summary when the build finishes.
//
// Register it last: it reports whatever earlier extensions left on disk, so a
// minifier registered before it is reflected in the numbers.
package sizereport

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"weslbuild/compile"
	"weslbuild/extension"
	"weslbuild/modpath"
)

// DefaultReportName is the summary file written under the output directory
// when no explicit report path is configured.
const DefaultReportName = "size_report.toml"

// Options configures the extension.
type Options struct {
	// ReportPath overrides where the summary is written.
	ReportPath string
	// Logger receives one line per artifact. When nil, sizes are only
	// collected for the summary.
	Logger *log.Logger
}

// Extension implements extension.Extension.
type Extension struct {
	extension.Base

	opts       Options
	reportPath string
	logger     *log.Logger
	entries    []Entry
	total      int64
}

// Entry is the recorded size of one artifact.
type Entry struct {
	Module  string `toml:"module"`
	Mangled string `toml:"mangled"`
	Bytes   int64  `toml:"bytes"`
}

// Report is the summary serialized on exit.
type Report struct {
	TotalBytes int64   `toml:"total_bytes"`
	Artifacts  uint32  `toml:"artifacts"`
	Entries    []Entry `toml:"entry"`
}

// New creates the size report extension.
func New(opts Options) *Extension {
	return &Extension{opts: opts}
}

// Name implements extension.Extension.
func (e *Extension) Name() string { return "sizereport" }

// InitRoot implements extension.Extension.
func (e *Extension) InitRoot(_ string, session *compile.Session) error {
	e.entries = nil
	e.total = 0
	e.reportPath = e.opts.ReportPath
	if e.reportPath == "" {
		e.reportPath = filepath.Join(session.OutputDir(), DefaultReportName)
	}
	e.logger = e.opts.Logger
	return nil
}

// PostBuild implements extension.Extension.
func (e *Extension) PostBuild(module modpath.Path, artifactPath string, _ *compile.SourceMap) error {
	info, err := os.Stat(artifactPath)
	if err != nil {
		return fmt.Errorf("failed to stat artifact: %w", err)
	}
	stem := filepath.Base(artifactPath)
	mangled := stem[:len(stem)-len(filepath.Ext(stem))]
	e.entries = append(e.entries, Entry{
		Module:  module.String(),
		Mangled: mangled,
		Bytes:   info.Size(),
	})
	e.total += info.Size()
	if e.logger != nil {
		e.logger.Info("artifact size", "module", module.String(), "bytes", info.Size())
	}
	return nil
}

// ExitRoot implements extension.Extension.
func (e *Extension) ExitRoot(string, *compile.Session) error {
	count, err := safecast.Conv[uint32](len(e.entries))
	if err != nil {
		return fmt.Errorf("artifact count overflow: %w", err)
	}
	sort.Slice(e.entries, func(i, j int) bool { return e.entries[i].Module < e.entries[j].Module })
	report := Report{
		TotalBytes: e.total,
		Artifacts:  count,
		Entries:    e.entries,
	}

	f, err := os.Create(e.reportPath)
	if err != nil {
		return fmt.Errorf("failed to create size report: %w", err)
	}
	encErr := toml.NewEncoder(f).Encode(report)
	if closeErr := f.Close(); encErr == nil {
		encErr = closeErr
	}
	if encErr != nil {
		return fmt.Errorf("failed to write size report %q: %w", e.reportPath, encErr)
	}
	if e.logger != nil {
		e.logger.Info("size report written",
			"path", e.reportPath, "artifacts", count, "total_bytes", e.total)
	}
	return nil
}
