package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"weslbuild"
)

// renderSink prints one line per walk event.
type renderSink struct {
	out      io.Writer
	okColor  *color.Color
	errColor *color.Color
}

func newRenderSink(out io.Writer, colorize bool) *renderSink {
	okColor := color.New(color.FgGreen)
	errColor := color.New(color.FgRed, color.Bold)
	if !colorize {
		okColor.DisableColor()
		errColor.DisableColor()
	}
	return &renderSink{out: out, okColor: okColor, errColor: errColor}
}

func (s *renderSink) OnEvent(evt weslbuild.Event) {
	switch evt.Status {
	case weslbuild.StatusDone:
		if evt.Stage == weslbuild.StageCompile && evt.File != "" {
			_, _ = fmt.Fprintf(s.out, "%s %s (%.1f ms)\n",
				s.okColor.Sprint("compiled"), filepath.Base(evt.File), toMillis(evt.Elapsed))
		}
	case weslbuild.StatusError:
		target := evt.File
		if target == "" {
			target = string(evt.Stage)
		}
		_, _ = fmt.Fprintf(s.out, "%s %s: %v\n", s.errColor.Sprint("error"), target, evt.Err)
	}
}

func printStageTimings(out io.Writer, timings weslbuild.Timings, enabled bool) {
	if out == nil || !enabled {
		return
	}
	stages := []weslbuild.Stage{
		weslbuild.StageInit,
		weslbuild.StageCompile,
		weslbuild.StagePostBuild,
		weslbuild.StageFinish,
	}
	for _, stage := range stages {
		if !timings.Has(stage) {
			continue
		}
		_, err := fmt.Fprintf(out, "%s %.1f ms\n", stage, toMillis(timings.Duration(stage)))
		if err != nil {
			panic(err)
		}
	}
	_, err := fmt.Fprintf(out, "total %.1f ms\n", toMillis(timings.Total()))
	if err != nil {
		panic(err)
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
