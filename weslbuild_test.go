package weslbuild

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"weslbuild/compile"
	"weslbuild/extension"
	"weslbuild/mangle"
	"weslbuild/modpath"
)

// recorder logs every hook call into a shared journal.
type recorder struct {
	name    string
	journal *[]string
	failAt  extension.Stage
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) record(stage extension.Stage, detail string) error {
	entry := fmt.Sprintf("%s.%s", r.name, stage)
	if detail != "" {
		entry += ":" + detail
	}
	*r.journal = append(*r.journal, entry)
	if r.failAt == stage {
		return errors.New("forced failure")
	}
	return nil
}

func (r *recorder) InitRoot(string, *compile.Session) error {
	return r.record(extension.StageInitRoot, "")
}

func (r *recorder) EnterModule(dir string) error {
	return r.record(extension.StageEnterModule, filepath.Base(dir))
}

func (r *recorder) ExitModule(dir string) error {
	return r.record(extension.StageExitModule, filepath.Base(dir))
}

func (r *recorder) PostBuild(module modpath.Path, _ string, _ *compile.SourceMap) error {
	return r.record(extension.StagePostBuild, module.Leaf())
}

func (r *recorder) ExitRoot(string, *compile.Session) error {
	return r.record(extension.StageExitRoot, "")
}

// fakeCompiler writes a stub artifact at the deterministic location.
type fakeCompiler struct {
	outDir string
	calls  []string
}

func (c *fakeCompiler) Compile(module modpath.Path, mangled string) (*compile.SourceMap, error) {
	c.calls = append(c.calls, module.String())
	path := compile.ArtifactPath(c.outDir, mangled)
	if err := os.WriteFile(path, []byte("// "+module.String()+"\n"), 0o600); err != nil {
		return nil, err
	}
	return &compile.SourceMap{Source: module.String()}, nil
}

func writeShaderTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return root
}

func TestWalkWithoutExtensions(t *testing.T) {
	root := writeShaderTree(t, map[string]string{
		"a.wesl":     "fn a() {}",
		"sub/b.wesl": "fn b() {}",
		"notes.txt":  "skip me",
	})
	out := t.TempDir()
	comp := &fakeCompiler{outDir: out}

	res, err := Build(Options{Root: root, OutputDir: out, Compiler: comp})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(res.Artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(res.Artifacts))
	}

	wantA := compile.ArtifactPath(out, mangle.Mangle(modpath.New(modpath.OriginAbsolute, "a"), "a"))
	wantB := compile.ArtifactPath(out, mangle.Mangle(modpath.New(modpath.OriginAbsolute, "sub", "b"), "b"))
	for _, want := range []string{wantA, wantB} {
		if _, err := os.Stat(want); err != nil {
			t.Fatalf("missing artifact %s: %v", want, err)
		}
	}
	if len(res.Touched) != 2 {
		t.Fatalf("expected 2 touched files, got %v", res.Touched)
	}
}

func TestLifecycleCallSequence(t *testing.T) {
	root := writeShaderTree(t, map[string]string{
		"sub/b.wesl": "fn b() {}",
	})
	out := t.TempDir()

	var journal []string
	e1 := &recorder{name: "E1", journal: &journal}
	e2 := &recorder{name: "E2", journal: &journal}

	_, err := Build(Options{
		Root:       root,
		OutputDir:  out,
		Compiler:   &fakeCompiler{outDir: out},
		Extensions: []extension.Extension{e1, e2},
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	want := []string{
		"E1.init_root", "E2.init_root",
		"E1.enter_module:sub", "E2.enter_module:sub",
		"E1.post_build:b", "E2.post_build:b",
		"E1.exit_module:sub", "E2.exit_module:sub",
		"E1.exit_root", "E2.exit_root",
	}
	if strings.Join(journal, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected call sequence:\n%s\nwant:\n%s",
			strings.Join(journal, "\n"), strings.Join(want, "\n"))
	}
}

func TestFilesBeforeDirectories(t *testing.T) {
	// "aaa" sorts before "zfile.wesl"; the file must still come first.
	root := writeShaderTree(t, map[string]string{
		"zfile.wesl":  "fn z() {}",
		"aaa/in.wesl": "fn in() {}",
	})
	out := t.TempDir()

	var journal []string
	rec := &recorder{name: "E", journal: &journal}
	_, err := Build(Options{
		Root:       root,
		OutputDir:  out,
		Compiler:   &fakeCompiler{outDir: out},
		Extensions: []extension.Extension{rec},
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	postIdx, enterIdx := -1, -1
	for i, entry := range journal {
		switch entry {
		case "E.post_build:zfile":
			postIdx = i
		case "E.enter_module:aaa":
			enterIdx = i
		}
	}
	if postIdx == -1 || enterIdx == -1 {
		t.Fatalf("missing expected calls in %v", journal)
	}
	if postIdx > enterIdx {
		t.Fatalf("sibling file built after subdirectory entered: %v", journal)
	}
}

func TestRootGetsNoModuleHooks(t *testing.T) {
	root := writeShaderTree(t, map[string]string{"a.wesl": "fn a() {}"})
	out := t.TempDir()

	var journal []string
	rec := &recorder{name: "E", journal: &journal}
	_, err := Build(Options{
		Root:       root,
		OutputDir:  out,
		Compiler:   &fakeCompiler{outDir: out},
		Extensions: []extension.Extension{rec},
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	for _, entry := range journal {
		if strings.Contains(entry, "enter_module") || strings.Contains(entry, "exit_module") {
			t.Fatalf("root directory received a module hook: %v", journal)
		}
	}
}

func TestInitRootFailureAbortsEverything(t *testing.T) {
	root := writeShaderTree(t, map[string]string{
		"a.wesl":     "fn a() {}",
		"sub/b.wesl": "fn b() {}",
	})
	out := t.TempDir()

	var journal []string
	e1 := &recorder{name: "E1", journal: &journal, failAt: extension.StageInitRoot}
	e2 := &recorder{name: "E2", journal: &journal}
	comp := &fakeCompiler{outDir: out}

	_, err := Build(Options{
		Root:       root,
		OutputDir:  out,
		Compiler:   comp,
		Extensions: []extension.Extension{e1, e2},
	})
	if err == nil {
		t.Fatalf("expected build failure")
	}

	var extErr *extension.Error
	if !errors.As(err, &extErr) {
		t.Fatalf("expected *extension.Error, got %T: %v", err, err)
	}
	if extErr.Extension != "E1" || extErr.Stage != extension.StageInitRoot {
		t.Fatalf("error does not identify the failing hook: %+v", extErr)
	}
	if len(journal) != 1 || journal[0] != "E1.init_root" {
		t.Fatalf("hooks ran after the failure: %v", journal)
	}
	if len(comp.calls) != 0 {
		t.Fatalf("compiler ran after init failure: %v", comp.calls)
	}
}

func TestPostBuildFailureStopsWalk(t *testing.T) {
	root := writeShaderTree(t, map[string]string{
		"a.wesl":     "fn a() {}",
		"sub/b.wesl": "fn b() {}",
	})
	out := t.TempDir()

	var journal []string
	e1 := &recorder{name: "E1", journal: &journal, failAt: extension.StagePostBuild}
	e2 := &recorder{name: "E2", journal: &journal}

	_, err := Build(Options{
		Root:       root,
		OutputDir:  out,
		Compiler:   &fakeCompiler{outDir: out},
		Extensions: []extension.Extension{e1, e2},
	})
	var extErr *extension.Error
	if !errors.As(err, &extErr) || extErr.Stage != extension.StagePostBuild {
		t.Fatalf("expected post_build extension error, got %v", err)
	}
	for _, entry := range journal {
		// E2 must never see the file E1 failed on, and nothing may run after.
		if entry == "E2.post_build:a" || strings.HasSuffix(entry, "exit_root") {
			t.Fatalf("hooks ran after post_build failure: %v", journal)
		}
	}
}

func TestRootPublication(t *testing.T) {
	root := writeShaderTree(t, map[string]string{"a.wesl": "fn a() {}"})
	out := t.TempDir()
	manifestPath := filepath.Join(out, "locations.toml")

	t.Setenv(RootEnvVar, "")
	_, err := Build(Options{
		Root:      root,
		OutputDir: out,
		Compiler:  &fakeCompiler{outDir: out},
		RootSinks: []RootSink{EnvSink{}, FileSink{Path: manifestPath}},
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if got := os.Getenv(RootEnvVar); got != root {
		t.Fatalf("%s = %q, want %q", RootEnvVar, got, root)
	}
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatalf("location manifest missing: %v", err)
	}
	if !strings.Contains(string(data), "shader_root") {
		t.Fatalf("unexpected manifest contents: %s", data)
	}
}

func TestDeriveModule(t *testing.T) {
	module, err := DeriveModule("/shaders", "/shaders/post/blur.wesl")
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if module.String() != "package::post::blur" {
		t.Fatalf("unexpected module path %q", module.String())
	}

	module, err = DeriveModule("/shaders", "/shaders/top.wgsl")
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if module.String() != "package::top" {
		t.Fatalf("unexpected module path %q", module.String())
	}

	if _, err := DeriveModule("/shaders", "/elsewhere/a.wesl"); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected ErrOutsideRoot, got %v", err)
	}
}

func TestProgressEvents(t *testing.T) {
	root := writeShaderTree(t, map[string]string{"a.wesl": "fn a() {}"})
	out := t.TempDir()

	ch := make(chan Event, 32)
	_, err := Build(Options{
		Root:      root,
		OutputDir: out,
		Compiler:  &fakeCompiler{outDir: out},
		Progress:  ChannelSink{Ch: ch},
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	close(ch)

	var stages []Stage
	for evt := range ch {
		if evt.Status == StatusDone {
			stages = append(stages, evt.Stage)
		}
	}
	want := []Stage{StageInit, StageCompile, StagePostBuild, StageFinish}
	if len(stages) != len(want) {
		t.Fatalf("unexpected done events %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("unexpected done events %v, want %v", stages, want)
		}
	}
}

type touchList struct {
	files []string
}

func (l *touchList) FileTouched(path string) { l.files = append(l.files, path) }

func TestNotifierSeesEveryShaderFile(t *testing.T) {
	root := writeShaderTree(t, map[string]string{
		"a.wesl":     "fn a() {}",
		"b.wgsl":     "fn b() {}",
		"skip.txt":   "nope",
		"sub/c.wesl": "fn c() {}",
	})
	out := t.TempDir()

	var touched touchList
	_, err := Build(Options{
		Root:      root,
		OutputDir: out,
		Compiler:  &fakeCompiler{outDir: out},
		Notifier:  &touched,
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(touched.files) != 3 {
		t.Fatalf("expected 3 touched files, got %v", touched.files)
	}
}
