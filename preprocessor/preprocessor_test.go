package preprocessor

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ncc/diag"
)

func newTestPreprocessor() (*Preprocessor, *diag.Manager) {
	mgr := diag.NewManager("test.c", "", false)
	mgr.Out = io.Discard
	return New(mgr), mgr
}

func process(t *testing.T, source string) string {
	t.Helper()
	pp, _ := newTestPreprocessor()
	out, err := pp.Process(source, "test.c")
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	return out
}

func TestDefineAndSubstitute(t *testing.T) {
	got := process(t, "#define A 3\nint x = A;\n")
	want := "\nint x = 3;\n"
	if got != want {
		t.Errorf("Process() = %q, want %q", got, want)
	}
}

func TestSubstitutionRespectsIdentifierBoundaries(t *testing.T) {
	got := process(t, "#define A 3\nint AB = 1; int b = A;\n")
	if !strings.Contains(got, "int AB = 1") {
		t.Errorf("macro substituted inside identifier: %q", got)
	}
	if !strings.Contains(got, "int b = 3") {
		t.Errorf("macro not substituted on boundary: %q", got)
	}
}

func TestExpansionIsNotRecursive(t *testing.T) {
	// The substituted text is emitted verbatim and not rescanned.
	got := process(t, "#define A B\n#define B A\nint x = A;\n")
	if !strings.Contains(got, "int x = B;") {
		t.Errorf("expected single-step expansion, got %q", got)
	}
}

func TestIdentityWithoutDirectives(t *testing.T) {
	source := "int main() {\n    return 42; /* no directives */\n}\n"
	got := process(t, source)
	if got != source {
		t.Errorf("Process() = %q, want identity %q", got, source)
	}
}

func TestIfElseBranches(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		contains string
		excludes string
	}{
		{
			name:     "true branch",
			source:   "#if 1\nfirst\n#else\nsecond\n#endif\n",
			contains: "first",
			excludes: "second",
		},
		{
			name:     "false branch",
			source:   "#if 0\nfirst\n#else\nsecond\n#endif\n",
			contains: "second",
			excludes: "first",
		},
		{
			name:     "ifdef undefined",
			source:   "#ifdef NOPE\nfirst\n#else\nsecond\n#endif\n",
			contains: "second",
			excludes: "first",
		},
		{
			name:     "ifndef undefined",
			source:   "#ifndef NOPE\nfirst\n#else\nsecond\n#endif\n",
			contains: "first",
			excludes: "second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := process(t, tt.source)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("missing %q in %q", tt.contains, got)
			}
			if strings.Contains(got, tt.excludes) {
				t.Errorf("unexpected %q in %q", tt.excludes, got)
			}
		})
	}
}

func TestNestedConditionals(t *testing.T) {
	source := "#if 0\n#if 1\ninner\n#endif\nskipped\n#else\nkept\n#endif\n"
	got := process(t, source)
	if strings.Contains(got, "inner") || strings.Contains(got, "skipped") {
		t.Errorf("nested false block leaked: %q", got)
	}
	if !strings.Contains(got, "kept") {
		t.Errorf("else branch missing: %q", got)
	}
}

func TestUndefThenDefined(t *testing.T) {
	source := "#define X 1\n#undef X\n#if defined(X)\nyes\n#else\nno\n#endif\n"
	got := process(t, source)
	if strings.Contains(got, "yes") || !strings.Contains(got, "no") {
		t.Errorf("defined(X) after #undef evaluated wrong: %q", got)
	}
}

func TestDefineAfterUndefIsIdempotent(t *testing.T) {
	pp, _ := newTestPreprocessor()
	pp.Define("X", "1")
	pp.Undef("X")
	if pp.IsDefined("X") {
		t.Fatalf("X still defined after Undef")
	}
	pp.Define("X", "2")
	value, ok := pp.Value("X")
	if !ok || value != "2" {
		t.Errorf("redefinition after undef: value = %q, %v", value, ok)
	}
}

func TestUnterminatedConditional(t *testing.T) {
	pp, mgr := newTestPreprocessor()
	_, err := pp.Process("#if 1\nno end\n", "test.c")
	if err == nil {
		t.Fatalf("expected unterminated conditional error")
	}
	if mgr.ErrorCount() == 0 {
		t.Errorf("expected a reported error")
	}
}

func TestUnknownDirective(t *testing.T) {
	pp, _ := newTestPreprocessor()
	if _, err := pp.Process("#frobnicate now\n", "test.c"); err == nil {
		t.Errorf("expected unknown directive error")
	}
}

func TestOrgDirective(t *testing.T) {
	pp, _ := newTestPreprocessor()
	if _, err := pp.Process("#org 0x7C00\n", "test.c"); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	value, ok := pp.Value("__ORG_ADDRESS__")
	if !ok || value != "0x7C00" {
		t.Errorf("__ORG_ADDRESS__ = %q, %v; want 0x7C00", value, ok)
	}
}

func TestBuiltinMacros(t *testing.T) {
	pp, _ := newTestPreprocessor()
	for _, name := range []string{"__NCC__", "__NCC_MAJOR__", "__NCC_MINOR__", "__x86_16__"} {
		if !pp.IsDefined(name) {
			t.Errorf("built-in macro %s not defined", name)
		}
	}
}

func TestIncludeSplicesContent(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "defs.h")
	if err := os.WriteFile(header, []byte("#define SIZE 10\nint fromHeader;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	main := filepath.Join(dir, "main.c")
	source := "#include \"defs.h\"\nint buf[SIZE];\n"
	if err := os.WriteFile(main, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}

	pp, _ := newTestPreprocessor()
	pp.AddIncludePath(dir)
	got, err := pp.ProcessFile(main)
	if err != nil {
		t.Fatalf("ProcessFile() error: %v", err)
	}
	if !strings.Contains(got, "int fromHeader;") {
		t.Errorf("included content not spliced: %q", got)
	}
	if !strings.Contains(got, "int buf[10];") {
		t.Errorf("macro from include not applied: %q", got)
	}
}

func TestPragmaOnce(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "once.h")
	if err := os.WriteFile(header, []byte("#pragma once\nint onlyOnce;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	main := filepath.Join(dir, "main.c")
	source := "#include \"once.h\"\n#include \"once.h\"\n"
	if err := os.WriteFile(main, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}

	pp, _ := newTestPreprocessor()
	pp.AddIncludePath(dir)
	got, err := pp.ProcessFile(main)
	if err != nil {
		t.Fatalf("ProcessFile() error: %v", err)
	}
	if strings.Count(got, "int onlyOnce;") != 1 {
		t.Errorf("#pragma once file included %d times: %q", strings.Count(got, "int onlyOnce;"), got)
	}
}

func TestMissingIncludeFails(t *testing.T) {
	pp, _ := newTestPreprocessor()
	if _, err := pp.Process("#include \"nonexistent.h\"\n", "test.c"); err == nil {
		t.Errorf("expected missing include error")
	}
}
