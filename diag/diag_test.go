package diag

import (
	"bytes"
	"strings"
	"testing"
)

func TestErrorResolvesPosition(t *testing.T) {
	var out bytes.Buffer
	mgr := NewManager("prog.c", "int x;\nint @ y;\n", false)
	mgr.Out = &out

	err := mgr.Errorf(11, "Unexpected character")
	if err == nil {
		t.Fatalf("Errorf returned nil")
	}
	diagErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error is %T, want *Error", err)
	}
	if diagErr.Line != 2 || diagErr.Column != 5 {
		t.Errorf("position = %d:%d, want 2:5", diagErr.Line, diagErr.Column)
	}
	if !strings.Contains(out.String(), "prog.c:2:5") {
		t.Errorf("rendered diagnostic missing location: %q", out.String())
	}
	if !strings.Contains(out.String(), "^~~~") {
		t.Errorf("rendered diagnostic missing caret: %q", out.String())
	}
}

func TestErrorCapAborts(t *testing.T) {
	var out bytes.Buffer
	mgr := NewManager("prog.c", "x", false)
	mgr.Out = &out
	mgr.SetMaxErrors(3)

	var last error
	for i := 0; i < 3; i++ {
		last = mgr.Errorf(0, "error %d", i)
	}
	if last != ErrTooManyErrors {
		t.Errorf("error at cap = %v, want ErrTooManyErrors", last)
	}
	if mgr.Errorf(0, "one more") != ErrTooManyErrors {
		t.Errorf("errors past the cap must keep returning ErrTooManyErrors")
	}
	if mgr.ErrorCount() != 3 {
		t.Errorf("error count = %d, want 3", mgr.ErrorCount())
	}
}

func TestQuietModeSuppressesWarningsNotErrors(t *testing.T) {
	var out bytes.Buffer
	mgr := NewManager("prog.c", "x", true)
	mgr.Out = &out

	mgr.Warnf(0, "a warning")
	if out.Len() != 0 {
		t.Errorf("quiet mode should suppress warning output")
	}
	if mgr.WarningCount() != 1 {
		t.Errorf("warning count = %d, want 1", mgr.WarningCount())
	}

	mgr.Errorf(0, "an error")
	if out.Len() == 0 {
		t.Errorf("errors must never be suppressed")
	}
}
