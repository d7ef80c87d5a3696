package lexer

import (
	"io"
	"reflect"
	"testing"

	"ncc/diag"
	"ncc/token"
)

func newTestLexer(input string) (*Lexer, *diag.Manager) {
	mgr := diag.NewManager("test.c", input, false)
	mgr.Out = io.Discard
	return New(input, mgr), mgr
}

// collectTypes scans the whole input and returns the token types.
func collectTypes(t *testing.T, input string) []token.TokenType {
	t.Helper()
	lex, _ := newTestLexer(input)

	var types []token.TokenType
	for {
		current := lex.Current()
		types = append(types, current.Type)
		if current.Type == token.EOF {
			return types
		}
		lex.Next()
	}
}

func TestOperatorScan(t *testing.T) {
	got := collectTypes(t, "== != <= >= << >> <<= >>= && || -> ++ -- += -= *= /= %= ... [[ ]] ~ ^")
	want := []token.TokenType{
		token.EQ, token.NEQ, token.LTE, token.GTE,
		token.LEFT_SHIFT, token.RIGHT_SHIFT,
		token.LEFT_SHIFT_ASSIGN, token.RIGHT_SHIFT_ASSIGN,
		token.AND, token.OR, token.ARROW,
		token.INCREMENT, token.DECREMENT,
		token.PLUS_ASSIGN, token.MINUS_ASSIGN, token.MUL_ASSIGN,
		token.DIV_ASSIGN, token.MOD_ASSIGN,
		token.ELLIPSIS, token.ATTR_OPEN, token.ATTR_CLOSE,
		token.BITWISE_NOT, token.XOR,
		token.EOF,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("collectTypes() = %v, want %v", got, want)
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	got := collectTypes(t, "int main unsigned char __far naked x123 _tmp")
	want := []token.TokenType{
		token.INT, token.IDENTIFIER, token.UNSIGNED, token.CHAR,
		token.FAR, token.NAKED, token.IDENTIFIER, token.IDENTIFIER,
		token.EOF,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("collectTypes() = %v, want %v", got, want)
	}
}

func TestNumberLiterals(t *testing.T) {
	lex, _ := newTestLexer("42 0x1F 0")

	tests := []string{"42", "0x1F", "0"}
	for _, want := range tests {
		current := lex.Current()
		if current.Type != token.NUMBER {
			t.Fatalf("expected NUMBER, got %v", current.Type)
		}
		if current.Value != want {
			t.Errorf("number value = %q, want %q", current.Value, want)
		}
		lex.Next()
	}
}

func TestCharLiteralEscapes(t *testing.T) {
	tests := []struct {
		input string
		want  byte
	}{
		{`'A'`, 'A'},
		{`'\n'`, 10},
		{`'\t'`, 9},
		{`'\0'`, 0},
		{`'\\'`, '\\'},
		{`'\x41'`, 0x41},
	}

	for _, tt := range tests {
		lex, _ := newTestLexer(tt.input)
		current := lex.Current()
		if current.Type != token.CHAR_LITERAL {
			t.Errorf("%s: expected CHAR_LITERAL, got %v", tt.input, current.Type)
			continue
		}
		if current.Value[0] != tt.want {
			t.Errorf("%s: value = %d, want %d", tt.input, current.Value[0], tt.want)
		}
	}
}

func TestStringLiteralKeepsRawEscapes(t *testing.T) {
	lex, _ := newTestLexer(`"Hi\n"`)
	current := lex.Current()
	if current.Type != token.STRING {
		t.Fatalf("expected STRING, got %v", current.Type)
	}
	// Escape resolution is deferred to the string-table writer.
	if current.Value != `Hi\n` {
		t.Errorf("string value = %q, want %q", current.Value, `Hi\n`)
	}
}

func TestUnterminatedStringReportsError(t *testing.T) {
	lex, mgr := newTestLexer(`"oops`)
	if lex.Err() == nil {
		t.Errorf("expected an unterminated string error")
	}
	if mgr.ErrorCount() != 1 {
		t.Errorf("error count = %d, want 1", mgr.ErrorCount())
	}
}

func TestPositions(t *testing.T) {
	lex, _ := newTestLexer("int\n  foo;")

	first := lex.Current()
	if first.Line != 1 || first.Column != 1 || first.Pos != 0 {
		t.Errorf("first token position = %d:%d@%d, want 1:1@0", first.Line, first.Column, first.Pos)
	}

	second := lex.Next()
	if second.Line != 2 || second.Column != 3 || second.Pos != 6 {
		t.Errorf("second token position = %d:%d@%d, want 2:3@6", second.Line, second.Column, second.Pos)
	}
}

func TestSnapshotRestore(t *testing.T) {
	lex, _ := newTestLexer("a b c")

	saved := lex.Snapshot()
	lex.Next()
	lex.Next()
	if lex.Current().Value != "c" {
		t.Fatalf("expected to be at c, got %q", lex.Current().Value)
	}

	lex.Restore(saved)
	if lex.Current().Value != "a" {
		t.Errorf("after restore, current = %q, want %q", lex.Current().Value, "a")
	}
	if lex.Next().Value != "b" {
		t.Errorf("after restore, next = %q, want %q", lex.Current().Value, "b")
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	lex, _ := newTestLexer("x y")
	if lex.Peek().Value != "y" {
		t.Errorf("Peek() = %q, want y", lex.Peek().Value)
	}
	if lex.Current().Value != "x" {
		t.Errorf("Current() after Peek = %q, want x", lex.Current().Value)
	}
}

func TestUnknownCharacterIsSkipped(t *testing.T) {
	lex, mgr := newTestLexer("a @ b")
	if lex.Current().Value != "a" {
		t.Fatalf("expected a, got %q", lex.Current().Value)
	}
	if lex.Next().Value != "b" {
		t.Errorf("expected @ to be skipped, got %q", lex.Current().Value)
	}
	if mgr.WarningCount() != 1 {
		t.Errorf("warning count = %d, want 1", mgr.WarningCount())
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	got := collectTypes(t, "a // comment\nb /* block\ncomment */ c")
	want := []token.TokenType{token.IDENTIFIER, token.IDENTIFIER, token.IDENTIFIER, token.EOF}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("collectTypes() = %v, want %v", got, want)
	}
}
