package parser

import (
	"strings"
	"testing"
)

func TestPrintASTJSON(t *testing.T) {
	program, _ := mustParse(t, "int main() { int x = 1; return x + 2; }")

	jsonStr, err := PrintASTJSON(program)
	if err != nil {
		t.Fatalf("PrintASTJSON() error: %v", err)
	}

	for _, want := range []string{
		`"type": "Program"`,
		`"type": "Function"`,
		`"name": "main"`,
		`"type": "Declaration"`,
		`"type": "Return"`,
		`"operator": "+"`,
	} {
		if !strings.Contains(jsonStr, want) {
			t.Errorf("AST JSON missing %s:\n%s", want, jsonStr)
		}
	}
}

func TestWriteASTJSONToFile(t *testing.T) {
	program, _ := mustParse(t, "int main() { return 0; }")

	path := t.TempDir() + "/ast.json"
	if err := WriteASTJSONToFile(program, path); err != nil {
		t.Fatalf("WriteASTJSONToFile() error: %v", err)
	}
}
