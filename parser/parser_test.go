package parser

import (
	"io"
	"testing"

	"ncc/ast"
	"ncc/diag"
	"ncc/lexer"
	"ncc/types"
)

func parseSource(t *testing.T, source string) (*ast.Program, *Parser, *diag.Manager, error) {
	t.Helper()
	mgr := diag.NewManager("test.c", source, false)
	mgr.Out = io.Discard
	lex := lexer.New(source, mgr)
	p := New(lex, mgr)
	program, err := p.ParseProgram()
	return program, p, mgr, err
}

func mustParse(t *testing.T, source string) (*ast.Program, *Parser) {
	t.Helper()
	program, p, _, err := parseSource(t, source)
	if err != nil {
		t.Fatalf("ParseProgram() error: %v", err)
	}
	return program, p
}

func TestParseSimpleFunction(t *testing.T) {
	program, _ := mustParse(t, "int main() { return 0; }")

	if len(program.Decls) != 1 {
		t.Fatalf("decl count = %d, want 1", len(program.Decls))
	}
	fn, ok := program.Decls[0].(*ast.Function)
	if !ok {
		t.Fatalf("decl is %T, want *ast.Function", program.Decls[0])
	}
	if fn.Name != "main" || fn.ReturnType.Kind != types.I16 {
		t.Errorf("function = %s returning %v", fn.Name, fn.ReturnType.Kind)
	}
	if len(fn.Body.Stmts) != 1 {
		t.Fatalf("body statement count = %d, want 1", len(fn.Body.Stmts))
	}
	ret, ok := fn.Body.Stmts[0].(*ast.Return)
	if !ok {
		t.Fatalf("statement is %T, want *ast.Return", fn.Body.Stmts[0])
	}
	lit, ok := ret.X.(*ast.IntLiteral)
	if !ok || lit.Value != 0 {
		t.Errorf("return value = %#v, want literal 0", ret.X)
	}
}

func TestParseParameters(t *testing.T) {
	_, p := mustParse(t, "int add(int a, char *b) { return a; }")

	info, ok := p.Symbols().Lookup("a")
	if !ok || info.Kind != types.I16 {
		t.Errorf("symbol a = %+v, %v", info, ok)
	}
	info, ok = p.Symbols().Lookup("b")
	if !ok || info.Kind != types.I8 || info.PointerDepth != 1 {
		t.Errorf("symbol b = %+v, %v", info, ok)
	}
}

func TestAttributeForms(t *testing.T) {
	tests := []struct {
		name   string
		source string
		check  func(info ast.FuncInfo) bool
	}{
		{
			name:   "legacy naked",
			source: "__attribute__((naked)) void f() {}",
			check:  func(info ast.FuncInfo) bool { return info.Naked },
		},
		{
			name:   "c23 naked",
			source: "[[naked]] void f() {}",
			check:  func(info ast.FuncInfo) bool { return info.Naked },
		},
		{
			name:   "c23 deprecated with message",
			source: `[[deprecated("use g instead")]] void f() {}`,
			check: func(info ast.FuncInfo) bool {
				return info.Deprecated && info.DeprecationMsg == "use g instead"
			},
		},
		{
			name:   "trailing attribute after params",
			source: "void f() __attribute__((naked)) {}",
			check:  func(info ast.FuncInfo) bool { return info.Naked },
		},
		{
			name:   "stackframe keyword",
			source: "__stackframe void f() {}",
			check:  func(info ast.FuncInfo) bool { return info.Stackframe },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, _ := mustParse(t, tt.source)
			fn := program.Decls[0].(*ast.Function)
			if !tt.check(fn.Info) {
				t.Errorf("attribute not applied: %+v", fn.Info)
			}
		})
	}
}

func TestVariadicFunction(t *testing.T) {
	program, _ := mustParse(t, "int printf(char *fmt, ...) { return 0; }")
	fn := program.Decls[0].(*ast.Function)
	if !fn.Info.Variadic {
		t.Errorf("variadic flag not set")
	}
	if len(fn.Params) != 1 {
		t.Errorf("param count = %d, want 1", len(fn.Params))
	}
}

func TestArrayIndexDesugarsToDeref(t *testing.T) {
	program, _ := mustParse(t, "int f(int *a) { return a[2]; }")
	fn := program.Decls[0].(*ast.Function)
	ret := fn.Body.Stmts[0].(*ast.Return)

	deref, ok := ret.X.(*ast.Unary)
	if !ok || deref.Op != ast.UnaryDeref {
		t.Fatalf("a[2] should desugar to a dereference, got %#v", ret.X)
	}
	sum, ok := deref.Operand.(*ast.Binary)
	if !ok || sum.Op != ast.OpAdd {
		t.Fatalf("dereference operand should be an addition, got %#v", deref.Operand)
	}
}

func TestStructDefinitionAndLayout(t *testing.T) {
	_, p := mustParse(t, "struct P { int x; int y; }; struct P g;")

	info := p.Structs().Lookup("P")
	if info == nil {
		t.Fatalf("struct P not registered")
	}
	if info.Size != 4 {
		t.Errorf("struct size = %d, want 4", info.Size)
	}
	if info.Member("y").Offset != 2 {
		t.Errorf("offset(y) = %d, want 2", info.Member("y").Offset)
	}

	sym, ok := p.Symbols().Lookup("g")
	if !ok || sym.Kind != types.StructKind || sym.Struct != info {
		t.Errorf("symbol g = %+v", sym)
	}
}

func TestDuplicateStructFails(t *testing.T) {
	_, _, _, err := parseSource(t, "struct P { int x; }; struct P { int y; };")
	if err == nil {
		t.Errorf("duplicate struct definition should fail")
	}
}

func TestUnknownStructFails(t *testing.T) {
	_, _, _, err := parseSource(t, "struct Missing m;")
	if err == nil {
		t.Errorf("unknown struct type should fail")
	}
}

func TestUnsizedStructArrayMemberFails(t *testing.T) {
	_, _, _, err := parseSource(t, "struct P { int xs[]; };")
	if err == nil {
		t.Errorf("unsized struct array member should fail")
	}
}

func TestVoidParameterFails(t *testing.T) {
	_, _, _, err := parseSource(t, "int f(void v) { return 0; }")
	if err == nil {
		t.Errorf("void parameter should fail")
	}
}

func TestVoidVariableFails(t *testing.T) {
	_, _, _, err := parseSource(t, "void v;")
	if err == nil {
		t.Errorf("void variable should fail")
	}
}

func TestVoidPointerDerefAssignmentFails(t *testing.T) {
	_, _, _, err := parseSource(t, "void f(void *p) { *p = 1; }")
	if err == nil {
		t.Errorf("assignment through void* should fail")
	}
}

func TestVoidPointerVariableAllowed(t *testing.T) {
	_, p := mustParse(t, "void f(void *p) { p; }")
	info, ok := p.Symbols().Lookup("p")
	if !ok || info.Kind != types.Void || info.PointerDepth != 1 {
		t.Errorf("symbol p = %+v, %v", info, ok)
	}
}

func TestDeprecatedCallWarns(t *testing.T) {
	source := `[[deprecated("old")]] int f() { return 0; } int main() { return f(); }`
	_, _, mgr, err := parseSource(t, source)
	if err != nil {
		t.Fatalf("ParseProgram() error: %v", err)
	}
	if mgr.WarningCount() != 1 {
		t.Errorf("warning count = %d, want 1", mgr.WarningCount())
	}
}

func TestLocalStaticWarns(t *testing.T) {
	_, _, mgr, err := parseSource(t, "int main() { static int x = 1; return x; }")
	if err != nil {
		t.Fatalf("ParseProgram() error: %v", err)
	}
	if mgr.WarningCount() != 1 {
		t.Errorf("warning count = %d, want 1", mgr.WarningCount())
	}
}

func TestFarPointerLiteral(t *testing.T) {
	program, _ := mustParse(t, "int main() { return *(int *__far)0xB800:0; }")
	fn := program.Decls[0].(*ast.Function)
	ret := fn.Body.Stmts[0].(*ast.Return)

	deref := ret.X.(*ast.Unary)
	cast, ok := deref.Operand.(*ast.Unary)
	if !ok || cast.Op != ast.UnaryCast {
		t.Fatalf("expected cast under deref, got %#v", deref.Operand)
	}
	far, ok := cast.Operand.(*ast.FarPointerLiteral)
	if !ok || far.Segment != 0xB800 || far.Offset != 0 {
		t.Errorf("far pointer literal = %#v", cast.Operand)
	}
}

func TestSizeofForms(t *testing.T) {
	program, _ := mustParse(t, "struct P { int x; int y; }; int main() { return sizeof(struct P) + sizeof(int); }")
	fn := program.Decls[1].(*ast.Function)
	ret := fn.Body.Stmts[0].(*ast.Return)
	sum := ret.X.(*ast.Binary)

	left := sum.Left.(*ast.Unary)
	if left.Op != ast.UnarySizeof || left.SizeofType.Struct == nil {
		t.Errorf("sizeof(struct P) not parsed as type form: %#v", left)
	}
	right := sum.Right.(*ast.Unary)
	if right.Op != ast.UnarySizeof || right.SizeofType.Kind != types.I16 {
		t.Errorf("sizeof(int) not parsed as type form: %#v", right)
	}
}

func TestTernaryParses(t *testing.T) {
	program, _ := mustParse(t, "int main() { return 1 ? 2 : 3; }")
	fn := program.Decls[0].(*ast.Function)
	ret := fn.Body.Stmts[0].(*ast.Return)
	if _, ok := ret.X.(*ast.Ternary); !ok {
		t.Errorf("expected ternary, got %#v", ret.X)
	}
}

func TestAsmForms(t *testing.T) {
	program, _ := mustParse(t, `void f() { __asm("hlt"); __asm { cli hlt }; }`)
	fn := program.Decls[0].(*ast.Function)

	stmt, ok := fn.Body.Stmts[0].(*ast.AsmStmt)
	if !ok || stmt.Template != "hlt" {
		t.Errorf("asm statement = %#v", fn.Body.Stmts[0])
	}
	block, ok := fn.Body.Stmts[1].(*ast.AsmBlock)
	if !ok || block.Text != "cli hlt" {
		t.Errorf("asm block = %#v", fn.Body.Stmts[1])
	}
}

func TestExtendedAsmOperands(t *testing.T) {
	program, _ := mustParse(t, `void f(int x) { __asm("out 0x60, ax" : : "r"(x)); }`)
	fn := program.Decls[0].(*ast.Function)
	stmt := fn.Body.Stmts[0].(*ast.AsmStmt)
	if len(stmt.Operands) != 1 || len(stmt.Constraints) != 1 || stmt.Constraints[0] != "r" {
		t.Errorf("extended asm = %#v", stmt)
	}
}

func TestCompoundAssignmentParses(t *testing.T) {
	program, _ := mustParse(t, "int main() { int x = 1; x += 2; x <<= 1; return x; }")
	fn := program.Decls[0].(*ast.Function)

	plus := fn.Body.Stmts[1].(*ast.ExprStmt).X.(*ast.Assign)
	if plus.Op != ast.OpPlusAssign {
		t.Errorf("x += 2 op = %v", plus.Op)
	}
	shift := fn.Body.Stmts[2].(*ast.ExprStmt).X.(*ast.Assign)
	if shift.Op != ast.OpLeftShiftAssign {
		t.Errorf("x <<= 1 op = %v", shift.Op)
	}
}

func TestMemberAccessParses(t *testing.T) {
	source := "struct P { int x; }; int f(struct P *p) { return p->x; }"
	program, _ := mustParse(t, source)
	fn := program.Decls[1].(*ast.Function)
	ret := fn.Body.Stmts[0].(*ast.Return)
	member, ok := ret.X.(*ast.Member)
	if !ok || member.Op != ast.OpArrow || member.Name != "x" {
		t.Errorf("p->x = %#v", ret.X)
	}
}
