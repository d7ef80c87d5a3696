// Package codegen walks the AST once and emits NASM-syntax 8086 assembly.
// Expression results are left in AX (DX:AX for far pointers); locals live
// in a BP-relative word-aligned frame; string literals, zero-initialized
// arrays, and scalar globals are deferred to marker functions or to file
// close.
package codegen

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"ncc/ast"
	"ncc/diag"
	"ncc/types"
)

// Optimization levels.
const (
	OptLevelNone  = 0 // -O0: no optimization
	OptLevelBasic = 1 // -O1: string merging
)

// Options configures one code generation run.
type Options struct {
	// Origin is the org directive value, the absolute load address of
	// the flat binary.
	Origin uint32

	// SystemMode emits the bootloader startup sequence after the header.
	SystemMode bool

	// SetStackSegment, with StackSegment/StackPointer, emits the SS:SP
	// setup in system mode.
	SetStackSegment bool
	StackSegment    uint32
	StackPointer    uint32

	// OptimizationLevel is OptLevelNone or OptLevelBasic.
	OptimizationLevel int

	// SourceFile is the translation unit's filename; its sanitized stem
	// prefixes global variable labels.
	SourceFile string
}

// localVar tracks one frame slot. Parameters are recorded with negative
// offsets encoding positive BP displacements; locals with positive
// offsets encoding bp-offset.
type localVar struct {
	name   string
	offset int
}

// loopLabels is one entry of the break/continue label stack.
type loopLabels struct {
	continueLabel string
	breakLabel    string
}

// Generator emits assembly for one program. All per-compilation state is
// kept here; nothing is package level.
type Generator struct {
	w      io.Writer
	opts   Options
	diag   *diag.Manager
	oracle *types.Oracle
	prefix string

	labelCounter int

	strings       []string
	stringIndex   map[string]int
	stringGlobals map[string]int
	arrays        []arrayDecl
	globals       []*ast.Declaration

	sawStringMarker bool
	sawArrayMarker  bool
	sawGlobalMarker bool

	locals    []localVar
	stackSize int

	currentFunction string
	currentNaked    bool
	loopStack       []loopLabels
}

// New creates a generator writing to w, consulting the given oracle for
// pointer scaling and store widths.
func New(w io.Writer, oracle *types.Oracle, d *diag.Manager, opts Options) *Generator {
	return &Generator{
		w:             w,
		opts:          opts,
		diag:          d,
		oracle:        oracle,
		prefix:        sanitizeStem(opts.SourceFile),
		stringIndex:   make(map[string]int),
		stringGlobals: make(map[string]int),
	}
}

// sanitizeStem strips the extension from a filename and replaces
// non-alphanumeric characters with underscores.
func sanitizeStem(filename string) string {
	stem := filepath.Base(filename)
	if dot := strings.LastIndexByte(stem, '.'); dot > 0 {
		stem = stem[:dot]
	}
	if stem == "" || stem == "." {
		return "unknown"
	}
	var out strings.Builder
	for i := 0; i < len(stem); i++ {
		c := stem[i]
		if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' || c == '_' {
			out.WriteByte(c)
		} else {
			out.WriteByte('_')
		}
	}
	return out.String()
}

// ins writes one indented instruction line.
func (g *Generator) ins(format string, args ...any) {
	fmt.Fprintf(g.w, "    "+format+"\n", args...)
}

// label writes a label line.
func (g *Generator) label(name string) {
	fmt.Fprintf(g.w, "%s:\n", name)
}

// comment writes an indented comment line.
func (g *Generator) comment(format string, args ...any) {
	fmt.Fprintf(g.w, "    ; "+format+"\n", args...)
}

// globalLabel returns the mangled label of a scalar global.
func (g *Generator) globalLabel(name string) string {
	return fmt.Sprintf("_%s_%s", g.prefix, name)
}

// clearLocals resets the frame state on function entry.
func (g *Generator) clearLocals() {
	g.locals = g.locals[:0]
	g.stackSize = 0
}

// addLocal records a local and returns its BP offset. Every local slot is
// word sized regardless of declared type.
func (g *Generator) addLocal(name string, words int) int {
	if words < 1 {
		words = 1
	}
	g.stackSize += 2 * words
	g.locals = append(g.locals, localVar{name: name, offset: g.stackSize})
	return g.stackSize
}

// variableOffset returns a variable's frame offset, or 0 when the name is
// not in the frame (a global).
func (g *Generator) variableOffset(name string) int {
	for _, v := range g.locals {
		if v.name == name {
			return v.offset
		}
	}
	return 0
}

// isParameter reports whether a name was recorded as a parameter.
func (g *Generator) isParameter(name string) bool {
	for _, v := range g.locals {
		if v.name == name {
			return v.offset < 0
		}
	}
	return false
}

// Generate walks the program and writes the complete assembly output,
// flushing any unflushed tables at close.
func (g *Generator) Generate(program *ast.Program) error {
	g.emitHeader()

	for _, decl := range program.Decls {
		switch node := decl.(type) {
		case *ast.Function:
			g.generateFunction(node)
		case *ast.Declaration:
			g.registerGlobal(node)
		case *ast.StructDef:
			// Layout already lives in the registry; no storage emitted.
		default:
			g.diag.Warnf(-1, "Unsupported top-level node %T", decl)
		}
	}

	g.finalize()

	if g.diag.ErrorCount() > 0 {
		return fmt.Errorf("code generation finished with %d error(s)", g.diag.ErrorCount())
	}
	return nil
}

// emitHeader writes the target directives first (bits on line 1, org on
// line 2) and, in system mode, the boot-time stack setup and the jump to
// the load label.
func (g *Generator) emitHeader() {
	fmt.Fprintf(g.w, "bits 16\n")
	fmt.Fprintf(g.w, "org 0x%X\n", g.opts.Origin)
	fmt.Fprintf(g.w, "; 8086 assembly generated by ncc\n\n")

	if g.opts.SystemMode {
		g.comment("Bootloader startup")
		if g.opts.SetStackSegment {
			g.ins("mov ax, 0x%X", g.opts.StackSegment)
			g.ins("mov ss, ax")
			g.ins("mov sp, 0x%X", g.opts.StackPointer)
		}
		g.ins("jmp _after_diskload")
		fmt.Fprintln(g.w)
	}
}

// registerGlobal routes a top-level declaration into the deferred tables.
func (g *Generator) registerGlobal(node *ast.Declaration) {
	if node.Type.IsArray {
		// A char array initialized from a string literal becomes a word
		// holding the interned string's address.
		if s, ok := node.Init.(*ast.StringLiteral); ok {
			g.stringGlobals[node.Name] = g.internString(s.Value)
			g.addGlobal(node)
			return
		}
		if node.InitList != nil {
			g.addArray(node.Name, node.Type.ArraySize, node.Type.Kind, literalValues(node.InitList))
		} else {
			g.addArray(node.Name, node.Type.ArraySize, node.Type.Kind, nil)
		}
		return
	}
	g.addGlobal(node)
}

// literalValues extracts integer values from an initializer list;
// non-literal entries default to zero.
func literalValues(list []ast.Expr) []int {
	values := make([]int, 0, len(list))
	for _, expr := range list {
		switch e := expr.(type) {
		case *ast.IntLiteral:
			values = append(values, e.Value)
		case *ast.BoolLiteral:
			if e.Value {
				values = append(values, 1)
			} else {
				values = append(values, 0)
			}
		default:
			values = append(values, 0)
		}
	}
	return values
}

// Marker function names whose only effect is pinning table placement.
const (
	stringMarker = "_NCC_STRING_LOC"
	arrayMarker  = "_NCC_ARRAY_LOC"
	globalMarker = "_NCC_GLOBAL_LOC"
)

// generateFunction emits one function: label, prologue, body, exit label,
// epilogue. Marker functions flush their table and emit only the label.
func (g *Generator) generateFunction(node *ast.Function) {
	switch node.Name {
	case stringMarker:
		g.flushStrings()
		g.comment("String literal location marker")
		g.label("_" + node.Name)
		return
	case arrayMarker:
		g.flushArrays()
		g.comment("Array location marker")
		g.label("_" + node.Name)
		return
	case globalMarker:
		g.flushGlobals(true)
		g.comment("Global variable location marker")
		g.label("_" + node.Name)
		return
	}

	g.clearLocals()
	g.currentFunction = node.Name
	g.currentNaked = node.Info.Naked

	fmt.Fprintf(g.w, "; Function: %s\n", node.Name)
	g.label("_" + node.Name)

	switch {
	case node.Info.Naked:
		g.comment("Naked function - no prologue generated")
	case node.Info.Stackframe:
		g.comment("Setup stackframe with register preservation")
		g.ins("push bp")
		g.ins("mov bp, sp")
		g.ins("push bx")
		g.ins("push cx")
		g.ins("push dx")
		g.ins("push si")
		g.ins("push di")
	default:
		g.ins("push bp")
		g.ins("mov bp, sp")
	}
	fmt.Fprintln(g.w)

	// Parameters sit above the saved BP and return address, at bp+4,
	// bp+6, ... in declaration order. They are recorded with negated
	// offsets to distinguish them from locals.
	paramOffset := 4
	for _, param := range node.Params {
		g.locals = append(g.locals, localVar{name: param.Name, offset: -paramOffset})
		paramOffset += 2
	}

	if node.Body != nil {
		g.generateBlock(node.Body)
	}

	fmt.Fprintln(g.w)
	g.label(fmt.Sprintf("_%s_exit", node.Name))

	switch {
	case node.Info.Naked:
		g.comment("Naked function - no epilogue generated")
	case node.Info.Stackframe:
		g.comment("Restore stackframe with registers")
		g.ins("lea sp, [bp-10]")
		g.ins("pop di")
		g.ins("pop si")
		g.ins("pop dx")
		g.ins("pop cx")
		g.ins("pop bx")
		g.ins("mov sp, bp")
		g.ins("pop bp")
		g.ins("ret")
	default:
		g.comment("Standard function epilogue")
		g.ins("mov sp, bp")
		g.ins("pop bp")
		g.ins("ret")
	}
	fmt.Fprintln(g.w)

	g.currentFunction = ""
	g.currentNaked = false
}

// finalize flushes any tables whose markers were never seen.
func (g *Generator) finalize() {
	g.flushGlobals(false)

	if (!g.sawStringMarker && len(g.strings) > 0) || (!g.sawArrayMarker && len(g.arrays) > 0) {
		fmt.Fprintf(g.w, "\n; Data section for strings and arrays\n")
		g.flushStrings()
		g.flushArrays()
	}
}
