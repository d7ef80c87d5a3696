// buffers.go holds the generator's deferred-emission state: the string
// literal table, the array reservation table, the global variable list,
// and the unique label factory. The tables are flushed at their marker
// functions or at finalization.

package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"ncc/ast"
	"ncc/types"
)

// arrayDecl is one deferred array emission: zero-reserved when Values is
// nil, or a literal-value directive with zero padding otherwise.
type arrayDecl struct {
	name   string
	size   int
	kind   types.Kind
	values []int
}

// nextLabel returns a label guaranteed unique within the compilation,
// composed as prefix plus a monotonic counter.
func (g *Generator) nextLabel(prefix string) string {
	label := fmt.Sprintf("%s%d", prefix, g.labelCounter)
	g.labelCounter++
	return label
}

// processEscapes resolves the string-literal escape sequences
// \n \r \t \0 \\ \' \" \xHH into their byte values. The lexer stores the
// raw text between the quotes, so resolution happens here, once, when the
// string enters the table.
func processEscapes(raw string) string {
	var out strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			out.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			out.WriteByte(10)
		case 'r':
			out.WriteByte(13)
		case 't':
			out.WriteByte(9)
		case '0':
			out.WriteByte(0)
		case '\\':
			out.WriteByte('\\')
		case '\'':
			out.WriteByte('\'')
		case '"':
			out.WriteByte('"')
		case 'x':
			if i+2 < len(raw) {
				if n, err := strconv.ParseUint(raw[i+1:i+3], 16, 8); err == nil {
					out.WriteByte(byte(n))
					i += 2
					continue
				}
			}
			out.WriteByte(raw[i])
		default:
			out.WriteByte(raw[i])
		}
	}
	return out.String()
}

// internString adds a string literal to the table and returns its index.
// With string merging enabled, byte-identical contents share one entry.
func (g *Generator) internString(raw string) int {
	processed := processEscapes(raw)

	if g.opts.OptimizationLevel >= OptLevelBasic {
		if index, ok := g.stringIndex[processed]; ok {
			return index
		}
	}

	g.strings = append(g.strings, processed)
	index := len(g.strings) - 1
	g.stringIndex[processed] = index
	return index
}

// addArray registers an array to be emitted at the array marker or at
// file close.
func (g *Generator) addArray(name string, size int, kind types.Kind, values []int) {
	g.arrays = append(g.arrays, arrayDecl{name: name, size: size, kind: kind, values: values})
}

// addGlobal registers a scalar global declaration for deferred placement.
func (g *Generator) addGlobal(node *ast.Declaration) {
	g.globals = append(g.globals, node)
}

// flushStrings emits the string literal table: one
// "string_<i>: db <bytes>, 0" line per entry.
func (g *Generator) flushStrings() {
	if g.sawStringMarker || len(g.strings) == 0 {
		return
	}
	g.sawStringMarker = true

	for i, s := range g.strings {
		bytes := lo.Map([]byte(s), func(b byte, _ int) string {
			return strconv.Itoa(int(b))
		})
		if len(bytes) == 0 {
			fmt.Fprintf(g.w, "string_%d: db 0  ; null terminator\n", i)
			continue
		}
		fmt.Fprintf(g.w, "string_%d: db %s, 0  ; null terminator\n", i, strings.Join(bytes, ", "))
	}
}

// arrayDirective picks the storage directive for an element kind.
func arrayDirective(kind types.Kind) string {
	if kind.IsByte() {
		return "db"
	}
	return "dw"
}

// flushArrays emits the array table: zero reservations via times, and
// literal initializers padded to the declared size.
func (g *Generator) flushArrays() {
	if g.sawArrayMarker || len(g.arrays) == 0 {
		return
	}
	g.sawArrayMarker = true

	for _, a := range g.arrays {
		directive := arrayDirective(a.kind)
		elemSize := 1
		if directive == "dw" {
			elemSize = 2
		}

		if a.values == nil {
			fmt.Fprintf(g.w, "_%s: times %d %s 0 ; Array of %d bytes\n",
				a.name, a.size, directive, a.size*elemSize)
			continue
		}

		values := lo.Map(a.values, func(v int, _ int) string {
			return strconv.Itoa(v)
		})
		fmt.Fprintf(g.w, "_%s: %s %s\n", a.name, directive, strings.Join(values, ", "))
		if len(a.values) < a.size {
			fmt.Fprintf(g.w, "    times %d %s 0\n", a.size-len(a.values), directive)
		}
	}
}

// flushGlobals emits the scalar global variables with their initializers,
// each labeled with the translation-unit prefix.
func (g *Generator) flushGlobals(atMarker bool) {
	if g.sawGlobalMarker || len(g.globals) == 0 {
		return
	}
	g.sawGlobalMarker = true

	if atMarker {
		fmt.Fprintf(g.w, "; Global variables placed at _NCC_GLOBAL_LOC\n")
	} else {
		fmt.Fprintf(g.w, "; Global variables (no _NCC_GLOBAL_LOC marker found)\n")
	}

	for _, node := range g.globals {
		// Arrays live in their own table, except string-initialized char
		// arrays, which were rewritten to a pointer-sized global.
		if node.Type.IsArray && !g.isStringGlobal(node.Name) {
			continue
		}

		if node.Type.Static {
			fmt.Fprintf(g.w, "; Static global variable (file scope): %s\n", node.Name)
		} else {
			fmt.Fprintf(g.w, "; Global variable (program scope): %s\n", node.Name)
		}
		fmt.Fprintf(g.w, "_%s_%s:\n", g.prefix, node.Name)
		g.emitGlobalStorage(node)
	}
}

// emitGlobalStorage writes the db/dw storage for one scalar global, with
// its literal initializer or zero.
func (g *Generator) emitGlobalStorage(node *ast.Declaration) {
	// String-initialized char arrays were rewritten to a word holding the
	// interned string's label.
	if index, ok := g.stringGlobals[node.Name]; ok {
		fmt.Fprintf(g.w, "    dw string_%d ; String address\n\n", index)
		return
	}

	if node.Init != nil {
		switch init := node.Init.(type) {
		case *ast.IntLiteral:
			if node.Type.Kind.IsByte() {
				fmt.Fprintf(g.w, "    db %d ; Byte value\n\n", init.Value)
			} else {
				fmt.Fprintf(g.w, "    dw %d ; Integer value\n\n", init.Value)
			}
			return
		case *ast.BoolLiteral:
			value := 0
			if init.Value {
				value = 1
			}
			fmt.Fprintf(g.w, "    db %d ; Boolean value\n\n", value)
			return
		case *ast.FarPointerLiteral:
			// Offset low word, segment high word.
			fmt.Fprintf(g.w, "    dw %d ; Offset\n", init.Offset)
			fmt.Fprintf(g.w, "    dw %d ; Segment\n\n", init.Segment)
			return
		default:
			fmt.Fprintf(g.w, "    dw 0 ; Non-literal initializer defaults to zero\n\n")
			return
		}
	}

	switch {
	case node.Type.Kind == types.StructKind && !node.Type.IsPointer() && node.Type.Struct != nil:
		fmt.Fprintf(g.w, "    times %d db 0 ; Struct storage\n\n", node.Type.Struct.Size)
	case node.Type.Kind.IsByte() && !node.Type.IsPointer():
		fmt.Fprintf(g.w, "    db 0 ; Zero initialization\n\n")
	case node.Type.IsPointer() && node.Type.FarPointer:
		fmt.Fprintf(g.w, "    dw 0 ; Offset (zero initialization)\n")
		fmt.Fprintf(g.w, "    dw 0 ; Segment (zero initialization)\n\n")
	default:
		fmt.Fprintf(g.w, "    dw 0 ; Zero initialization\n\n")
	}
}
