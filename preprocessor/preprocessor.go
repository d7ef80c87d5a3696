// Package preprocessor implements the textual macro preprocessor: object-like
// macro expansion, conditional compilation, file inclusion with #pragma once,
// and the #org origin directive. It consumes a character buffer and produces
// a character buffer; macros are expanded on identifier boundaries and the
// substituted text is not rescanned.
package preprocessor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"ncc/diag"
)

// Macro is one object-like macro. #undef clears the Defined flag without
// removing the entry, so redefinition is idempotent and conditionals remain
// decidable.
type Macro struct {
	Name    string
	Value   string
	Defined bool
}

// LineMapping records which source file and line produced one line of the
// preprocessed output. Dumped by the compile command's -dl flag.
type LineMapping struct {
	OutputLine int
	File       string
	SourceLine int
}

// Preprocessor holds all preprocessing state for one compilation: the macro
// table, the ordered include search paths, and the set of files already
// pulled in via #pragma once.
type Preprocessor struct {
	macros       []Macro
	includePaths []string
	includedOnce map[string]bool
	mappings     []LineMapping
	outputLine   int

	diag *diag.Manager
}

// New creates a preprocessor with the built-in macros defined.
func New(d *diag.Manager) *Preprocessor {
	p := &Preprocessor{
		includedOnce: make(map[string]bool),
		diag:         d,
	}
	p.Define("__NCC__", "65536")
	p.Define("__NCC_MAJOR__", "1")
	p.Define("__NCC_MINOR__", "0")
	p.Define("__x86_16__", "1")
	return p
}

// AddIncludePath appends a directory to the include search paths.
func (p *Preprocessor) AddIncludePath(path string) {
	if lo.Contains(p.includePaths, path) {
		return
	}
	p.includePaths = append(p.includePaths, path)
}

// Define inserts or updates a macro and marks it defined.
func (p *Preprocessor) Define(name, value string) {
	for i := range p.macros {
		if p.macros[i].Name == name {
			p.macros[i].Value = value
			p.macros[i].Defined = true
			return
		}
	}
	p.macros = append(p.macros, Macro{Name: name, Value: value, Defined: true})
}

// Undef clears the defined flag of a matching macro, if any.
func (p *Preprocessor) Undef(name string) {
	for i := range p.macros {
		if p.macros[i].Name == name {
			p.macros[i].Defined = false
			return
		}
	}
}

// IsDefined reports whether a macro is currently defined.
func (p *Preprocessor) IsDefined(name string) bool {
	for i := range p.macros {
		if p.macros[i].Name == name {
			return p.macros[i].Defined
		}
	}
	return false
}

// Value returns the value of a defined macro.
func (p *Preprocessor) Value(name string) (string, bool) {
	for i := range p.macros {
		if p.macros[i].Name == name && p.macros[i].Defined {
			return p.macros[i].Value, true
		}
	}
	return "", false
}

// LineMappings returns the output-line provenance collected so far.
func (p *Preprocessor) LineMappings() []LineMapping {
	return p.mappings
}

// DumpLineMappings writes the collected line mappings in a readable form.
func (p *Preprocessor) DumpLineMappings(w io.Writer) {
	for _, m := range p.mappings {
		fmt.Fprintf(w, "%4d <- %s:%d\n", m.OutputLine, m.File, m.SourceLine)
	}
}

// canonicalPath normalizes a file path for #pragma once tracking.
func canonicalPath(filename string) string {
	abs, err := filepath.Abs(filename)
	if err != nil {
		abs = filepath.Clean(filename)
	}
	return strings.ToLower(abs)
}

// findIncludeFile resolves an include against the search paths. Quoted
// includes try the literal path first; angle includes search only the
// configured paths.
func (p *Preprocessor) findIncludeFile(filename string, system bool) (string, error) {
	if !system {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
	}
	for _, dir := range p.includePaths {
		full := filepath.Join(dir, filename)
		if _, err := os.Stat(full); err == nil {
			return full, nil
		}
	}
	return "", errors.Errorf("cannot find include file '%s'", filename)
}

// ProcessFile reads and preprocesses a file. Files previously marked with
// #pragma once yield an empty result.
func (p *Preprocessor) ProcessFile(filename string) (string, error) {
	if p.includedOnce[canonicalPath(filename)] {
		return "", nil
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return "", errors.Wrapf(err, "cannot read file '%s'", filename)
	}

	p.Define("__FILE__", fmt.Sprintf("%q", filename))
	return p.Process(string(content), filename)
}

// conditional state for one source buffer
type condState struct {
	ifLevel   int
	skipLevel int
	ifPos     []int // directive positions of open #if frames
}

// Process preprocesses a source buffer. Directive lines are consumed and
// never emitted; everything else is copied through with macros substituted
// on identifier boundaries.
func (p *Preprocessor) Process(source, filename string) (string, error) {
	var out strings.Builder
	out.Grow(len(source))

	cond := condState{}
	lineStart := true
	sourceLine := 1

	emitNewline := func(c byte) {
		p.outputLine++
		p.mappings = append(p.mappings, LineMapping{
			OutputLine: p.outputLine,
			File:       filename,
			SourceLine: sourceLine,
		})
		out.WriteByte(c)
	}

	for i := 0; i < len(source); i++ {
		c := source[i]

		// A '#' first on a line starts a directive; the whole line is
		// consumed and processed out of band.
		if lineStart && c == '#' {
			end := strings.IndexByte(source[i:], '\n')
			if end < 0 {
				if err := p.processDirective(source[i:], i, filename, &cond, &out); err != nil {
					return "", err
				}
				break
			}
			if err := p.processDirective(source[i:i+end], i, filename, &cond, &out); err != nil {
				return "", err
			}
			// Leave the trailing newline to the main loop so line
			// accounting and skip handling see it.
			i += end - 1
			continue
		}

		if c == '\n' || c == '\r' {
			lineStart = true
			if c == '\n' {
				sourceLine++
			}
			if cond.skipLevel > 0 {
				continue
			}
			emitNewline(c)
			continue
		}

		if c != ' ' && c != '\t' {
			lineStart = false
		}

		if cond.skipLevel > 0 {
			continue
		}

		// Identifier start on a boundary: substitute defined macros. The
		// replacement text is emitted verbatim and not rescanned.
		if isIdentStart(c) && (i == 0 || !isIdentChar(source[i-1])) {
			j := i + 1
			for j < len(source) && isIdentChar(source[j]) {
				j++
			}
			if value, ok := p.Value(source[i:j]); ok {
				out.WriteString(value)
				i = j - 1
				continue
			}
		}

		out.WriteByte(c)
	}

	if cond.ifLevel > 0 {
		pos := 0
		if len(cond.ifPos) > 0 {
			pos = cond.ifPos[len(cond.ifPos)-1]
		}
		p.diag.SetSource(filename, source)
		return "", p.diag.Errorf(pos, "unterminated conditional directive")
	}

	return out.String(), nil
}

func isIdentStart(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || '0' <= c && c <= '9'
}

// directiveArg splits "#  name rest" into the directive name and the rest
// of the line with surrounding whitespace trimmed.
func directiveArg(line string) (string, string) {
	body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "#"))
	name := body
	rest := ""
	for k := 0; k < len(body); k++ {
		if body[k] == ' ' || body[k] == '\t' {
			name = body[:k]
			rest = strings.TrimSpace(body[k+1:])
			break
		}
	}
	return name, rest
}

// firstWord returns the leading identifier of s.
func firstWord(s string) string {
	for k := 0; k < len(s); k++ {
		if !isIdentChar(s[k]) {
			return s[:k]
		}
	}
	return s
}

func (p *Preprocessor) processDirective(line string, pos int, filename string, cond *condState, out *strings.Builder) error {
	name, rest := directiveArg(line)

	switch name {
	case "define":
		if cond.skipLevel > 0 {
			return nil
		}
		macroName := firstWord(rest)
		if macroName != "" {
			p.Define(macroName, strings.TrimSpace(rest[len(macroName):]))
		}

	case "undef":
		if cond.skipLevel > 0 {
			return nil
		}
		p.Undef(firstWord(rest))

	case "ifdef", "ifndef":
		cond.ifLevel++
		cond.ifPos = append(cond.ifPos, pos)
		if cond.skipLevel > 0 {
			return nil
		}
		defined := p.IsDefined(firstWord(rest))
		if name == "ifdef" && !defined || name == "ifndef" && defined {
			cond.skipLevel = cond.ifLevel
		}

	case "if":
		cond.ifLevel++
		cond.ifPos = append(cond.ifPos, pos)
		if cond.skipLevel > 0 {
			return nil
		}
		if p.EvalExpression(rest, pos) == 0 {
			cond.skipLevel = cond.ifLevel
		}

	case "else":
		if cond.skipLevel == cond.ifLevel {
			cond.skipLevel = 0
		} else if cond.skipLevel == 0 && cond.ifLevel > 0 {
			cond.skipLevel = cond.ifLevel
		}

	case "endif":
		if cond.skipLevel == cond.ifLevel {
			cond.skipLevel = 0
		} else if cond.skipLevel > cond.ifLevel {
			cond.skipLevel--
		}
		if cond.ifLevel > 0 {
			cond.ifLevel--
			cond.ifPos = cond.ifPos[:len(cond.ifPos)-1]
		}

	case "org":
		if cond.skipLevel > 0 {
			return nil
		}
		p.Define("__ORG_ADDRESS__", rest)

	case "include":
		if cond.skipLevel > 0 {
			return nil
		}
		return p.processInclude(rest, pos, filename, out)

	case "pragma":
		if cond.skipLevel > 0 {
			return nil
		}
		if firstWord(rest) == "once" {
			p.includedOnce[canonicalPath(filename)] = true
		}

	default:
		if cond.skipLevel > 0 {
			return nil
		}
		p.diag.SetSource(filename, "")
		return p.diag.Errorf(-1, "unknown preprocessor directive '#%s'", name)
	}

	return nil
}

// processInclude resolves and splices an included file. Cyclic includes are
// broken by #pragma once.
func (p *Preprocessor) processInclude(rest string, pos int, filename string, out *strings.Builder) error {
	var path string
	var system bool

	switch {
	case strings.HasPrefix(rest, "<"):
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			return p.diag.Errorf(pos, "malformed #include directive, missing closing >")
		}
		path = rest[1:end]
		system = true
	case strings.HasPrefix(rest, "\""):
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			return p.diag.Errorf(pos, "malformed #include directive, missing closing \"")
		}
		path = rest[1 : 1+end]
	default:
		return p.diag.Errorf(pos, "malformed #include directive, expected < or \"")
	}

	resolved, err := p.findIncludeFile(path, system)
	if err != nil {
		return p.diag.Errorf(pos, "%v", err)
	}

	included, err := p.ProcessFile(resolved)
	if err != nil {
		return errors.Wrapf(err, "in file included from %s", filename)
	}

	// Splice the preprocessed content in place of the directive, then
	// restore __FILE__ for the including file.
	out.WriteString(included)
	p.Define("__FILE__", fmt.Sprintf("%q", filename))
	return nil
}
