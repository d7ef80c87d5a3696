package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"ncc/codegen"
	"ncc/diag"
	"ncc/lexer"
	"ncc/parser"
	"ncc/preprocessor"
	"ncc/token"
	"ncc/types"
)

// includePaths collects repeatable -I flags.
type includePaths []string

func (i *includePaths) String() string { return strings.Join(*i, ",") }

func (i *includePaths) Set(value string) error {
	*i = append(*i, value)
	return nil
}

// compileCmd implements the full compilation pipeline: preprocess, lex,
// parse, generate assembly, and optionally invoke NASM on the result.
type compileCmd struct {
	output       string
	dumpAST      bool
	dumpLines    bool
	includes     includePaths
	displacement string
	optimization int
	optBasic     bool
	optNone      bool
	comTarget    bool
	sysTarget    bool
	stackSegment string
	stopAfterAsm bool
}

func (*compileCmd) Name() string     { return "compile" }
func (*compileCmd) Synopsis() string { return "Compile a C source file to 8086 NASM assembly" }
func (*compileCmd) Usage() string {
	return `compile [options] <source file>:
  Compile a source file to a flat-binary 8086 program.
`
}

func (c *compileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "output.asm", "Output file")
	f.BoolVar(&c.dumpAST, "d", false, "Debug mode (print AST)")
	f.BoolVar(&c.dumpLines, "dl", false, "Debug line tracking (show preprocessor line mappings)")
	f.Var(&c.includes, "I", "Add a path to the include search paths (repeatable)")
	f.StringVar(&c.displacement, "disp", "", "Set origin displacement address (hex or decimal)")
	f.IntVar(&c.optimization, "O", 0, "Optimization level (0=none, 1=basic)")
	f.BoolVar(&c.optBasic, "O1", false, "Shorthand for -O 1")
	f.BoolVar(&c.optNone, "O0", false, "Shorthand for -O 0")
	f.BoolVar(&c.comTarget, "com", false, "Target MS-DOS executable (ORG 0x100)")
	f.BoolVar(&c.sysTarget, "sys", false, "Target bootloader (ORG 0x7C00)")
	f.StringVar(&c.stackSegment, "ss", "", "Initial SS:SP in bootloader mode (hex, SEG:OFF)")
	f.BoolVar(&c.stopAfterAsm, "S", false, "Stop after generating assembly (don't assemble)")
}

// parseOrigin accepts a hex (0x-prefixed) or decimal address.
func parseOrigin(text string) (uint32, error) {
	value, err := strconv.ParseUint(text, 0, 32)
	return uint32(value), err
}

func (c *compileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "💥 No source file specified\n")
		return subcommands.ExitUsageError
	}
	sourceFile := f.Arg(0)

	raw, err := os.ReadFile(sourceFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.optBasic {
		c.optimization = codegen.OptLevelBasic
	}
	if c.optNone {
		c.optimization = codegen.OptLevelNone
	}

	opts := codegen.Options{
		OptimizationLevel: c.optimization,
		SourceFile:        sourceFile,
	}
	if c.comTarget {
		opts.Origin = 0x100
	}
	if c.sysTarget {
		opts.Origin = 0x7C00
		opts.SystemMode = true
	}
	if c.displacement != "" {
		origin, err := parseOrigin(c.displacement)
		if err != nil {
			fmt.Fprintf(os.Stderr, "💥 Invalid -disp address: %v\n", err)
			return subcommands.ExitUsageError
		}
		opts.Origin = origin
	}
	if c.stackSegment != "" {
		seg, off, ok := strings.Cut(c.stackSegment, ":")
		if !ok {
			fmt.Fprintf(os.Stderr, "💥 -ss option requires SS:SP format in hexadecimal\n")
			return subcommands.ExitUsageError
		}
		segValue, segErr := strconv.ParseUint(seg, 16, 16)
		offValue, offErr := strconv.ParseUint(off, 16, 16)
		if segErr != nil || offErr != nil {
			fmt.Fprintf(os.Stderr, "💥 -ss option requires SS:SP format in hexadecimal\n")
			return subcommands.ExitUsageError
		}
		opts.SetStackSegment = true
		opts.StackSegment = uint32(segValue)
		opts.StackPointer = uint32(offValue)
	}

	// Warnings are shown in debug mode only; errors always.
	mgr := diag.NewManager(sourceFile, string(raw), !c.dumpAST)

	pp := preprocessor.New(mgr)
	pp.AddIncludePath(".")
	for _, path := range c.includes {
		pp.AddIncludePath(path)
	}

	processed, err := pp.ProcessFile(sourceFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Preprocessing failed: %v\n", err)
		return subcommands.ExitFailure
	}

	// #org in the source sets the origin unless -disp overrode it.
	if c.displacement == "" {
		if value, ok := pp.Value("__ORG_ADDRESS__"); ok {
			if origin, err := parseOrigin(strings.TrimSpace(value)); err == nil {
				opts.Origin = origin
			}
		}
	}

	if c.dumpLines {
		fmt.Println("Preprocessor line mappings:")
		pp.DumpLineMappings(os.Stdout)
		dumpTokenStream(processed)
	}

	// Positions from here on refer to the preprocessed source.
	mgr.SetSource(sourceFile, processed)

	lex := lexer.New(processed, mgr)
	p := parser.New(lex, mgr)
	program, err := p.ParseProgram()
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Compilation failed\n")
		return subcommands.ExitFailure
	}

	if c.dumpAST {
		if _, err := parser.PrintASTJSON(program); err != nil {
			fmt.Fprintf(os.Stderr, "💥 error producing AST JSON: %v\n", err)
		}
	}

	asmFile := c.output
	if !c.stopAfterAsm {
		asmFile = "temp.asm"
	}

	out, err := os.Create(asmFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Could not open output file %s: %v\n", asmFile, err)
		return subcommands.ExitFailure
	}

	oracle := types.NewOracle(p.Symbols(), p.Structs())
	gen := codegen.New(out, oracle, mgr, opts)
	genErr := gen.Generate(program)
	if closeErr := out.Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to write output: %v\n", closeErr)
		return subcommands.ExitFailure
	}
	if genErr != nil {
		fmt.Fprintf(os.Stderr, "💥 %v\n", genErr)
		return subcommands.ExitFailure
	}

	if !c.stopAfterAsm {
		if status := assemble(asmFile, c.output); status != subcommands.ExitSuccess {
			return status
		}
	}

	if mgr.ErrorCount() > 0 {
		return subcommands.ExitFailure
	}
	if c.dumpAST {
		fmt.Printf("Compilation successful. Output written to %s\n", c.output)
	}
	return subcommands.ExitSuccess
}

// assemble runs NASM on the generated assembly to produce the flat binary.
func assemble(asmFile, output string) subcommands.ExitStatus {
	nasm, err := exec.LookPath("nasm")
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 nasm not found in PATH (use -S to keep the assembly)\n")
		return subcommands.ExitFailure
	}

	cmd := exec.Command(nasm, "-f", "bin", asmFile, "-o", output)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "💥 NASM failed: %v\n", err)
		return subcommands.ExitFailure
	}
	_ = os.Remove(asmFile)
	return subcommands.ExitSuccess
}

// dumpTokenStream re-lexes the preprocessed source and prints the tokens.
func dumpTokenStream(source string) {
	quiet := diag.NewManager("", source, true)
	lex := lexer.New(source, quiet)

	var tokens []token.Token
	for {
		current := lex.Current()
		tokens = append(tokens, current)
		if current.Type == token.EOF {
			break
		}
		lex.Next()
	}

	fmt.Println("Token stream:")
	token.DumpTokens(os.Stdout, tokens)
}
