package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"ncc/diag"
	"ncc/preprocessor"
)

// preprocessCmd runs only the preprocessor and writes the expanded source.
type preprocessCmd struct {
	output    string
	includes  includePaths
	dumpLines bool
}

func (*preprocessCmd) Name() string     { return "preprocess" }
func (*preprocessCmd) Synopsis() string { return "Run the preprocessor and print the expanded source" }
func (*preprocessCmd) Usage() string {
	return `preprocess [options] <source file>:
  Expand macros, conditionals, and includes without compiling.
`
}

func (c *preprocessCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file (default: standard output)")
	f.Var(&c.includes, "I", "Add a path to the include search paths (repeatable)")
	f.BoolVar(&c.dumpLines, "dl", false, "Show preprocessor line mappings")
}

func (c *preprocessCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	mgr := diag.NewManager(sourceFile, string(raw), false)
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

	if c.output == "" {
		fmt.Print(processed)
	} else if err := os.WriteFile(c.output, []byte(processed), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to write output: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.dumpLines {
		fmt.Fprintln(os.Stderr, "Preprocessor line mappings:")
		pp.DumpLineMappings(os.Stderr)
	}
	return subcommands.ExitSuccess
}
