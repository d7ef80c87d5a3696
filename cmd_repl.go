package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"ncc/diag"
	"ncc/preprocessor"
)

// replCmd is an interactive evaluator for preprocessor constant
// expressions, with #define/#undef support, useful for checking #if
// conditions without running a compile.
type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Evaluate preprocessor constant expressions interactively" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive session. Enter an expression to evaluate it as
  #if would; #define and #undef update the session's macro table.
`
}

func (r *replCmd) SetFlags(f *flag.FlagSet) {}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Println("ncc preprocessor expression evaluator (exit to quit)")

	rl, err := readline.New(">>> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to start readline: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	mgr := diag.NewManager("<repl>", "", false)
	pp := preprocessor.New(mgr)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return subcommands.ExitSuccess
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "💥 %v\n", err)
			return subcommands.ExitFailure
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "exit":
			return subcommands.ExitSuccess

		case strings.HasPrefix(line, "#define"):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "#define"))
			name, value, _ := strings.Cut(rest, " ")
			if name == "" {
				fmt.Println("usage: #define NAME [VALUE]")
				continue
			}
			pp.Define(name, strings.TrimSpace(value))

		case strings.HasPrefix(line, "#undef"):
			pp.Undef(strings.TrimSpace(strings.TrimPrefix(line, "#undef")))

		default:
			fmt.Println(pp.EvalExpression(line, -1))
		}
	}
}
