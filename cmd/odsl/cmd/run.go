package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"github.com/odsl-lang/odsl/internal/ast"
	oerrors "github.com/odsl-lang/odsl/internal/errors"
	"github.com/odsl-lang/odsl/internal/eval"
	"github.com/odsl-lang/odsl/pkg/odsl"
)

var (
	evalExpr string
	dumpAST  bool
	trace    bool
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run an O-DSL file or expression",
	Long: `Execute an O-DSL program from a file or inline expression, or start
an interactive shell when neither is given.

Examples:
  # Run a script file
  odsl run script.odsl

  # Evaluate an inline expression
  odsl run -e "fac:{$[x=0;1;x*fac[x-1]]};fac 20"

  # Run with AST dump (for debugging)
  odsl run --dump-ast script.odsl

  # Run with a trampoline transition trace
  odsl run --trace -e "2+5+3"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "evaluate inline code instead of reading from file")
	runCmd.Flags().BoolVar(&dumpAST, "dump-ast", false, "dump the parsed AST (for debugging)")
	runCmd.Flags().BoolVar(&trace, "trace", false, "trace trampoline transitions (for debugging)")
}

// traceRecord is the shape --trace pretty-prints per trampoline transition.
type traceRecord struct {
	From, To string
	Value    string
}

func interpOptions() []odsl.Option {
	var opts []odsl.Option
	if trace {
		n := 0
		opts = append(opts, odsl.WithTrace(func(from, to eval.State) {
			n++
			rec := traceRecord{From: stateLabel(from), To: stateLabel(to), Value: to.Value.String()}
			fmt.Fprintf(os.Stderr, "[Trampoline:%d] %s\n", n, pretty.Sprint(rec))
		}))
	}
	return opts
}

func stateLabel(st eval.State) string {
	switch st.Kind {
	case eval.KDefer:
		return "Defer"
	case eval.KForce:
		return "Force"
	case eval.KReturn:
		return "Return"
	case eval.KYield:
		return "Yield"
	default:
		return "?"
	}
}

func runScript(_ *cobra.Command, args []string) error {
	var input, filename string
	switch {
	case evalExpr != "":
		input = evalExpr
		filename = "<eval>"
	case len(args) == 1:
		filename = args[0]
		content, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", filename, err)
		}
		input = string(content)
	default:
		return runShell()
	}
	return executeSource(input, filename)
}

func executeSource(input, filename string) error {
	in := odsl.New(interpOptions()...)

	prog, errs := in.Parse(input)
	if len(errs) > 0 {
		fmt.Fprint(os.Stderr, oerrors.FormatAll(errs, true))
		fmt.Fprintln(os.Stderr)
		return fmt.Errorf("parsing failed with %d error(s)", len(errs))
	}

	if dumpAST {
		fmt.Println("AST:")
		fmt.Println(pretty.Sprint(prog))
		fmt.Println()
	}

	v, err := in.Run(input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return fmt.Errorf("execution failed")
	}
	if v.Kind != ast.VNil {
		fmt.Println(in.Display(v))
	}
	return nil
}

// runShell is the line-by-line interactive surface: read a line, `exit`
// terminates with status 0, anything else parses and prints. Interpreter
// state persists across lines; a parse error discards only that input.
func runShell() error {
	in := odsl.New(interpOptions()...)
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("o) ")
	for scanner.Scan() {
		line := scanner.Text()
		if line == "exit" {
			return nil
		}
		if line != "" {
			out, err := in.Eval(line)
			switch {
			case err != nil:
				fmt.Fprintln(os.Stderr, err.Error())
			case out != "":
				fmt.Println(out)
			}
		}
		fmt.Print("o) ")
	}
	return scanner.Err()
}
