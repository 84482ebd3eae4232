// Package repl implements the interactive loop: one expression per line,
// type-checked against a persistent environment and executed on a
// persistent VM, with module loading for definitions.
package repl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/thunklang/thunk/internal/ast"
	"github.com/thunklang/thunk/internal/compiler"
	"github.com/thunklang/thunk/internal/parser"
	"github.com/thunklang/thunk/internal/replconfig"
	"github.com/thunklang/thunk/internal/types"
	"github.com/thunklang/thunk/internal/vm"
)

// Color functions for pretty output.
var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

// REPL holds the state persisted across input lines: the type environment,
// the compiler's accumulated global table, and the VM with every assembly
// compiled so far.
type REPL struct {
	config  *replconfig.Config
	env     *types.Env
	linker  *compiler.Linker
	machine *vm.VM

	exprCount int
	version   string
}

// New creates a REPL with a fresh pipeline.
func New(config *replconfig.Config, version string) *REPL {
	if config == nil {
		config = replconfig.Default()
	}
	if version == "" {
		version = "dev"
	}
	r := &REPL{
		config:  config,
		env:     types.NewEnv(),
		linker:  compiler.NewLinker(),
		machine: vm.New(),
		version: version,
	}
	if config.Trace {
		r.machine.SetTrace(os.Stderr)
	}
	return r
}

// EnableTrace turns on per-instruction VM tracing.
func (r *REPL) EnableTrace() {
	r.machine.SetTrace(os.Stderr)
}

// Start begins the interactive session, reading until EOF or :quit.
func (r *REPL) Start(out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()

	if f, err := os.Open(r.config.HistoryFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	line.SetMultiLineMode(true)
	line.SetCompleter(func(input string) (c []string) {
		if strings.HasPrefix(input, ":") {
			for _, cmd := range []string{":help", ":quit", ":type", ":load", ":trace"} {
				if strings.HasPrefix(cmd, input) {
					c = append(c, cmd)
				}
			}
		}
		return
	})

	fmt.Fprintf(out, "%s %s\n", bold("thunk"), bold(r.version))
	fmt.Fprintln(out, dim("Type :help for help, :quit to exit"))
	fmt.Fprintln(out)

	for {
		input, err := line.Prompt(r.config.Prompt)
		if err == io.EOF {
			fmt.Fprintln(out, green("\nGoodbye!"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, ":") {
			if input == ":quit" || input == ":q" {
				fmt.Fprintln(out, green("Goodbye!"))
				break
			}
			r.handleCommand(input, out)
			continue
		}

		r.evalLine(input, out)
	}

	if f, err := os.Create(r.config.HistoryFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

func (r *REPL) handleCommand(input string, out io.Writer) {
	parts := strings.Fields(input)
	switch parts[0] {
	case ":help", ":h":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  :help, :h        Show this help")
		fmt.Fprintln(out, "  :quit, :q        Exit")
		fmt.Fprintln(out, "  :type <expr>     Show an expression's inferred type without running it")
		fmt.Fprintln(out, "  :load <file>     Load a module's definitions into the session")
		fmt.Fprintln(out, "  :trace           Enable per-instruction VM tracing")

	case ":type", ":t":
		if len(parts) < 2 {
			fmt.Fprintf(out, "%s: usage: :type <expression>\n", red("Error"))
			return
		}
		src := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(input, parts[0]), " "))
		expr, err := parser.ParseExpression(src)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			return
		}
		if err := types.TypecheckExpr(r.env, expr); err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			return
		}
		fmt.Fprintf(out, "%s :: %s\n", src, yellow(r.typeString(expr.Type())))

	case ":load", ":l":
		if len(parts) < 2 {
			fmt.Fprintf(out, "%s: usage: :load <file>\n", red("Error"))
			return
		}
		if err := r.LoadFile(parts[1]); err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			return
		}
		fmt.Fprintf(out, "%s loaded %s\n", green("✓"), parts[1])

	case ":trace":
		r.EnableTrace()
		fmt.Fprintln(out, yellow("tracing enabled"))

	default:
		fmt.Fprintf(out, "%s: unknown command %q; :help lists commands\n", red("Error"), parts[0])
	}
}

// LoadFile compiles a module source file into the session, making its
// bindings, classes and instances available to later expressions.
func (r *REPL) LoadFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return r.LoadModule(string(src))
}

// LoadModule type-checks and compiles module source text into the session.
func (r *REPL) LoadModule(src string) error {
	mod, err := parser.ParseModule(src)
	if err != nil {
		return err
	}
	if err := types.TypecheckModule(r.env, mod); err != nil {
		return err
	}
	assembly, err := r.linker.Compile(mod)
	if err != nil {
		return err
	}
	r.machine.AddAssembly(assembly)
	return nil
}

// evalLine runs one expression through the full pipeline and prints its
// name, inferred type and value.
func (r *REPL) evalLine(input string, out io.Writer) {
	name, typ, result, err := r.Eval(input)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
		return
	}
	fmt.Fprintf(out, "%s :: %s = %s\n", cyan(name), yellow(typ), green(result.String()))
}

// Eval type-checks, compiles and runs one expression, returning the
// generated binding name, the rendered type, and the extracted result.
func (r *REPL) Eval(input string) (name, typ string, result vm.Result, err error) {
	expr, err := parser.ParseExpression(input)
	if err != nil {
		return "", "", vm.Result{}, err
	}
	if err := types.TypecheckExpr(r.env, expr); err != nil {
		return "", "", vm.Result{}, err
	}

	context := r.env.FindConstraints(expr.Type())
	for _, c := range context {
		if r.linker.HasClass(c.Class) {
			return "", "", vm.Result{}, fmt.Errorf(
				"ambiguous constraint %s: the expression never fixes its type", c)
		}
	}

	name = fmt.Sprintf("it%d", r.exprCount)
	r.exprCount++
	bind := &ast.Binding{
		Name:       name,
		Expression: expr,
		TypeDecl:   ast.TypeDeclaration{Name: name, Type: expr.Type().Clone()},
	}
	mod := &ast.Module{Name: "Interactive", Bindings: []*ast.Binding{bind}}

	assembly, err := r.linker.Compile(mod)
	if err != nil {
		return "", "", vm.Result{}, err
	}
	r.machine.AddAssembly(assembly)

	sc := r.machine.FindSuperCombinator(name)
	node, err := r.machine.Evaluate(sc.Instructions, sc.AssemblyID)
	if err != nil {
		return "", "", vm.Result{}, err
	}
	forced, err := r.machine.DeepForce(node, sc.AssemblyID)
	if err != nil {
		return "", "", vm.Result{}, err
	}
	result, err = vm.ExtractResult(forced)
	if err != nil {
		return "", "", vm.Result{}, err
	}
	return name, r.typeString(expr.Type()), result, nil
}

// typeString renders a type together with whatever context its variables
// still carry, e.g. "Num t3 => t3".
func (r *REPL) typeString(typ *ast.Type) string {
	context := r.env.FindConstraints(typ)
	if len(context) == 0 {
		return typ.String()
	}
	parts := make([]string, len(context))
	for i, c := range context {
		parts[i] = c.String()
	}
	if len(parts) == 1 {
		return fmt.Sprintf("%s => %s", parts[0], typ)
	}
	return fmt.Sprintf("(%s) => %s", strings.Join(parts, ", "), typ)
}
