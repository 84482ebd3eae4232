package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/thunklang/thunk/internal/compiler"
	"github.com/thunklang/thunk/internal/parser"
	"github.com/thunklang/thunk/internal/repl"
	"github.com/thunklang/thunk/internal/replconfig"
	"github.com/thunklang/thunk/internal/types"
	"github.com/thunklang/thunk/internal/vm"
)

var (
	// Version info - set by ldflags during build.
	Version = "dev"

	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

func main() {
	var (
		versionFlag = flag.Bool("version", false, "Print version information")
		helpFlag    = flag.Bool("help", false, "Show help")
		traceFlag   = flag.Bool("trace", false, "Print every executed VM instruction")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("thunk %s\n", bold(Version))
		return
	}
	if *helpFlag || flag.NArg() == 0 {
		printHelp()
		return
	}

	switch command := flag.Arg(0); command {
	case "run":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("Error"))
			fmt.Println("Usage: thunk run <file.hs>")
			os.Exit(1)
		}
		runFile(flag.Arg(1), *traceFlag)

	case "check":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("Error"))
			fmt.Println("Usage: thunk check <file.hs>")
			os.Exit(1)
		}
		checkFile(flag.Arg(1))

	case "repl":
		config, err := replconfig.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
			os.Exit(1)
		}
		r := repl.New(config, Version)
		if *traceFlag {
			r.EnableTrace()
		}
		r.Start(os.Stdout)

	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", red("Error"), command)
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(bold("thunk - a lazy, statically-typed functional language"))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  thunk <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Printf("  %s <file>     Compile and execute a program's main\n", cyan("run"))
	fmt.Printf("  %s <file>   Parse and type-check without running\n", cyan("check"))
	fmt.Printf("  %s            Start the interactive REPL\n", cyan("repl"))
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --version        Print version information")
	fmt.Println("  --help           Show this help message")
	fmt.Println("  --trace          Print every executed VM instruction")
}

// compile runs one file through the front half of the pipeline: parse,
// type-check, and lower to an assembly.
func compile(filename string) (*vm.Assembly, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", filename, err)
	}
	mod, err := parser.ParseModule(string(content))
	if err != nil {
		return nil, err
	}
	env := types.NewEnv()
	if err := types.TypecheckModule(env, mod); err != nil {
		return nil, err
	}
	return compiler.NewLinker().Compile(mod)
}

func runFile(filename string, trace bool) {
	assembly, err := compile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}

	machine := vm.New()
	machine.AddAssembly(assembly)
	if trace {
		machine.SetTrace(os.Stderr)
	}

	result, err := machine.RunMain()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Runtime error"), err)
		os.Exit(1)
	}
	fmt.Println(result)
}

func checkFile(filename string) {
	if _, err := compile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}
	fmt.Printf("%s %s\n", green("✓"), filename)
}
