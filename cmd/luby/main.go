// Command luby is the CLI/REPL front end exercising the embedding API:
// `run` a script file, `eval` an inline expression, drop into `repl`,
// or `debug`/`stats` a script's compiled form and resource usage.
// Commands have short aliases (r/i/d/...) for quick invocation.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kr/pretty"

	"luby"
	"luby/internal/bytecode"
	"luby/internal/compiler"
	"luby/internal/inspector"
	"luby/internal/lexer"
	"luby/internal/parser"
	"luby/internal/repl"
)

var commandAliases = map[string]string{
	"r": "run",
	"i": "repl",
	"d": "debug",
	"s": "stats",
	"e": "eval",
}

// inspectAddr, when non-empty, starts the optional live inspector
// (internal/inspector) alongside `run`, streaming fiber/VM meters to
// any connected debugger. Off by default.
var inspectAddr string

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}
	rest := args[1:]

	switch cmd {
	case "run":
		cmdRun(rest)
	case "eval":
		cmdEval(rest)
	case "repl":
		repl.Start(defaultConfig())
	case "debug":
		cmdDebug(rest)
	case "stats":
		cmdStats(rest)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "luby: unknown command %q\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: luby <command> [args]

commands:
  run [-inspect addr] <file>   run a script file, optionally with the live inspector
  eval <src>     evaluate a source string
  repl           start an interactive REPL
  debug <file>   compile a script and dump its bytecode proto
  stats <file>   run a script and print resource-meter stats
  help           show this message

aliases: r=run i=repl d=debug s=stats e=eval`)
}

func defaultConfig() luby.Config {
	return luby.Config{
		InstructionLimit: 50_000_000,
		CallDepthLimit:   4096,
		AllocationLimit:  5_000_000,
		MemoryLimit:      512 << 20,
		VFS:              osVFS{},
		SearchPaths:      []string{"."},
	}
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.StringVar(&inspectAddr, "inspect", "", "start the live inspector on this address (e.g. :6060)")
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) < 1 {
		fmt.Fprintln(os.Stderr, "usage: luby run [-inspect addr] <file>")
		os.Exit(1)
	}
	src, err := os.ReadFile(rest[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "luby:", err)
		os.Exit(1)
	}
	interp := luby.New(defaultConfig())

	if inspectAddr != "" {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			if err := inspector.Serve(interp, inspectAddr, 500*time.Millisecond, stop); err != nil {
				fmt.Fprintln(os.Stderr, "luby: inspector:", err)
			}
		}()
	}

	if _, err := interp.EvalFile(string(src), rest[0]); err != nil {
		fmt.Fprintln(os.Stderr, interp.FormatError())
		os.Exit(1)
	}
}

func cmdEval(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: luby eval <source>")
		os.Exit(1)
	}
	interp := luby.New(defaultConfig())
	v, err := interp.Eval(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, interp.FormatError())
		os.Exit(1)
	}
	fmt.Println(v)
}

// cmdDebug compiles a script and dumps its Proto tree with kr/pretty,
// the way a developer embedding luby inspects what the compiler
// produced without the language's own (out-of-CORE-scope) inspect
// formatting.
func cmdDebug(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: luby debug <file>")
		os.Exit(1)
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "luby:", err)
		os.Exit(1)
	}
	scanner := lexer.NewScanner(string(src), args[0])
	tokens := scanner.ScanTokens()
	if scanner.Err() != nil {
		fmt.Fprintln(os.Stderr, scanner.Err())
		os.Exit(1)
	}
	p := parser.New(tokens, args[0])
	body := p.Parse()
	if p.Err() != nil {
		fmt.Fprintln(os.Stderr, p.Err())
		os.Exit(1)
	}
	proto, err := compiler.Compile(body, args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	dumpProto(proto, 0)
}

func dumpProto(p *bytecode.Proto, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	fmt.Printf("%sproto %s (%d locals, %d bytes)\n", indent, p.Name, p.NumLocals, len(p.Code))
	for _, c := range p.Constants {
		if child, ok := c.(*bytecode.Proto); ok {
			dumpProto(child, depth+1)
		}
	}
	fmt.Printf("%sconstants: %# v\n", indent, pretty.Formatter(p.Constants))
}

func cmdStats(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: luby stats <file>")
		os.Exit(1)
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "luby:", err)
		os.Exit(1)
	}
	interp := luby.New(defaultConfig())
	if _, err := interp.EvalFile(string(src), args[0]); err != nil {
		fmt.Fprintln(os.Stderr, interp.FormatError())
	}
	fmt.Println(interp.Stats())
}

// osVFS is the CLI's own {exists, read} collaborator: the
// CORE never touches the filesystem itself, so cmd/luby supplies this
// the same way any other host would.
type osVFS struct{}

func (osVFS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osVFS) Read(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
