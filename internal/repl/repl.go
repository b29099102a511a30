// Package repl is the interactive read-eval-print loop cmd/luby's
// `repl`/`i` command drives: one persistent Interp across lines, with
// each line compiled and run against it so classes, methods and globals
// defined on one line are visible on the next. Each line runs in a fresh
// top-level frame, so local variables do not carry over between lines.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"luby"
)

// Start runs the loop against stdin/stdout/stderr as a single-file
// entry point. cfg is used verbatim to build the Interp, so a host's
// resource limits and VFS apply to the REPL the same way they apply to
// a scripted Eval.
func Start(cfg luby.Config) {
	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	interp := luby.New(cfg)
	scanner := bufio.NewScanner(os.Stdin)

	if interactive {
		fmt.Fprintln(os.Stdout, "luby REPL | type 'exit' to quit")
	}

	for {
		if interactive {
			fmt.Fprint(os.Stdout, ">>> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "exit" || line == "quit" {
			break
		}
		if line == "" {
			continue
		}

		v, err := interp.EvalFile(line, "(repl)")
		if err != nil {
			fmt.Fprintln(os.Stderr, interp.FormatError())
			continue
		}
		fmt.Fprintln(os.Stdout, "=>", formatResult(v))
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		fmt.Fprintln(os.Stderr, "repl:", err)
	}
}

// formatResult gives the REPL a minimal, core-only textual rendering of
// a result value; full `inspect` formatting is explicitly out of CORE
// scope and belongs to a host's own pretty-printer.
func formatResult(v luby.Value) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%v", v)
}
