// Package errors defines the language-level error taxonomy and
// the formatting used by the embedding API's FormatError.
//
// Two distinct notions of "stack" are carried side by side and must never
// be conflated: Backtrace is the *script-level* call chain a rescue clause
// or `caller` can inspect; the Go-side cause (attached with
// github.com/pkg/errors) is for the host developer debugging the
// interpreter itself and is never visible to running scripts.
package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Kind is the taxonomy from §7 / status codes from §6.
type Kind string

const (
	SyntaxError      Kind = "SyntaxError"
	CompileError     Kind = "CompileError"
	TypeError        Kind = "TypeError"
	NameError        Kind = "NameError"
	NoMethodError    Kind = "NoMethodError"
	ArgumentError    Kind = "ArgumentError"
	ZeroDivisionError Kind = "ZeroDivisionError"
	RuntimeError     Kind = "RuntimeError"
	StandardError    Kind = "StandardError"
	FrozenError      Kind = "FrozenError"
	IndexError       Kind = "IndexError"
	KeyError         Kind = "KeyError"
	StopIteration    Kind = "StopIteration"
	NotImplementedError Kind = "NotImplementedError"
	LocalJumpError   Kind = "LocalJumpError"
	LoadError        Kind = "LoadError"
)

// Location is a `{filename, line, column}` triple.
type Location struct {
	File   string
	Line   int
	Column int
}

// Frame is one `{filename, line, method_name}` backtrace tuple.
type Frame struct {
	Function string
	File     string
	Line     int
}

// LubyError is the concrete type behind the embedding API's error return.
type LubyError struct {
	Kind      Kind
	Message   string
	Location  Location
	Backtrace []Frame
	Source    string // the offending source line, when known

	cause error // Go-side cause, attached via github.com/pkg/errors
}

func (e *LubyError) Error() string {
	return e.Format()
}

// Unwrap exposes the Go-side cause to errors.Is/errors.As without leaking
// it into script-observable state.
func (e *LubyError) Unwrap() error { return e.cause }

// Format renders `"<filename>:<line>: <kind>: <message>"` ,
// followed by the source context and backtrace when present.
func (e *LubyError) Format() string {
	var sb strings.Builder
	if e.Location.File != "" {
		fmt.Fprintf(&sb, "%s:%d: %s: %s", e.Location.File, e.Location.Line, e.Kind, e.Message)
	} else {
		fmt.Fprintf(&sb, "%s: %s", e.Kind, e.Message)
	}
	if e.Source != "" {
		fmt.Fprintf(&sb, "\n  %d | %s", e.Location.Line, e.Source)
		if e.Location.Column > 0 {
			sb.WriteString("\n  " + strings.Repeat(" ", len(fmt.Sprintf("%d | ", e.Location.Line))+e.Location.Column-1) + "^")
		}
	}
	for _, f := range e.Backtrace {
		if f.Function != "" {
			fmt.Fprintf(&sb, "\n  from %s:%d:in `%s'", f.File, f.Line, f.Function)
		} else {
			fmt.Fprintf(&sb, "\n  from %s:%d", f.File, f.Line)
		}
	}
	return sb.String()
}

func New(kind Kind, message, file string, line, column int) *LubyError {
	return &LubyError{
		Kind:     kind,
		Message:  message,
		Location: Location{File: file, Line: line, Column: column},
		cause:    pkgerrors.New(string(kind) + ": " + message),
	}
}

func NewSyntaxError(message, file string, line, column int) *LubyError {
	return New(SyntaxError, message, file, line, column)
}

func NewRuntimeError(message, file string, line int) *LubyError {
	return New(RuntimeError, message, file, line, 0)
}

// Budget constructs the budget-exhaustion flavored RuntimeError required
// by /§6: the message always contains the named meter so a
// rescue clause or host log can distinguish budget kinds.
func Budget(meter, file string, line int) *LubyError {
	return New(RuntimeError, fmt.Sprintf("%s exceeded", meter), file, line, 0)
}

func (e *LubyError) WithSource(src string) *LubyError {
	e.Source = src
	return e
}

func (e *LubyError) WithBacktrace(frames []Frame) *LubyError {
	e.Backtrace = frames
	return e
}

func (e *LubyError) PushFrame(f Frame) *LubyError {
	e.Backtrace = append(e.Backtrace, f)
	return e
}

// Wrap attaches an arbitrary Go cause (e.g. a VFS read failure) while
// keeping the script-facing Kind/Message stable.
func Wrap(err error, kind Kind, message, file string, line int) *LubyError {
	le := New(kind, message, file, line, 0)
	le.cause = pkgerrors.Wrap(err, string(kind))
	return le
}
