// Package errors formats O-DSL errors with source-line and caret context,
// in the teacher's CompilerError style, adapted to spec.md §7's error
// kinds: ParseError, EvalError, CapacityError, InvalidOperation.
package errors

import (
	"fmt"
	"strings"

	"github.com/odsl-lang/odsl/internal/lexer"
)

// Kind tags which of spec.md §7's error categories an Error belongs to.
type Kind int

const (
	ParseError Kind = iota
	EvalError
	CapacityError
	InvalidOperation
)

func (k Kind) String() string {
	switch k {
	case ParseError:
		return "ParseError"
	case EvalError:
		return "EvalError"
	case CapacityError:
		return "CapacityError"
	case InvalidOperation:
		return "InvalidOperation"
	default:
		return "Error"
	}
}

// Error is a single O-DSL error with position and source context, the
// equivalent of the teacher's CompilerError. AST carries the offending node
// for EvalError (spec.md: "carrying the offending AST"); it is left as an
// opaque value here (stringified via fmt.Sprintf) to avoid an import cycle
// between errors and ast.
type Error struct {
	Kind    Kind
	Message string
	Pos     lexer.Position
	Source  string
	File    string
	AST     fmt.Stringer
}

// New builds an Error of the given kind.
func New(kind Kind, pos lexer.Position, message, source, file string) *Error {
	return &Error{Kind: kind, Message: message, Pos: pos, Source: source, File: file}
}

// WithAST attaches the offending AST node (EvalError carries one per
// spec.md §7) and returns the receiver for chaining.
func (e *Error) WithAST(n fmt.Stringer) *Error {
	e.AST = n
	return e
}

func (e *Error) Error() string { return e.Format(false) }

// Format renders the error with a source-line and caret, like the
// teacher's CompilerError.Format. color enables ANSI highlighting.
func (e *Error) Format(color bool) string {
	var sb strings.Builder

	header := fmt.Sprintf("%s", e.Kind)
	if e.File != "" {
		sb.WriteString(fmt.Sprintf("%s in %s:%d:%d\n", header, e.File, e.Pos.Line, e.Pos.Column))
	} else {
		sb.WriteString(fmt.Sprintf("%s at line %d:%d\n", header, e.Pos.Line, e.Pos.Column))
	}

	if line := e.sourceLine(e.Pos.Line); line != "" {
		lineNumStr := fmt.Sprintf("%4d | ", e.Pos.Line)
		sb.WriteString(lineNumStr)
		sb.WriteString(line)
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat(" ", len(lineNumStr)+max(e.Pos.Column-1, 0)))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(e.Message)
	if e.AST != nil {
		sb.WriteString(" (in ")
		sb.WriteString(e.AST.String())
		sb.WriteString(")")
	}
	if color {
		sb.WriteString("\033[0m")
	}
	return sb.String()
}

func (e *Error) sourceLine(lineNum int) string {
	if e.Source == "" {
		return ""
	}
	lines := strings.Split(e.Source, "\n")
	if lineNum < 1 || lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// FormatAll formats a batch of errors the way the teacher's FormatErrors
// does: numbered when there is more than one.
func FormatAll(errs []*Error, color bool) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return errs[0].Format(color)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("failed with %d error(s):\n\n", len(errs)))
	for i, e := range errs {
		sb.WriteString(fmt.Sprintf("[Error %d of %d]\n", i+1, len(errs)))
		sb.WriteString(e.Format(color))
		if i < len(errs)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
