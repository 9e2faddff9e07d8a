// Package odsl is the embedding facade for the O-DSL interpreter: one
// handle bundling the arena, a scheduler, and the parse/run/gc surface of
// spec.md §6, so hosts never wire internal packages directly.
package odsl

import (
	"io"

	"github.com/odsl-lang/odsl/internal/ast"
	"github.com/odsl-lang/odsl/internal/bus"
	oerrors "github.com/odsl-lang/odsl/internal/errors"
	"github.com/odsl-lang/odsl/internal/eval"
	"github.com/odsl-lang/odsl/internal/lexer"
	"github.com/odsl-lang/odsl/internal/parser"
	"github.com/odsl-lang/odsl/internal/sched"
)

// Interpreter owns one arena (AST storage plus interning tables) and one
// scheduler driving tasks over it.
type Interpreter struct {
	arena *ast.Arena
	sch   *sched.Scheduler

	evalOpts  []eval.Option
	schedOpts []sched.Option

	session int // persistent task id for Eval; 0 until first use
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput redirects the print primitive's output.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.evalOpts = append(in.evalOpts, eval.WithOutput(w)) }
}

// WithTrace installs a per-transition trampoline trace hook.
func WithTrace(fn func(from, to eval.State)) Option {
	return func(in *Interpreter) { in.evalOpts = append(in.evalOpts, eval.WithTrace(fn)) }
}

// WithRouter couples this Interpreter's scheduler to a shared bus router,
// linking it with other Interpreters for intercore messaging.
func WithRouter(r *bus.Router) Option {
	return func(in *Interpreter) { in.schedOpts = append(in.schedOpts, sched.WithRouter(r)) }
}

// New creates an Interpreter with a fresh arena and scheduler. Primitives
// are installed into each task's root environment as tasks are spawned.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{arena: ast.NewArena()}
	for _, o := range opts {
		o(in)
	}
	schedOpts := append([]sched.Option{sched.WithEvalOptions(in.evalOpts...)}, in.schedOpts...)
	in.sch = sched.New(in.arena, schedOpts...)
	return in
}

// Arena exposes the interpreter's node storage and interning tables.
func (in *Interpreter) Arena() *ast.Arena { return in.arena }

// Scheduler exposes the task table for hosts that drive tasks themselves.
func (in *Interpreter) Scheduler() *sched.Scheduler { return in.sch }

// Parse parses source into the interpreter's arena and returns the program
// root. Parse errors leave interpreter state untouched beyond the interned
// names the partial parse consumed.
func (in *Interpreter) Parse(source string) (*ast.Vector, []*oerrors.Error) {
	l := lexer.New(source)
	p := parser.New(l, in.arena, source, "<input>")
	prog := p.ParseProgram()
	return prog, p.Errors()
}

// Run executes source as one Recursive task driven to completion, routing
// intercore messages inline, and returns the final value.
func (in *Interpreter) Run(source string) (ast.Value, error) {
	id := in.sch.Spawn(source, sched.Recursive)
	p, err := in.sch.Exec(id, source)
	if err != nil {
		return ast.Nil, err
	}
	return p.Value, nil
}

// Eval executes source on a persistent session task, so bindings survive
// from one call to the next (the REPL contract), and returns the printed
// form of the result.
func (in *Interpreter) Eval(source string) (string, error) {
	if in.session == 0 {
		in.session = in.sch.Spawn("", sched.Recursive)
	}
	p, err := in.sch.Exec(in.session, source)
	if err != nil {
		return "", err
	}
	return in.Display(p.Value), nil
}

// Display renders v, resolving interned symbol/sequence ids back to text.
func (in *Interpreter) Display(v ast.Value) string {
	switch v.Kind {
	case ast.VSequence:
		if s, ok := in.arena.Sequence(v.ID); ok {
			return s
		}
	case ast.VSymbol:
		if s, ok := in.arena.Symbol(v.ID); ok {
			return "`" + s
		}
	}
	return v.String()
}

// GC resets the arena and retires every task slot (the persistent Eval
// session included). Legal only at scheduler quiescence; returns
// sched.ErrNotQuiescent otherwise.
func (in *Interpreter) GC() error {
	if err := in.sch.GC(); err != nil {
		return err
	}
	in.session = 0
	return nil
}
