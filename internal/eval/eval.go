package eval

import (
	"fmt"
	"io"
	"os"

	"github.com/odsl-lang/odsl/internal/ast"
	"github.com/odsl-lang/odsl/internal/env"
	oerrors "github.com/odsl-lang/odsl/internal/errors"
	"github.com/odsl-lang/odsl/internal/lexer"
	"github.com/odsl-lang/odsl/internal/verbs"
)

// identity is the terminal continuation: hand the value straight back as a
// Return.
func identity(v ast.Value) (State, error) { return Return(v), nil }

// Config holds evaluator construction options, in the teacher's
// functional-options style (see pkg/dwscript's Engine options).
type Config struct {
	TaskID int
	Trace  bool
	Tracer func(from, to State)
	Out    io.Writer
}

// Option mutates a Config.
type Option func(*Config)

// WithTaskID sets the task id intercore primitives stamp onto outgoing
// Pub/Sub messages; halt with no argument targets this id.
func WithTaskID(id int) Option { return func(c *Config) { c.TaskID = id } }

// WithTrace enables per-transition tracing via fn.
func WithTrace(fn func(from, to State)) Option {
	return func(c *Config) { c.Trace, c.Tracer = true, fn }
}

// WithOutput redirects the print primitive's output (default os.Stdout).
func WithOutput(w io.Writer) Option { return func(c *Config) { c.Out = w } }

// Evaluator holds everything one O-DSL program needs to run: the node
// arena, the O-tree, and the primitive table define_primitives() installs.
type Evaluator struct {
	Arena    *ast.Arena
	Env      *env.Tree[ast.Node]
	Builtins map[string]Builtin
	Config   Config
}

// Builtin is a native primitive bound into the root environment by
// DefinePrimitives. It receives its already-evaluated arguments and the
// continuation awaiting its result, and returns the next trampoline state
// (Force for an ordinary value, Yield for an intercore suspension).
type Builtin func(ev *Evaluator, args []ast.Value, k Cont) (State, error)

// New creates an Evaluator sharing arena a, with a fresh O-tree rooted for
// top-level evaluation.
func New(a *ast.Arena, opts ...Option) *Evaluator {
	cfg := Config{Out: os.Stdout}
	for _, o := range opts {
		o(&cfg)
	}
	ev := &Evaluator{Arena: a, Env: env.NewTree[ast.Node](), Builtins: map[string]Builtin{}, Config: cfg}
	ev.DefinePrimitives()
	return ev
}

// Root returns the root environment scope, where DefinePrimitives installs
// its bindings and where top-level assignments land.
func (ev *Evaluator) Root() EnvNode { return ev.Env.Root() }

// Run evaluates prog (conventionally a *ast.Vector, the parser's top-level
// output) to completion or first suspension.
func (ev *Evaluator) Run(prog ast.Node, env EnvNode) (State, error) {
	return ev.Drive(Initial(prog, env))
}

// Initial builds the starting trampoline state for prog without advancing
// it: Defer(prog, env, Return), for callers (Corecursive tasks) that want
// to single-step from the very first transition.
func Initial(prog ast.Node, env EnvNode) State {
	return Defer(prog, env, identity)
}

// Step advances exactly one Defer or Force transition and returns
// immediately — the "Corecursive" termination mode of spec.md §4.6, letting
// a scheduler interleave many tasks one micro-step at a time. Return and
// Yield states are already terminal for the current tick and pass through
// unchanged.
func (ev *Evaluator) Step(st State) (State, error) {
	next, err := ev.step(st)
	if ev.Config.Trace && ev.Config.Tracer != nil {
		ev.Config.Tracer(st, next)
	}
	return next, err
}

func (ev *Evaluator) step(st State) (State, error) {
	switch st.Kind {
	case KDefer:
		return ev.handleDefer(st.Expr, st.Env, st.K)
	case KForce:
		return st.K(st.Value)
	default:
		return st, nil
	}
}

// Drive is the "Recursive" termination mode: step repeatedly until the
// program Returns or Yields. Because each step does O(1) work and hands a
// fresh State back instead of calling itself, this loop's Go stack depth
// never grows with the K program's own recursion depth.
func (ev *Evaluator) Drive(st State) (State, error) {
	for st.Kind == KDefer || st.Kind == KForce {
		next, err := ev.Step(st)
		if err != nil {
			return State{}, err
		}
		st = next
	}
	return st, nil
}

// Resume continues a previously Yielded state with a reply value, as if the
// suspended primitive had been Forced with it.
func (ev *Evaluator) Resume(st State, reply ast.Value) (State, error) {
	return ev.Drive(ResumeWith(st, reply))
}

func (ev *Evaluator) errf(pos lexer.Position, format string, args ...any) error {
	return oerrors.New(oerrors.EvalError, pos, fmt.Sprintf(format, args...), "", "")
}

func (ev *Evaluator) wrapVerbErr(pos lexer.Position, err error) error {
	return oerrors.New(oerrors.InvalidOperation, pos, err.Error(), "", "")
}

// handleDefer is the dispatch table of spec.md §4.4: given an AST node and
// the environment it should evaluate in, decide the next trampoline State.
func (ev *Evaluator) handleDefer(expr ast.Node, en EnvNode, k Cont) (State, error) {
	switch n := expr.(type) {
	case *ast.Vector:
		return ev.evalSequence(n.Items, en, k)

	case *ast.ValueNode:
		return Force(n.Val, k), nil

	case *ast.NameIntNode:
		return ev.lookupName(n.ID, en, n.P, k)

	case *ast.NameNode:
		id, err := ev.Arena.InternName(n.Str)
		if err != nil {
			return State{}, ev.errf(n.P, "%v", err)
		}
		return ev.lookupName(id, en, n.P, k)

	case *ast.SymbolIntNode:
		return Force(ast.Symbol(n.ID), k), nil

	case *ast.SequenceIntNode:
		return Force(ast.Sequence(n.ID), k), nil

	case *ast.AnyNode:
		return Force(ast.Nil, k), nil

	case *ast.YieldNode:
		return Yield(NilContext, k), nil

	case *ast.IoverbNode:
		// No I/O primitives are wired at this layer; the literal text
		// resolves to a symbol of itself.
		id, err := ev.Arena.InternSymbol(n.Text)
		if err != nil {
			return State{}, ev.errf(n.P, "%v", err)
		}
		return Force(ast.Symbol(id), k), nil

	case *ast.ListNode:
		items := ast.Flatten(n.Items)
		return ev.evalItemsThen(items, en, func(vals []ast.Value, k2 Cont) (State, error) {
			return Force(ast.VecAny(vals), k2), nil
		}, k)

	case *ast.DictNode:
		items := ast.Flatten(n.Items)
		return ev.evalItemsThen(items, en, ev.buildDict(n.P), k)

	case *ast.LambdaNode:
		closed := ev.Arena.NewLambdaExpr(en, n.Params, n.Body, n.P)
		return Force(ast.LambdaValue(closed), k), nil

	case *ast.AssignNode:
		return Defer(n.Value, en, ev.contAssign(n.Name, en, k)), nil

	case *ast.CondNode:
		return Defer(n.Test, en, ev.contCond(n.Then, n.Else, en, k)), nil

	case *ast.VerbNode:
		return ev.evalVerb(n, en, k)

	case *ast.AdverbNode:
		return Defer(n.Right, en, func(xv ast.Value) (State, error) {
			return Defer(n.Left, en, func(fv ast.Value) (State, error) {
				return ev.startAdverb(n.Op, fv, xv, en, n.P, k)
			}), nil
		}), nil

	case *ast.CallNode:
		return Defer(n.Callee, en, func(callee ast.Value) (State, error) {
			argNodes := ast.Flatten(n.Args)
			return ev.evalCallArgs(callee, argNodes, en, n.P, k)
		}), nil

	default:
		return State{}, ev.errf(expr.Pos(), "unhandled AST node %T", expr)
	}
}

func (ev *Evaluator) lookupName(id uint16, en EnvNode, pos lexer.Position, k Cont) (State, error) {
	bound, _, ok := en.Get(id)
	if !ok {
		name, _ := ev.Arena.Name(id)
		return State{}, ev.errf(pos, "undefined name %q", name)
	}
	vn, ok := bound.(*ast.ValueNode)
	if !ok {
		return Defer(bound, en, k), nil
	}
	return Force(vn.Val, k), nil
}

func (ev *Evaluator) buildDict(pos lexer.Position) func([]ast.Value, Cont) (State, error) {
	return func(vals []ast.Value, k Cont) (State, error) {
		if len(vals)%2 != 0 {
			return State{}, ev.errf(pos, "dict literal requires an even number of key/value items, got %d", len(vals))
		}
		var keys, vs []ast.Value
		for i := 0; i+1 < len(vals); i += 2 {
			keys = append(keys, vals[i])
			vs = append(vs, vals[i+1])
		}
		return Force(ast.Dict(keys, vs), k), nil
	}
}

// evalSequence evaluates items in order, discarding every value but the
// last (spec.md's top-level Vector and a Lambda's multi-statement body
// both resolve to their final expression's value). The last item is
// deferred directly into k, preserving tail position so a trailing
// recursive call never grows the continuation chain.
func (ev *Evaluator) evalSequence(items []ast.Node, en EnvNode, k Cont) (State, error) {
	if len(items) == 0 {
		return Force(ast.Nil, k), nil
	}
	return ev.evalSeqStep(items, 0, en, k), nil
}

func (ev *Evaluator) evalSeqStep(items []ast.Node, idx int, en EnvNode, k Cont) State {
	if idx == len(items)-1 {
		return Defer(items[idx], en, k)
	}
	return Defer(items[idx], en, func(ast.Value) (State, error) {
		return ev.evalSeqStep(items, idx+1, en, k), nil
	})
}

// evalItemsThen evaluates items in order, collecting every value (unlike
// evalSequence, nothing is discarded), then calls then with the full slice.
func (ev *Evaluator) evalItemsThen(items []ast.Node, en EnvNode, then func([]ast.Value, Cont) (State, error), k Cont) (State, error) {
	return ev.evalItemsStep(items, 0, nil, en, then, k)
}

func (ev *Evaluator) evalItemsStep(items []ast.Node, idx int, acc []ast.Value, en EnvNode, then func([]ast.Value, Cont) (State, error), k Cont) (State, error) {
	if idx == len(items) {
		return then(acc, k)
	}
	return Defer(items[idx], en, func(v ast.Value) (State, error) {
		next := append(append([]ast.Value{}, acc...), v)
		return ev.evalItemsStep(items, idx+1, next, en, then, k)
	}), nil
}

func (ev *Evaluator) contAssign(nameNode ast.Node, en EnvNode, k Cont) Cont {
	return func(v ast.Value) (State, error) {
		id, err := ev.paramID(nameNode)
		if err != nil {
			return State{}, err
		}
		en.Define(id, ev.Arena.NewValue(v, nameNode.Pos()))
		return Force(ast.Nil, k), nil
	}
}

// contCond handles the else branch's List-wrap divergence documented on
// parser.parseCond/ast.NewVerbExpr: the builder-rewrite path wraps Else in
// a single-item ListNode, the direct `$[...]` parse path does not. Both are
// accepted here.
func (ev *Evaluator) contCond(then, els ast.Node, en EnvNode, k Cont) Cont {
	return func(testVal ast.Value) (State, error) {
		if testVal.Truthy() {
			return Defer(then, en, k), nil
		}
		branch := els
		if ln, ok := els.(*ast.ListNode); ok {
			items := ast.Flatten(ln.Items)
			if len(items) == 1 {
				branch = items[0]
			}
		}
		return Defer(branch, en, k), nil
	}
}

func (ev *Evaluator) evalVerb(n *ast.VerbNode, en EnvNode, k Cont) (State, error) {
	if n.Left == nil && n.Right == nil {
		return Force(ast.VerbFnValue(n.Op), k), nil
	}
	if n.Left == nil {
		return Defer(n.Right, en, func(rv ast.Value) (State, error) {
			res, err := verbs.Monadic(n.Op, rv)
			if err != nil {
				return State{}, ev.wrapVerbErr(n.P, err)
			}
			return Force(res, k), nil
		}), nil
	}
	if n.Right == nil {
		// Seeded verb reference (`0+` in `0+/x`): the left operand binds to
		// the verb and the pair becomes a callable value for the adverb
		// machinery, never an in-place application.
		return Defer(n.Left, en, func(lv ast.Value) (State, error) {
			return Force(ast.SeededVerbFn(n.Op, lv), k), nil
		}), nil
	}
	return Defer(n.Left, en, func(lv ast.Value) (State, error) {
		return Defer(n.Right, en, func(rv ast.Value) (State, error) {
			res, err := verbs.Dyadic(n.Op, lv, rv)
			if err != nil {
				return State{}, ev.wrapVerbErr(n.P, err)
			}
			return Force(res, k), nil
		}), nil
	}), nil
}

func (ev *Evaluator) paramID(n ast.Node) (uint16, error) {
	switch t := n.(type) {
	case *ast.NameIntNode:
		return t.ID, nil
	case *ast.NameNode:
		return ev.Arena.InternName(t.Str)
	default:
		return 0, ev.errf(n.Pos(), "expected a name, got %T", n)
	}
}

// valueToString extracts the underlying text of a symbol/sequence Value,
// for builtins (spawn) that need a raw string rather than an interned id.
func (ev *Evaluator) valueToString(v ast.Value) (string, bool) {
	switch v.Kind {
	case ast.VSequence:
		return ev.Arena.Sequence(v.ID)
	case ast.VSymbol:
		return ev.Arena.Symbol(v.ID)
	default:
		return v.String(), true
	}
}
