// Package eval implements the CPS trampoline evaluator of spec.md §4.4: a
// flat Defer/Force/Return/Yield state machine driven by an explicit
// Continuation chain, so that deep K-program recursion (Ackermann-style
// calls included) never grows the Go call stack. The teacher has no
// equivalent (DWScript's evaluator is a recursive tree-walker); the CPS
// design here follows original_source/src/streams/interpreter.rs
// (Trampoline, Continuation, handle_defer) for the algorithm, realized in
// Go idiom: a Continuation is a closure (func(ast.Value) (State, error))
// rather than a hand-rolled enum, since Go closures already capture
// exactly the "env_node + boxed tail k" spec.md describes and the teacher
// itself leans on closures for this shape elsewhere (see internal/env's
// doc comment on the same trade-off for the O-tree).
package eval

import (
	"github.com/odsl-lang/odsl/internal/ast"
	"github.com/odsl-lang/odsl/internal/bus"
	"github.com/odsl-lang/odsl/internal/env"
	"github.com/odsl-lang/odsl/internal/lexer"
)

// EnvNode is the O-tree node type the evaluator threads through every
// Defer/Force step: the "current" lexical scope.
type EnvNode = *env.Node[ast.Node]

// Pos aliases lexer.Position for readability in this package's signatures.
type Pos = lexer.Position

// Cont is a trampoline continuation: given the value a Defer step produced,
// it returns the next State to process. Cont values never recurse into the
// driver loop themselves; they only ever return a new State for Drive to
// process on its next iteration, which is what keeps evaluation
// stack-flat regardless of program recursion depth.
type Cont func(v ast.Value) (State, error)

// Kind tags which of the four Trampoline variants a State holds.
type Kind uint8

const (
	KDefer Kind = iota
	KForce
	KReturn
	KYield
)

// Context is the poll-contract payload of spec.md §6: Nil, a reference to
// an AST node (used when the host hands a fresh node back in), or an
// intercore Message.
type Context struct {
	Node ast.Node
	Msg  bus.Message
}

// NilContext is the unit Context value.
var NilContext = Context{}

// State is one Trampoline value: Defer(expr,env,k), Force(value,k),
// Return(value), or Yield(ctx,k).
type State struct {
	Kind Kind
	Expr ast.Node
	Env  EnvNode
	K    Cont

	Value ast.Value
	Ctx   Context
}

// Defer builds a Trampoline state that still needs to evaluate expr.
func Defer(expr ast.Node, env EnvNode, k Cont) State {
	return State{Kind: KDefer, Expr: expr, Env: env, K: k}
}

// Force builds a Trampoline state carrying an already-evaluated value,
// ready to feed into its continuation on the next Drive iteration.
func Force(v ast.Value, k Cont) State {
	return State{Kind: KForce, Value: v, K: k}
}

// Return builds the terminal state of a completed program or call.
func Return(v ast.Value) State {
	return State{Kind: KReturn, Value: v}
}

// Yield builds a suspension: the evaluator surrenders to the scheduler
// with ctx and expects to be resumed via ResumeWith with a reply value.
func Yield(ctx Context, k Cont) State {
	return State{Kind: KYield, Ctx: ctx, K: k}
}

// ResumeWith continues a Yielded state as if it had been Forced with reply,
// per spec.md §4.4: "on resume, receive a reply value/Context from the
// scheduler and continue as if Force(reply, k)."
func ResumeWith(st State, reply ast.Value) State {
	return Force(reply, st.K)
}

// ValueFromReply converts a bus reply Message into the ast.Value the
// evaluator resumes with: an Ack's ResultID becomes a Number, a
// ValueReply's payload passes through unchanged.
func ValueFromReply(msg bus.Message) ast.Value {
	switch m := msg.(type) {
	case bus.Ack:
		return ast.Number(int64(m.ResultID))
	case bus.ValueReply:
		return m.Value
	default:
		return ast.Nil
	}
}
