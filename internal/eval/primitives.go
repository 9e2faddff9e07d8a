package eval

import (
	"fmt"
	"strings"

	"github.com/odsl-lang/odsl/internal/ast"
	"github.com/odsl-lang/odsl/internal/bus"
	"github.com/odsl-lang/odsl/internal/lexer"
)

// DefinePrimitives installs the native primitive table into the root
// environment: print plus the five intercore primitives of spec.md §4.7
// (pub, sub, snd, rcv, spawn) and halt. Each intercore primitive builds its
// Message and Yields; only the scheduler can service it.
func (ev *Evaluator) DefinePrimitives() {
	prims := map[string]Builtin{
		"print": primPrint,
		"pub":   primPub,
		"sub":   primSub,
		"snd":   primSnd,
		"rcv":   primRcv,
		"spawn": primSpawn,
		"halt":  primHalt,
	}
	root := ev.Env.Root()
	for name, b := range prims {
		ev.Builtins[name] = b
		id, err := ev.Arena.InternName(name)
		if err != nil {
			// Interning a handful of fixed names into a fresh table cannot
			// exhaust it; treat it as the fatal capacity fault it would be.
			panic(err)
		}
		root.Define(id, ev.Arena.NewValue(ast.BuiltinValue(name), lexer.Position{}))
	}
}

// display renders v for print: interned sequences and symbols resolve back
// to their text, everything else uses the Value printer.
func (ev *Evaluator) display(v ast.Value) string {
	switch v.Kind {
	case ast.VSequence:
		if s, ok := ev.Arena.Sequence(v.ID); ok {
			return s
		}
	case ast.VSymbol:
		if s, ok := ev.Arena.Symbol(v.ID); ok {
			return "`" + s
		}
	case ast.VVecAny:
		parts := make([]string, len(v.VecAny))
		for i, x := range v.VecAny {
			parts[i] = ev.display(x)
		}
		return "#a[" + strings.Join(parts, ";") + "]"
	}
	return v.String()
}

func primPrint(ev *Evaluator, args []ast.Value, k Cont) (State, error) {
	var v ast.Value
	switch len(args) {
	case 0:
		v = ast.Nil
	case 1:
		v = args[0]
	default:
		v = ast.VecAny(args)
	}
	fmt.Fprintln(ev.Config.Out, ev.display(v))
	return Force(v, k), nil
}

func intArg(ev *Evaluator, name string, args []ast.Value, i int) (int, error) {
	if i >= len(args) {
		return 0, ev.errf(lexer.Position{}, "%s: missing argument %d", name, i+1)
	}
	v := args[i]
	if v.Kind != ast.VNumber && v.Kind != ast.VHexlit {
		return 0, ev.errf(lexer.Position{}, "%s: argument %d must be an integer, got %s", name, i+1, v.String())
	}
	return int(v.Num), nil
}

func primPub(ev *Evaluator, args []ast.Value, k Cont) (State, error) {
	to, err := intArg(ev, "pub", args, 0)
	if err != nil {
		return State{}, err
	}
	cap, err := intArg(ev, "pub", args, 1)
	if err != nil {
		return State{}, err
	}
	msg := bus.Pub{From: ev.Config.TaskID, To: to, TaskID: ev.Config.TaskID, Cap: cap}
	return Yield(Context{Msg: msg}, k), nil
}

func primSub(ev *Evaluator, args []ast.Value, k Cont) (State, error) {
	to, err := intArg(ev, "sub", args, 0)
	if err != nil {
		return State{}, err
	}
	pubID, err := intArg(ev, "sub", args, 1)
	if err != nil {
		return State{}, err
	}
	msg := bus.Sub{From: ev.Config.TaskID, To: to, TaskID: ev.Config.TaskID, PubID: pubID}
	return Yield(Context{Msg: msg}, k), nil
}

func primSnd(ev *Evaluator, args []ast.Value, k Cont) (State, error) {
	cursor, err := intArg(ev, "snd", args, 0)
	if err != nil {
		return State{}, err
	}
	if len(args) < 2 {
		return State{}, ev.errf(lexer.Position{}, "snd: missing value argument")
	}
	return Yield(Context{Msg: bus.Snd{CursorID: cursor, Value: args[1]}}, k), nil
}

func primRcv(ev *Evaluator, args []ast.Value, k Cont) (State, error) {
	cursor, err := intArg(ev, "rcv", args, 0)
	if err != nil {
		return State{}, err
	}
	return Yield(Context{Msg: bus.Rcv{CursorID: cursor}}, k), nil
}

func primSpawn(ev *Evaluator, args []ast.Value, k Cont) (State, error) {
	if len(args) < 1 {
		return State{}, ev.errf(lexer.Position{}, "spawn: missing source argument")
	}
	txt, ok := ev.valueToString(args[0])
	if !ok {
		return State{}, ev.errf(lexer.Position{}, "spawn: source must be a sequence")
	}
	return Yield(Context{Msg: bus.Spawn{Txt: txt}}, k), nil
}

func primHalt(ev *Evaluator, args []ast.Value, k Cont) (State, error) {
	target := ev.Config.TaskID
	if len(args) > 0 {
		t, err := intArg(ev, "halt", args, 0)
		if err != nil {
			return State{}, err
		}
		target = t
	}
	return Yield(Context{Msg: bus.Halt{TaskID: target}}, k), nil
}
