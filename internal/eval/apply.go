package eval

import (
	"github.com/odsl-lang/odsl/internal/ast"
	"github.com/odsl-lang/odsl/internal/verbs"
)

// evalCallArgs evaluates a CallNode's argument list left to right, leaving
// AnyNode holes unevaluated (they never need a value, only a position),
// then applies callee. en is the caller's environment — the one argument
// expressions and callee resolution defer into; it is unrelated to any
// environment apply/applyLambda later builds for the callee's own body.
func (ev *Evaluator) evalCallArgs(callee ast.Value, argNodes []ast.Node, en EnvNode, pos Pos, k Cont) (State, error) {
	return ev.evalCallArgsStep(callee, argNodes, 0, nil, nil, en, pos, k)
}

func (ev *Evaluator) evalCallArgsStep(callee ast.Value, argNodes []ast.Node, idx int, vals []ast.Value, holes []bool, en EnvNode, pos Pos, k Cont) (State, error) {
	if idx == len(argNodes) {
		return ev.apply(callee, vals, holes, pos, k)
	}
	if _, isAny := argNodes[idx].(*ast.AnyNode); isAny {
		return ev.evalCallArgsStep(callee, argNodes, idx+1, append(vals, ast.Nil), append(holes, true), en, pos, k)
	}
	return Defer(argNodes[idx], en, func(v ast.Value) (State, error) {
		return ev.evalCallArgsStep(callee, argNodes, idx+1, append(vals, v), append(holes, false), en, pos, k)
	}), nil
}

// apply dispatches a fully- or partially-applied call: a Lambda (builds a
// child scope and defers into its body, or builds a narrower partial
// Lambda), a Builtin (looked up in the primitive table), or a bare verb
// reference (dispatched straight to internal/verbs).
func (ev *Evaluator) apply(callee ast.Value, vals []ast.Value, holes []bool, pos Pos, k Cont) (State, error) {
	switch callee.Kind {
	case ast.VLambda:
		return ev.applyLambda(callee.Lambda, vals, holes, pos, k)
	case ast.VBuiltin:
		if hasHole(holes) {
			return State{}, ev.errf(pos, "builtin %q cannot be partially applied", callee.Builtin)
		}
		b, ok := ev.Builtins[callee.Builtin]
		if !ok {
			return State{}, ev.errf(pos, "undefined builtin %q", callee.Builtin)
		}
		return b(ev, vals, k)
	case ast.VVerbFn:
		return ev.applyVerbFn(callee, vals, pos, k)
	default:
		return State{}, ev.errf(pos, "value of kind %d is not callable", callee.Kind)
	}
}

func (ev *Evaluator) applyVerbFn(callee ast.Value, vals []ast.Value, pos Pos, k Cont) (State, error) {
	op := callee.VerbOp
	switch len(vals) {
	case 1:
		if callee.Seed != nil {
			v, err := verbs.Dyadic(op, *callee.Seed, vals[0])
			if err != nil {
				return State{}, ev.wrapVerbErr(pos, err)
			}
			return Force(v, k), nil
		}
		v, err := verbs.Monadic(op, vals[0])
		if err != nil {
			return State{}, ev.wrapVerbErr(pos, err)
		}
		return Force(v, k), nil
	case 2:
		v, err := verbs.Dyadic(op, vals[0], vals[1])
		if err != nil {
			return State{}, ev.wrapVerbErr(pos, err)
		}
		return Force(v, k), nil
	default:
		return State{}, ev.errf(pos, "verb function expects 1 or 2 arguments, got %d", len(vals))
	}
}

func hasHole(holes []bool) bool {
	for _, h := range holes {
		if h {
			return true
		}
	}
	return false
}

func (ev *Evaluator) applyLambda(lam *ast.LambdaNode, vals []ast.Value, holes []bool, pos Pos, k Cont) (State, error) {
	params := ast.Params(lam.Params)
	if len(vals) > len(params) {
		return State{}, ev.errf(pos, "too many arguments: got %d, want at most %d", len(vals), len(params))
	}
	capturedEnv, _ := lam.Env.(EnvNode)
	if capturedEnv == nil {
		capturedEnv = ev.Root()
	}

	if hasHole(holes) || len(vals) < len(params) {
		child := ev.Env.NewChild(capturedEnv)
		var remaining []ast.Node
		for i, p := range params {
			if i < len(vals) && !holes[i] {
				id, err := ev.paramID(p)
				if err != nil {
					return State{}, err
				}
				child.Define(id, ev.Arena.NewValue(vals[i], p.Pos()))
			} else {
				remaining = append(remaining, p)
			}
		}
		var paramsNode ast.Node
		switch len(remaining) {
		case 0:
			paramsNode = nil
		case 1:
			paramsNode = remaining[0]
		default:
			paramsNode = ev.Arena.NewVector(remaining, lam.P)
		}
		newLam := ev.Arena.NewLambdaExpr(child, paramsNode, lam.Body, lam.P)
		return Force(ast.LambdaValue(newLam), k), nil
	}

	child := ev.Env.NewChild(capturedEnv)
	for i, p := range params {
		id, err := ev.paramID(p)
		if err != nil {
			return State{}, err
		}
		child.Define(id, ev.Arena.NewValue(vals[i], p.Pos()))
	}
	return Defer(lam.Body, child, k), nil
}
