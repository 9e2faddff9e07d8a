package eval

import (
	"github.com/odsl-lang/odsl/internal/ast"
	"github.com/odsl-lang/odsl/internal/verbs"
)

// The adverb drivers below thread an index and an accumulator through the
// trampoline: every element step goes out as a State for Drive to process
// and comes back through a continuation, so adverb application never grows
// the host stack regardless of vector length (spec.md §4.5). A Yield raised
// inside a step (an intercore primitive in a mapped lambda) suspends the
// whole adverb mid-iteration and resumes where it left off.

func (ev *Evaluator) startAdverb(op ast.Adverb, fv, xv ast.Value, en EnvNode, pos Pos, k Cont) (State, error) {
	if !fv.Callable() {
		return State{}, ev.errf(pos, "adverb %s requires a function operand, got %s", op, fv.String())
	}
	switch op {
	case ast.Over:
		return ev.advFold(fv, xv, pos, k, false)
	case ast.Scan:
		return ev.advFold(fv, xv, pos, k, true)
	case ast.Each:
		return ev.advEach(fv, xv, pos, k)
	case ast.EachLeft:
		return ev.advEachSided(fv, xv, pos, k, true)
	case ast.EachRight:
		return ev.advEachSided(fv, xv, pos, k, false)
	case ast.EachPrio:
		return ev.advEachPrio(fv, xv, pos, k)
	case ast.Iterate:
		return ev.advIterate(fv, xv, pos, k)
	case ast.Fixed:
		return ev.advFixed(fv, xv, pos, k)
	default:
		return State{}, ev.errf(pos, "adverb %s has no application semantics", op)
	}
}

func (ev *Evaluator) callStep(fv ast.Value, args []ast.Value, pos Pos, k Cont) (State, error) {
	return ev.apply(fv, args, make([]bool, len(args)), pos, k)
}

// advFold is Over and Scan in one driver: left fold seeded from the verb's
// bound operand (`z/v`) or from v0, producing either the final accumulator
// (Over) or the vector of intermediate results (Scan).
func (ev *Evaluator) advFold(fv, xv ast.Value, pos Pos, k Cont, scan bool) (State, error) {
	items := verbs.ToSlice(xv)
	if len(items) == 0 {
		if fv.Seed != nil {
			return Force(*fv.Seed, k), nil
		}
		return Force(ast.Nil, k), nil
	}

	var acc ast.Value
	idx := 0
	if fv.Seed != nil {
		acc = *fv.Seed
	} else {
		acc = items[0]
		idx = 1
	}
	fn := fv
	fn.Seed = nil

	var out []ast.Value
	if scan && fv.Seed == nil {
		out = append(out, acc)
	}

	var step func(acc ast.Value, i int) (State, error)
	step = func(acc ast.Value, i int) (State, error) {
		if i >= len(items) {
			if scan {
				return Force(verbs.FromSlice(out), k), nil
			}
			return Force(acc, k), nil
		}
		return ev.callStep(fn, []ast.Value{acc, items[i]}, pos, func(v ast.Value) (State, error) {
			if scan {
				out = append(out, v)
			}
			return step(v, i+1)
		})
	}
	return step(acc, idx)
}

func (ev *Evaluator) advEach(fv, xv ast.Value, pos Pos, k Cont) (State, error) {
	items := verbs.ToSlice(xv)
	out := make([]ast.Value, 0, len(items))
	var step func(i int) (State, error)
	step = func(i int) (State, error) {
		if i >= len(items) {
			return Force(verbs.FromSlice(out), k), nil
		}
		return ev.callStep(fv, []ast.Value{items[i]}, pos, func(v ast.Value) (State, error) {
			out = append(out, v)
			return step(i + 1)
		})
	}
	return step(0)
}

// advEachSided is EachLeft (`s f\: v` maps f[vi;s]) and EachRight
// (`s f/: v` maps f[s;vi]); both need the fixed operand the seeded verb
// form binds.
func (ev *Evaluator) advEachSided(fv, xv ast.Value, pos Pos, k Cont, left bool) (State, error) {
	if fv.Seed == nil {
		return State{}, ev.errf(pos, "eachleft/eachright require a bound operand to fix")
	}
	fixed := *fv.Seed
	fn := fv
	fn.Seed = nil

	items := verbs.ToSlice(xv)
	out := make([]ast.Value, 0, len(items))
	var step func(i int) (State, error)
	step = func(i int) (State, error) {
		if i >= len(items) {
			return Force(verbs.FromSlice(out), k), nil
		}
		args := []ast.Value{items[i], fixed}
		if !left {
			args = []ast.Value{fixed, items[i]}
		}
		return ev.callStep(fn, args, pos, func(v ast.Value) (State, error) {
			out = append(out, v)
			return step(i + 1)
		})
	}
	return step(0)
}

// advEachPrio applies f over adjacent pairs: result[i-1] = f[v[i-1], v[i]].
func (ev *Evaluator) advEachPrio(fv, xv ast.Value, pos Pos, k Cont) (State, error) {
	items := verbs.ToSlice(xv)
	if len(items) < 2 {
		return Force(verbs.FromSlice(nil), k), nil
	}
	fn := fv
	fn.Seed = nil
	out := make([]ast.Value, 0, len(items)-1)
	var step func(i int) (State, error)
	step = func(i int) (State, error) {
		if i >= len(items) {
			return Force(verbs.FromSlice(out), k), nil
		}
		return ev.callStep(fn, []ast.Value{items[i-1], items[i]}, pos, func(v ast.Value) (State, error) {
			out = append(out, v)
			return step(i + 1)
		})
	}
	return step(1)
}

// advIterate applies f to x n times, n taken from the bound operand (`3 f/i x`
// shape); without a numeric bound there is nothing to count.
func (ev *Evaluator) advIterate(fv, xv ast.Value, pos Pos, k Cont) (State, error) {
	if fv.Seed == nil || (fv.Seed.Kind != ast.VNumber && fv.Seed.Kind != ast.VHexlit) {
		return State{}, ev.errf(pos, "iterate requires a numeric repetition count")
	}
	n := int(fv.Seed.Num)
	fn := fv
	fn.Seed = nil
	var step func(cur ast.Value, i int) (State, error)
	step = func(cur ast.Value, i int) (State, error) {
		if i >= n {
			return Force(cur, k), nil
		}
		return ev.callStep(fn, []ast.Value{cur}, pos, func(v ast.Value) (State, error) {
			return step(v, i+1)
		})
	}
	return step(xv, 0)
}

// advFixed applies f to x until the value stops changing.
func (ev *Evaluator) advFixed(fv, xv ast.Value, pos Pos, k Cont) (State, error) {
	fn := fv
	fn.Seed = nil
	var step func(cur ast.Value) (State, error)
	step = func(cur ast.Value) (State, error) {
		return ev.callStep(fn, []ast.Value{cur}, pos, func(v ast.Value) (State, error) {
			if v.Equal(cur) {
				return Force(v, k), nil
			}
			return step(v)
		})
	}
	return step(xv)
}
