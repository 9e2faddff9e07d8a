package parser

import (
	"testing"

	"github.com/odsl-lang/odsl/internal/ast"
	"github.com/odsl-lang/odsl/internal/lexer"
)

func parse(t *testing.T, src string) (*ast.Vector, *ast.Arena) {
	t.Helper()
	a := ast.NewArena()
	p := New(lexer.New(src), a, src, "<test>")
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse %q: %v", src, errs[0])
	}
	return prog, a
}

func parseOne(t *testing.T, src string) ast.Node {
	t.Helper()
	prog, _ := parse(t, src)
	if len(prog.Items) != 1 {
		t.Fatalf("parse %q: %d top-level items, want 1", src, len(prog.Items))
	}
	return prog.Items[0]
}

func TestTopLevelSequence(t *testing.T) {
	prog, _ := parse(t, "a:1;b:2;a+b")
	if len(prog.Items) != 3 {
		t.Fatalf("top-level items = %d, want 3", len(prog.Items))
	}
	if _, ok := prog.Items[0].(*ast.AssignNode); !ok {
		t.Fatalf("first item is %T, want *ast.AssignNode", prog.Items[0])
	}
}

func TestVerbChainsRightAssociative(t *testing.T) {
	n := parseOne(t, "2+5+3")
	v, ok := n.(*ast.VerbNode)
	if !ok || v.Op != ast.Plus {
		t.Fatalf("root is %T, want VerbNode(+)", n)
	}
	if _, ok := v.Right.(*ast.VerbNode); !ok {
		t.Fatalf("right operand is %T, want the nested VerbNode (right-assoc)", v.Right)
	}
	if _, ok := v.Left.(*ast.ValueNode); !ok {
		t.Fatalf("left operand is %T, want the leaf 2", v.Left)
	}
}

func TestCondSurfaceSyntax(t *testing.T) {
	n := parseOne(t, "$[1;10;20]")
	c, ok := n.(*ast.CondNode)
	if !ok {
		t.Fatalf("root is %T, want *ast.CondNode", n)
	}
	if c.Test == nil || c.Then == nil || c.Else == nil {
		t.Fatalf("cond has nil branches: %+v", c)
	}
}

func TestBracketHoles(t *testing.T) {
	n := parseOne(t, "f[;2]")
	call, ok := n.(*ast.CallNode)
	if !ok {
		t.Fatalf("root is %T, want *ast.CallNode", n)
	}
	args := ast.Flatten(call.Args)
	if len(args) != 2 {
		t.Fatalf("args = %d, want 2", len(args))
	}
	if _, ok := args[0].(*ast.AnyNode); !ok {
		t.Fatalf("first arg is %T, want *ast.AnyNode hole", args[0])
	}
}

func TestAllHoles(t *testing.T) {
	n := parseOne(t, "f[;;]")
	call := n.(*ast.CallNode)
	args := ast.Flatten(call.Args)
	if len(args) != 3 {
		t.Fatalf("f[;;] args = %d, want 3 (N semicolons make N+1 slots)", len(args))
	}
	for i, a := range args {
		if _, ok := a.(*ast.AnyNode); !ok {
			t.Fatalf("arg %d is %T, want hole", i, a)
		}
	}
}

func TestJuxtapositionDesugarsToCall(t *testing.T) {
	n := parseOne(t, "f 3")
	call, ok := n.(*ast.CallNode)
	if !ok {
		t.Fatalf("root is %T, want *ast.CallNode", n)
	}
	if len(ast.Flatten(call.Args)) != 1 {
		t.Fatalf("juxtaposition should pass one argument")
	}
}

func TestChainedBracketCalls(t *testing.T) {
	n := parseOne(t, "f[1][2]")
	outer, ok := n.(*ast.CallNode)
	if !ok {
		t.Fatalf("root is %T, want *ast.CallNode", n)
	}
	if _, ok := outer.Callee.(*ast.CallNode); !ok {
		t.Fatalf("callee is %T, want the inner call f[1]", outer.Callee)
	}
}

func TestLambdaExplicitParams(t *testing.T) {
	n := parseOne(t, "{[a;b]a+b}")
	lam, ok := n.(*ast.LambdaNode)
	if !ok {
		t.Fatalf("root is %T, want *ast.LambdaNode", n)
	}
	if got := len(ast.Params(lam.Params)); got != 2 {
		t.Fatalf("params = %d, want 2", got)
	}
}

func TestLambdaImplicitParams(t *testing.T) {
	cases := []struct {
		src  string
		want int
	}{
		{"{x+1}", 1},
		{"{x*y}", 2},
		{"{x+y+z}", 3},
		{"{42}", 1}, // no reference still gets the implicit x
	}
	for _, c := range cases {
		lam := parseOne(t, c.src).(*ast.LambdaNode)
		if got := len(ast.Params(lam.Params)); got != c.want {
			t.Errorf("%s: params = %d, want %d", c.src, got, c.want)
		}
	}
}

func TestNestedLambdaKeepsImplicitParamsSeparate(t *testing.T) {
	// The inner {x*y}'s y must not leak into the outer lambda's params.
	lam := parseOne(t, "{g:{x*y};g[x;2]}").(*ast.LambdaNode)
	if got := len(ast.Params(lam.Params)); got != 1 {
		t.Fatalf("outer params = %d, want 1 (inner y leaked)", got)
	}
}

func TestParenGrouping(t *testing.T) {
	n := parseOne(t, "(2+3)")
	if _, ok := n.(*ast.VerbNode); !ok {
		t.Fatalf("single-item parens should group, got %T", n)
	}
}

func TestParenList(t *testing.T) {
	n := parseOne(t, "(1;2;3)")
	if _, ok := n.(*ast.ListNode); !ok {
		t.Fatalf("multi-item parens should build a list, got %T", n)
	}
}

func TestBareVerbAdverb(t *testing.T) {
	n := parseOne(t, "+/x")
	adv, ok := n.(*ast.AdverbNode)
	if !ok || adv.Op != ast.Over {
		t.Fatalf("root is %T, want AdverbNode(Over)", n)
	}
	v, ok := adv.Left.(*ast.VerbNode)
	if !ok || v.Op != ast.Plus || v.Left != nil || v.Right != nil {
		t.Fatalf("adverb left is %T (%+v), want bare VerbNode(+)", adv.Left, adv.Left)
	}
}

func TestSeededVerbAdverb(t *testing.T) {
	n := parseOne(t, "0+/x")
	adv, ok := n.(*ast.AdverbNode)
	if !ok || adv.Op != ast.Over {
		t.Fatalf("root is %T, want AdverbNode(Over)", n)
	}
	v, ok := adv.Left.(*ast.VerbNode)
	if !ok || v.Op != ast.Plus || v.Left == nil || v.Right != nil {
		t.Fatalf("adverb left should be the seeded bare verb, got %T (%+v)", adv.Left, adv.Left)
	}
}

func TestYieldKeyword(t *testing.T) {
	n := parseOne(t, "yield")
	if _, ok := n.(*ast.YieldNode); !ok {
		t.Fatalf("root is %T, want *ast.YieldNode", n)
	}
}

func TestSymbolAndStringLiterals(t *testing.T) {
	prog, a := parse(t, "`abc;\"seq\"")
	if len(prog.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(prog.Items))
	}
	sym := prog.Items[0].(*ast.SymbolIntNode)
	if s, _ := a.Symbol(sym.ID); s != "abc" {
		t.Fatalf("symbol id resolves to %q, want abc", s)
	}
	seq := prog.Items[1].(*ast.SequenceIntNode)
	if s, _ := a.Sequence(seq.ID); s != "seq" {
		t.Fatalf("sequence id resolves to %q, want seq", s)
	}
}

func TestSameNameSameID(t *testing.T) {
	prog, _ := parse(t, "abc;abc")
	n1 := prog.Items[0].(*ast.NameIntNode)
	n2 := prog.Items[1].(*ast.NameIntNode)
	if n1.ID != n2.ID {
		t.Fatalf("same name interned to different ids: %d vs %d", n1.ID, n2.ID)
	}
}

func TestParseErrorReported(t *testing.T) {
	a := ast.NewArena()
	src := "1+("
	p := New(lexer.New(src), a, src, "<test>")
	p.ParseProgram()
	if len(p.Errors()) == 0 {
		t.Fatalf("expected a parse error for %q", src)
	}
}
