package eval

import (
	"bytes"
	"strings"
	"testing"

	"github.com/odsl-lang/odsl/internal/ast"
	"github.com/odsl-lang/odsl/internal/lexer"
	"github.com/odsl-lang/odsl/internal/parser"
)

// harness parses and drives src to its final value, failing the test on
// parse errors, evaluation errors, or an unexpected suspension (these
// programs never touch intercore primitives).
func run(t *testing.T, src string, opts ...Option) ast.Value {
	t.Helper()
	a := ast.NewArena()
	ev := New(a, opts...)
	l := lexer.New(src)
	p := parser.New(l, a, src, "<test>")
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse %q: %v", src, errs[0])
	}
	st, err := ev.Run(prog, ev.Root())
	if err != nil {
		t.Fatalf("run %q: %v", src, err)
	}
	if st.Kind != KReturn {
		t.Fatalf("run %q: expected Return, got state kind %d", src, st.Kind)
	}
	return st.Value
}

func runStr(t *testing.T, src string) string {
	t.Helper()
	return run(t, src).String()
}

func TestArithmeticRightAssociative(t *testing.T) {
	if got := runStr(t, "2+5+3"); got != "10" {
		t.Fatalf("2+5+3 = %s, want 10", got)
	}
	// Right associativity is observable through subtraction.
	if got := runStr(t, "10-2-3"); got != "11" {
		t.Fatalf("10-2-3 = %s, want 11 (right-assoc: 10-(2-3))", got)
	}
}

func TestLexicalScope(t *testing.T) {
	// k captures the top-level scope at its creation site, not its caller's.
	if got := runStr(t, "f:{a:9};a:14;k:{[x]a};k 3"); got != "14" {
		t.Fatalf("lexical scope = %s, want 14", got)
	}
}

func TestTailRecursiveFactorial(t *testing.T) {
	if got := runStr(t, "fac:{[a;b]$[a=1;b;fac[a-1;a*b]]}; fac[4;5]"); got != "120" {
		t.Fatalf("fac[4;5] = %s, want 120", got)
	}
}

func TestFactorial20(t *testing.T) {
	if got := runStr(t, "fac:{$[x=0;1;x*fac[x-1]]};fac 20"); got != "2432902008176640000" {
		t.Fatalf("fac 20 = %s, want 2432902008176640000", got)
	}
}

func TestAckermannDeepRecursion(t *testing.T) {
	// A(3,4) recurses tens of thousands of times; the trampoline must keep
	// the host stack flat throughout.
	src := "f:{[x;y]$[0=x;1+y;$[0=y;f[x-1;1];f[x-1;f[x;y-1]]]]};f[3;4]"
	if got := runStr(t, src); got != "125" {
		t.Fatalf("ackermann f[3;4] = %s, want 125", got)
	}
}

func TestVectorScalarDyadic(t *testing.T) {
	cases := []struct{ src, want string }{
		{"(1;2;3)+1", "#i[2;3;4]"},
		{"1+(1;2;3)", "#i[2;3;4]"},
		{"(1;2;3)=1", "#i[1;0;0]"},
		{"(1;2;3)+(10;20;30)", "#i[11;22;33]"},
		{"(1;2;3)<>(1;2;3)", "#i[0;0;0]"},
		{"(1;2;3)*1.5", "#f[1.5;3;4.5]"},
	}
	for _, c := range cases {
		if got := runStr(t, c.src); got != c.want {
			t.Errorf("%s = %s, want %s", c.src, got, c.want)
		}
	}
}

func TestVectorLengthMismatch(t *testing.T) {
	a := ast.NewArena()
	ev := New(a)
	src := "(1;2)+(1;2;3)"
	l := lexer.New(src)
	p := parser.New(l, a, src, "<test>")
	prog := p.ParseProgram()
	if _, err := ev.Run(prog, ev.Root()); err == nil {
		t.Fatalf("expected length-mismatch error for %s", src)
	}
}

func TestFoldOverLambdaResult(t *testing.T) {
	// Sum of elementwise products.
	if got := runStr(t, "+/{x*y}[(1;3;4;5;6);(2;6;2;1;3)]"); got != "51" {
		t.Fatalf("fold = %s, want 51", got)
	}
}

func TestFoldSeeded(t *testing.T) {
	if got := runStr(t, "100+/(1;2;3)"); got != "106" {
		t.Fatalf("100+/(1;2;3) = %s, want 106", got)
	}
}

func TestScan(t *testing.T) {
	if got := runStr(t, "+\\(1;2;3;4)"); got != "#i[1;3;6;10]" {
		t.Fatalf("+\\(1;2;3;4) = %s, want #i[1;3;6;10]", got)
	}
}

func TestEach(t *testing.T) {
	if got := runStr(t, "-'(1;2;3)"); got != "#i[-1;-2;-3]" {
		t.Fatalf("-'(1;2;3) = %s, want #i[-1;-2;-3]", got)
	}
	if got := runStr(t, "{x*x}'(1;2;3)"); got != "#i[1;4;9]" {
		t.Fatalf("{x*x}'(1;2;3) = %s, want #i[1;4;9]", got)
	}
}

func TestEachLeftEachRight(t *testing.T) {
	// 10-\:v maps f[vi;10]; 10-/:v maps f[10;vi].
	if got := runStr(t, "10-\\:(1;2;3)"); got != "#i[-9;-8;-7]" {
		t.Fatalf("10-\\:(1;2;3) = %s, want #i[-9;-8;-7]", got)
	}
	if got := runStr(t, "10-/:(1;2;3)"); got != "#i[9;8;7]" {
		t.Fatalf("10-/:(1;2;3) = %s, want #i[9;8;7]", got)
	}
}

func TestEachPrio(t *testing.T) {
	// Windowed pairs apply as f[v[i-1], v[i]].
	if got := runStr(t, "-':(1;4;9;16)"); got != "#i[-3;-5;-7]" {
		t.Fatalf("-':(1;4;9;16) = %s, want #i[-3;-5;-7]", got)
	}
}

func TestAdverbOverLargeVectorBoundedStack(t *testing.T) {
	// A fold over a large iota must thread the trampoline, not the host
	// stack: 0+!/ would read oddly, so build the vector with iota and sum.
	if got := runStr(t, "+/!1000"); got != "499500" {
		t.Fatalf("+/!1000 = %s, want 499500", got)
	}
}

func TestPartialApplication(t *testing.T) {
	if got := runStr(t, "aa:{[x;y]x+y}; bb:aa[;2]; bb 3"); got != "5" {
		t.Fatalf("partial = %s, want 5", got)
	}
	if got := runStr(t, "aa:{[x;y;z]x+y+z}; bb:aa[;;]; bb[1;2;3]"); got != "6" {
		t.Fatalf("all-holes partial = %s, want 6", got)
	}
	if got := runStr(t, "aa:{[x;y]x-y}; bb:aa[10;]; bb 4"); got != "6" {
		t.Fatalf("left-bound partial = %s, want 6", got)
	}
}

func TestCurriedByUnderApplication(t *testing.T) {
	if got := runStr(t, "aa:{[x;y]x+y}; bb:aa[7]; bb 2"); got != "9" {
		t.Fatalf("under-application = %s, want 9", got)
	}
}

func TestImplicitParams(t *testing.T) {
	if got := runStr(t, "{x*y}[6;7]"); got != "42" {
		t.Fatalf("{x*y}[6;7] = %s, want 42", got)
	}
	if got := runStr(t, "{x}[5]"); got != "5" {
		t.Fatalf("{x}[5] = %s, want 5", got)
	}
	if got := runStr(t, "{x+y+z}[1;2;3]"); got != "6" {
		t.Fatalf("{x+y+z}[1;2;3] = %s, want 6", got)
	}
}

func TestJuxtapositionEqualsBracketCall(t *testing.T) {
	var b1, b2 bytes.Buffer
	run(t, "a:7;print[a*10]", WithOutput(&b1))
	run(t, "a:7;print a*10", WithOutput(&b2))
	if b1.String() != b2.String() {
		t.Fatalf("print[a*10] printed %q, print a*10 printed %q", b1.String(), b2.String())
	}
	if strings.TrimSpace(b1.String()) != "70" {
		t.Fatalf("print[a*10] printed %q, want 70", strings.TrimSpace(b1.String()))
	}
}

func TestConditionalTruthiness(t *testing.T) {
	cases := []struct{ src, want string }{
		{"$[1;10;20]", "10"},
		{"$[0;10;20]", "20"},
		{"$[0b;10;20]", "20"},
		{"$[1b;10;20]", "10"},
		{"$[5;10;20]", "10"}, // any nonzero number is truthy
	}
	for _, c := range cases {
		if got := runStr(t, c.src); got != c.want {
			t.Errorf("%s = %s, want %s", c.src, got, c.want)
		}
	}
}

func TestAssignmentResolvesToNil(t *testing.T) {
	v := run(t, "a:10")
	if v.Kind != ast.VNil {
		t.Fatalf("assignment value kind = %d, want VNil", v.Kind)
	}
}

func TestAssignmentShadowing(t *testing.T) {
	if got := runStr(t, "a:1;a:2;a"); got != "2" {
		t.Fatalf("shadowed a = %s, want 2", got)
	}
}

func TestUndefinedNameError(t *testing.T) {
	a := ast.NewArena()
	ev := New(a)
	src := "nosuchname"
	l := lexer.New(src)
	p := parser.New(l, a, src, "<test>")
	prog := p.ParseProgram()
	if _, err := ev.Run(prog, ev.Root()); err == nil {
		t.Fatalf("expected undefined-name error")
	}
}

func TestMonadicVerbs(t *testing.T) {
	cases := []struct{ src, want string }{
		{"#(4;5;6)", "3"},           // count
		{"!4", "#i[0;1;2;3]"},       // iota
		{"*(7;8;9)", "7"},           // first
		{"|(1;2;3)", "#i[3;2;1]"},   // rev
		{"-(1;2;3)", "#i[-1;-2;-3]"}, // negate elementwise
		{"-5", "-5"},                // negate scalar
	}
	for _, c := range cases {
		if got := runStr(t, c.src); got != c.want {
			t.Errorf("%s = %s, want %s", c.src, got, c.want)
		}
	}
}

func TestMonadicBindsTighterThanDyadic(t *testing.T) {
	if got := runStr(t, "#(1;2;3)+1"); got != "4" {
		t.Fatalf("#(1;2;3)+1 = %s, want 4 ((#v)+1)", got)
	}
}

func TestListLiteralEvaluation(t *testing.T) {
	if got := runStr(t, "a:10;[1;2;[a+a;[4+a;3];2];5]"); got != "#a[1;2;#a[20;#a[14;3];2];5]" {
		t.Fatalf("nested list = %s", got)
	}
}

func TestIntercoreYieldSurfaces(t *testing.T) {
	a := ast.NewArena()
	ev := New(a)
	src := "pub[0;8]"
	l := lexer.New(src)
	p := parser.New(l, a, src, "<test>")
	prog := p.ParseProgram()
	st, err := ev.Run(prog, ev.Root())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.Kind != KYield {
		t.Fatalf("pub should suspend, got state kind %d", st.Kind)
	}
	if st.Ctx.Msg == nil {
		t.Fatalf("pub suspension carries no intercore message")
	}
}

func TestTraceHookFires(t *testing.T) {
	n := 0
	run(t, "1+1", WithTrace(func(from, to State) { n++ }))
	if n == 0 {
		t.Fatalf("trace hook never fired")
	}
}
