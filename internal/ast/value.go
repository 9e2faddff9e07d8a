package ast

import (
	"strconv"
	"strings"
)

// String renders v the way the `print` primitive and the CLI's result
// printer do: vectors print as `#i[...]`/`#f[...]`/`#a[...]` (int/float/any
// element kind), matching the end-to-end scenarios of spec.md §8.
func (v Value) String() string {
	switch v.Kind {
	case VNil:
		return ""
	case VNumber:
		return strconv.FormatInt(v.Num, 10)
	case VFloat:
		return strconv.FormatFloat(v.Flt, 'g', -1, 64)
	case VHexlit:
		return "0x" + strconv.FormatInt(v.Num, 16)
	case VBool:
		if v.Bool {
			return "1b"
		}
		return "0b"
	case VSymbol:
		return "`" + strconv.Itoa(int(v.ID))
	case VSequence:
		return strconv.Itoa(int(v.ID))
	case VName:
		return strconv.Itoa(int(v.ID))
	case VVecInt:
		parts := make([]string, len(v.VecI))
		for i, x := range v.VecI {
			parts[i] = strconv.FormatInt(x, 10)
		}
		return "#i[" + strings.Join(parts, ";") + "]"
	case VVecFloat:
		parts := make([]string, len(v.VecF))
		for i, x := range v.VecF {
			parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
		}
		return "#f[" + strings.Join(parts, ";") + "]"
	case VVecAny:
		parts := make([]string, len(v.VecAny))
		for i, x := range v.VecAny {
			parts[i] = x.String()
		}
		return "#a[" + strings.Join(parts, ";") + "]"
	case VDict:
		parts := make([]string, len(v.Keys))
		for i := range v.Keys {
			parts[i] = v.Keys[i].String() + ":" + v.Vals[i].String()
		}
		return "#d[" + strings.Join(parts, ";") + "]"
	case VLambda:
		return "{lambda}"
	case VBuiltin:
		return "{" + v.Builtin + "}"
	case VVerbFn:
		return "{" + v.VerbOp.String() + "}"
	default:
		return "?value"
	}
}

// Equal is the structural equality the Equal, NotEqual and Match verbs use
// for every kind; Less and More take only numeric operands.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case VNil:
		return true
	case VNumber, VHexlit:
		return v.Num == o.Num
	case VFloat:
		return v.Flt == o.Flt
	case VBool:
		return v.Bool == o.Bool
	case VSymbol, VSequence, VName:
		return v.ID == o.ID
	case VVecInt:
		return intSliceEqual(v.VecI, o.VecI)
	case VVecFloat:
		return floatSliceEqual(v.VecF, o.VecF)
	case VVecAny:
		if len(v.VecAny) != len(o.VecAny) {
			return false
		}
		for i := range v.VecAny {
			if !v.VecAny[i].Equal(o.VecAny[i]) {
				return false
			}
		}
		return true
	case VDict:
		if len(v.Keys) != len(o.Keys) {
			return false
		}
		for i := range v.Keys {
			if !v.Keys[i].Equal(o.Keys[i]) || !v.Vals[i].Equal(o.Vals[i]) {
				return false
			}
		}
		return true
	case VLambda:
		return v.Lambda == o.Lambda
	case VBuiltin:
		return v.Builtin == o.Builtin
	case VVerbFn:
		return v.VerbOp == o.VerbOp
	default:
		return false
	}
}

func intSliceEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func floatSliceEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
