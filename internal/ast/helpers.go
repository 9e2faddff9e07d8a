package ast

// Flatten returns the ordered items backing a List/Dict/Vector's Items
// field, regardless of whether the builder stored them as a Vector (the
// parser's usual choice) or as a Cons chain (spec.md's canonical shape for
// builder-constructed dict/list literals).
func Flatten(n Node) []Node {
	switch t := n.(type) {
	case nil:
		return nil
	case *Vector:
		return t.Items
	case *ConsNode:
		var out []Node
		cur := Node(t)
		for {
			c, ok := cur.(*ConsNode)
			if !ok {
				out = append(out, cur)
				return out
			}
			out = append(out, c.Left)
			cur = c.Right
		}
	default:
		return []Node{n}
	}
}

// Params returns the ordered parameter name nodes of a Lambda's Params
// field, which may be a single Name/NameInt node (one implicit/explicit
// parameter) or a Vector of them (multi-parameter).
func Params(n Node) []Node {
	if v, ok := n.(*Vector); ok {
		return v.Items
	}
	if n == nil {
		return nil
	}
	return []Node{n}
}
