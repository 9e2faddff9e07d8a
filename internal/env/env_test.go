package env

import "testing"

func TestLookupShadowing(t *testing.T) {
	tr := NewTree[int]()
	root := tr.Root()
	root.Define(1, 100)
	child := tr.NewChild(root)
	child.Define(1, 200)

	v, node, ok := child.Get(1)
	if !ok || v != 200 {
		t.Fatalf("Get(1) from child = %d, %v, want 200, true", v, ok)
	}
	if node != child {
		t.Fatalf("Get(1) returned wrong holding node")
	}

	v, _, ok = root.Get(1)
	if !ok || v != 100 {
		t.Fatalf("Get(1) from root = %d, %v, want 100, true", v, ok)
	}
}

func TestLookupWalksParentChain(t *testing.T) {
	tr := NewTree[string]()
	root := tr.Root()
	root.Define(5, "root-value")
	mid := tr.NewChild(root)
	leaf := tr.NewChild(mid)

	v, _, ok := leaf.Get(5)
	if !ok || v != "root-value" {
		t.Fatalf("Get(5) from leaf = %q, %v, want \"root-value\", true", v, ok)
	}
}

func TestLookupMiss(t *testing.T) {
	tr := NewTree[int]()
	if _, _, ok := tr.Root().Get(99); ok {
		t.Fatalf("expected lookup miss for undefined id")
	}
}

func TestReshadowLatestWins(t *testing.T) {
	tr := NewTree[int]()
	root := tr.Root()
	root.Define(1, 1)
	root.Define(1, 2)
	root.Define(1, 3)

	v, _, ok := root.Get(1)
	if !ok || v != 3 {
		t.Fatalf("Get(1) = %d, %v, want 3, true (latest define should win)", v, ok)
	}
}

func TestClean(t *testing.T) {
	tr := NewTree[int]()
	root := tr.Root()
	root.Define(1, 1)
	child := tr.NewChild(root)
	child.Define(2, 2)

	tr.Clean()

	if _, _, ok := tr.Root().Get(1); ok {
		t.Fatalf("expected Clean to discard prior bindings")
	}
	if tr.Root() == root {
		t.Fatalf("expected Clean to replace the root node")
	}
}
