package arena

import "testing"

func TestArenaStability(t *testing.T) {
	a := New[int](4)
	var ptrs []*int
	for i := 0; i < 100; i++ {
		ptrs = append(ptrs, a.Alloc(i))
	}
	for i, p := range ptrs {
		if *p != i {
			t.Fatalf("pointer %d stale after further Alloc calls: got %d, want %d", i, *p, i)
		}
	}
	if a.Len() != 100 {
		t.Fatalf("Len() = %d, want 100", a.Len())
	}
}

func TestArenaReset(t *testing.T) {
	a := New[int](4)
	a.Alloc(1)
	a.Alloc(2)
	a.Reset()
	if a.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", a.Len())
	}
	p := a.Alloc(42)
	if *p != 42 {
		t.Fatalf("Alloc after Reset = %d, want 42", *p)
	}
}

func TestInternerIdempotence(t *testing.T) {
	in := NewInterner()
	id1, err := in.Intern("foo")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := in.Intern("foo")
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("intern(s) != intern(s): %d vs %d", id1, id2)
	}

	id3, err := in.Intern("bar")
	if err != nil {
		t.Fatal(err)
	}
	if id3 == id1 {
		t.Fatalf("distinct strings got same id: %d", id3)
	}

	s, ok := in.Lookup(id1)
	if !ok || s != "foo" {
		t.Fatalf("Lookup(%d) = %q, %v, want \"foo\", true", id1, s, ok)
	}
}

func TestInternerNormalizesNFC(t *testing.T) {
	in := NewInterner()
	// "é" as a single composed rune vs. "e" + combining acute accent.
	composed := "é"
	decomposed := "é"

	id1, err := in.Intern(composed)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := in.Intern(decomposed)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("NFC-equivalent strings got different ids: %d vs %d", id1, id2)
	}
}

func TestInternerCapacityError(t *testing.T) {
	full := NewInterner()
	full.values = make([]string, maxIDs)
	full.ids = make(map[string]uint16, maxIDs)
	if _, err := full.Intern("overflow"); err == nil {
		t.Fatalf("expected capacity error when interner is full")
	}
}
