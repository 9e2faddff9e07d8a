package arena

import "golang.org/x/text/unicode/norm"

// maxIDs is the ceiling on distinct interned strings per table: ids are u16
// so they fit inline in a compact AST leaf.
const maxIDs = 1 << 16

// Interner maps strings to stable, insertion-ordered u16 ids. Strings are
// normalized to NFC before interning so that visually identical identifiers
// (e.g. composed vs. decomposed accents) collide on the same id, matching
// the normalization the teacher applies before string comparison.
type Interner struct {
	ids    map[string]uint16
	values []string
}

// NewInterner creates an empty Interner.
func NewInterner() *Interner {
	return &Interner{ids: make(map[string]uint16)}
}

// Intern returns the id for s, assigning a fresh one in insertion order if s
// has not been seen before. Equality is by id once interned.
func (in *Interner) Intern(s string) (uint16, error) {
	s = norm.NFC.String(s)
	if id, ok := in.ids[s]; ok {
		return id, nil
	}
	if len(in.values) >= maxIDs {
		return 0, &ErrCapacity{Resource: "interner"}
	}
	id := uint16(len(in.values))
	in.ids[s] = id
	in.values = append(in.values, s)
	return id, nil
}

// Lookup returns the string interned under id, if any.
func (in *Interner) Lookup(id uint16) (string, bool) {
	if int(id) >= len(in.values) {
		return "", false
	}
	return in.values[id], true
}

// Len reports how many distinct strings have been interned.
func (in *Interner) Len() int { return len(in.values) }

// Reset clears the interner, invalidating all previously issued ids. Only
// safe to call together with an arena Reset at quiescence.
func (in *Interner) Reset() {
	in.ids = make(map[string]uint16)
	in.values = nil
}

// Interners bundles the three parallel interning tables an Interpreter
// keeps: names, symbols, and byte-sequences.
type Interners struct {
	Names     *Interner
	Symbols   *Interner
	Sequences *Interner
}

// NewInterners creates a fresh, empty set of interning tables.
func NewInterners() *Interners {
	return &Interners{
		Names:     NewInterner(),
		Symbols:   NewInterner(),
		Sequences: NewInterner(),
	}
}

// Reset clears all three tables.
func (in *Interners) Reset() {
	in.Names.Reset()
	in.Symbols.Reset()
	in.Sequences.Reset()
}
