// Package arena implements a chunked, never-relocating bump allocator and a
// string interner. Both are the memory substrate the AST is built on: nodes
// are allocated once and referenced by pointer for the remainder of an
// Interpreter's lifetime, and names/symbols/byte-sequences are interned to
// compact u16 ids so AST leaves stay small.
package arena

import "fmt"

// ErrCapacity is returned when a growable resource has reached a hard limit
// that the caller must treat as fatal (arena exhaustion, interner overflow).
type ErrCapacity struct {
	Resource string
}

func (e *ErrCapacity) Error() string {
	return fmt.Sprintf("arena: %s exhausted", e.Resource)
}

// defaultChunkSize is the number of elements allocated per chunk. Growth adds
// a new chunk rather than reallocating existing storage, so every pointer
// returned by Alloc remains valid until Reset.
const defaultChunkSize = 1024

// Arena is a chunked bump allocator for values of type T. It never
// individually frees an allocation; all of them are reclaimed together by
// Reset, which is only safe to call when nothing still references the
// arena's contents.
type Arena[T any] struct {
	chunkSize int
	chunks    [][]T
	len       int // elements used in the last chunk
}

// New creates an Arena with the given chunk size. A chunkSize of 0 selects
// the default.
func New[T any](chunkSize int) *Arena[T] {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	a := &Arena[T]{chunkSize: chunkSize}
	a.grow()
	return a
}

func (a *Arena[T]) grow() {
	a.chunks = append(a.chunks, make([]T, a.chunkSize))
	a.len = 0
}

// Alloc stores v in the arena and returns a pointer to the stored copy. The
// pointer is stable for the lifetime of the arena: later Alloc calls never
// move or reallocate earlier chunks.
func (a *Arena[T]) Alloc(v T) *T {
	last := a.chunks[len(a.chunks)-1]
	if a.len == len(last) {
		a.grow()
		last = a.chunks[len(a.chunks)-1]
	}
	last[a.len] = v
	p := &last[a.len]
	a.len++
	return p
}

// Len reports the total number of values allocated since the last Reset.
func (a *Arena[T]) Len() int {
	if len(a.chunks) == 0 {
		return 0
	}
	return (len(a.chunks)-1)*a.chunkSize + a.len
}

// Reset frees every allocation made so far. The caller must guarantee no
// outstanding pointer into the arena is still reachable; this is the Go
// realization of spec's gc(), legal only at scheduler quiescence.
func (a *Arena[T]) Reset() {
	a.chunks = nil
	a.grow()
}
