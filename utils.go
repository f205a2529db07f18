package liveplot

import (
	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Float | constraints.Integer
}

func Filter[T any](slice []T, predicate func(T) bool) []T {
	filtered := make([]T, 0, len(slice))
	for _, elem := range slice {
		if predicate(elem) {
			filtered = append(filtered, elem)
		}
	}
	return filtered
}

func Min[T Number](a T, b T) T {
	if a > b {
		return b
	}

	return a
}

// Ring is a fixed capacity circular buffer. Pushing into a full ring evicts
// the oldest element. It is not safe for concurrent use: the owning plot
// buffer's lock governs access to it.
type Ring[T any] struct {
	buf   []T
	start int // index of the oldest element
	size  int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}

	return &Ring[T]{
		buf: make([]T, capacity),
	}
}

func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

func (r *Ring[T]) Len() int {
	return r.size
}

// Push appends data as the newest element. Returns true if the oldest element
// was evicted to make room.
func (r *Ring[T]) Push(data T) bool {
	capacity := len(r.buf)
	if r.size < capacity {
		r.buf[(r.start+r.size)%capacity] = data
		r.size++
		return false
	}

	r.buf[r.start] = data
	r.start = (r.start + 1) % capacity
	return true
}

// Resize changes the capacity of the ring. When shrinking, only the newest
// elements that fit are kept.
func (r *Ring[T]) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}

	if capacity == len(r.buf) {
		return
	}

	kept := Min(r.size, capacity)
	buf := make([]T, capacity)
	for i := 0; i < kept; i++ {
		buf[i] = r.buf[(r.start+r.size-kept+i)%len(r.buf)]
	}

	r.buf = buf
	r.start = 0
	r.size = kept
}

// AppendTo appends the contents of the ring, oldest first, to dst.
func (r *Ring[T]) AppendTo(dst []T) []T {
	for i := 0; i < r.size; i++ {
		dst = append(dst, r.buf[(r.start+i)%len(r.buf)])
	}

	return dst
}

func (r *Ring[T]) ReadAllOrdered() []T {
	return r.AppendTo(make([]T, 0, r.size))
}

// Last returns the newest element.
func (r *Ring[T]) Last() (T, bool) {
	if r.size == 0 {
		var zero T
		return zero, false
	}

	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}
