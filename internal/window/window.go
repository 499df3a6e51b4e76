// Package window produces (previous, current, next) triples over an ordered
// sequence, for navigation links between neighbouring pages.
package window

import "iter"

// Triple is one slide of the width-3 window. Prev and Next are nil at the
// ends of the sequence; Cur is never nil.
type Triple[T any] struct {
	Prev *T
	Cur  *T
	Next *T
}

// Over returns the triples of items. Pointers reference the elements of
// items; the sequence can be ranged over any number of times.
func Over[T any](items []T) iter.Seq[Triple[T]] {
	return func(yield func(Triple[T]) bool) {
		for i := range items {
			t := Triple[T]{Cur: &items[i]}
			if i > 0 {
				t.Prev = &items[i-1]
			}
			if i+1 < len(items) {
				t.Next = &items[i+1]
			}
			if !yield(t) {
				return
			}
		}
	}
}

// Slide is Over for a lazy sequence: it pulls one element ahead of the one
// it yields. It is restartable whenever seq is.
func Slide[T any](seq iter.Seq[T]) iter.Seq[Triple[T]] {
	return func(yield func(Triple[T]) bool) {
		var prev, cur *T
		for v := range seq {
			next := &v
			if cur != nil {
				if !yield(Triple[T]{Prev: prev, Cur: cur, Next: next}) {
					return
				}
			}
			prev, cur = cur, next
		}
		if cur != nil {
			yield(Triple[T]{Prev: prev, Cur: cur})
		}
	}
}
