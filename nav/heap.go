package nav

import (
	"container/heap"
	"errors"
	"fmt"
)

var ErrNotQueued = errors.New("nav: element not in queue")

// PriorityQueue is a binary min-heap with an index map from element to heap
// slot, giving O(1) Contains and O(log n) DecreaseKey. Ordering is supplied
// by less and must reflect the element's current cost, so callers lower the
// cost first and then call DecreaseKey.
type PriorityQueue[T comparable] struct {
	h openSet[T]
}

// NewPriorityQueue sizes the heap for capacity elements.
func NewPriorityQueue[T comparable](less func(a, b T) bool, capacity int) *PriorityQueue[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &PriorityQueue[T]{
		h: openSet[T]{
			items: make([]T, 0, capacity),
			index: make(map[T]int, capacity),
			less:  less,
		},
	}
}

func (q *PriorityQueue[T]) Len() int {
	return q.h.Len()
}

// Insert adds x. Inserting an element already queued is a no-op.
func (q *PriorityQueue[T]) Insert(x T) {
	if _, ok := q.h.index[x]; ok {
		return
	}
	heap.Push(&q.h, x)
}

// RemoveMin pops the lowest-ordered element.
func (q *PriorityQueue[T]) RemoveMin() (T, bool) {
	if q.h.Len() == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(&q.h).(T), true
}

// Peek returns the lowest-ordered element without removing it.
func (q *PriorityQueue[T]) Peek() (T, bool) {
	if q.h.Len() == 0 {
		var zero T
		return zero, false
	}
	return q.h.items[0], true
}

func (q *PriorityQueue[T]) Contains(x T) bool {
	_, ok := q.h.index[x]
	return ok
}

// DecreaseKey restores heap order after x's cost was lowered in place.
func (q *PriorityQueue[T]) DecreaseKey(x T) error {
	i, ok := q.h.index[x]
	if !ok {
		return ErrNotQueued
	}
	heap.Fix(&q.h, i)
	return nil
}

// Clear empties the queue keeping its storage.
func (q *PriorityQueue[T]) Clear() {
	var zero T
	for i := range q.h.items {
		q.h.items[i] = zero
	}
	q.h.items = q.h.items[:0]
	clear(q.h.index)
}

// Validate checks heap order and that the index map locates every element.
func (q *PriorityQueue[T]) Validate() error {
	items := q.h.items
	if len(q.h.index) != len(items) {
		return fmt.Errorf("nav: heap index has %d entries for %d items", len(q.h.index), len(items))
	}
	for i, x := range items {
		if slot, ok := q.h.index[x]; !ok || slot != i {
			return fmt.Errorf("nav: heap index for slot %d points at %d (present=%v)", i, slot, ok)
		}
		if i == 0 {
			continue
		}
		parent := (i - 1) / 2
		if q.h.less(items[i], items[parent]) {
			return fmt.Errorf("nav: heap order violated between slot %d and parent %d", i, parent)
		}
	}
	return nil
}

type openSet[T comparable] struct {
	items []T
	index map[T]int
	less  func(a, b T) bool
}

func (o openSet[T]) Len() int           { return len(o.items) }
func (o openSet[T]) Less(i, j int) bool { return o.less(o.items[i], o.items[j]) }
func (o openSet[T]) Swap(i, j int) {
	o.items[i], o.items[j] = o.items[j], o.items[i]
	o.index[o.items[i]] = i
	o.index[o.items[j]] = j
}

func (o *openSet[T]) Push(x any) {
	item := x.(T)
	o.index[item] = len(o.items)
	o.items = append(o.items, item)
}

func (o *openSet[T]) Pop() any {
	old := o.items
	n := len(old)
	item := old[n-1]
	var zero T
	old[n-1] = zero
	o.items = old[:n-1]
	delete(o.index, item)
	return item
}
