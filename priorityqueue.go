package dispatch

import "sort"

type lesser[E any] interface {
	less(v E) bool
}

// priorityqueue pops the least element first.
// Elements that compare equal pop in arrival order.
type priorityqueue[E lesser[E]] struct {
	items []E
	head  int
}

func (q *priorityqueue[E]) Empty() bool {
	return q.head == len(q.items)
}

func (q *priorityqueue[E]) Len() int {
	return len(q.items) - q.head
}

func (q *priorityqueue[E]) Push(v E) {
	s := q.items[q.head:]

	i := sort.Search(len(s), func(i int) bool { return v.less(s[i]) })

	if q.head != 0 && len(q.items) == cap(q.items) {
		// Reclaim the popped prefix before growing.
		n := copy(q.items, s)
		clear(q.items[n:])
		q.items, q.head = q.items[:n], 0
	}

	var zero E

	q.items = append(q.items, zero)
	s = q.items[q.head:]
	copy(s[i+1:], s[i:])
	s[i] = v
}

func (q *priorityqueue[E]) Pop() (v E) {
	var zero E

	v, q.items[q.head] = q.items[q.head], zero
	q.head++

	if q.head == len(q.items) {
		q.items, q.head = q.items[:0], 0
	}

	return v
}
