package dispatch

import "testing"

func TestPriorityQueue(t *testing.T) {
	t.Run("Overall", func(t *testing.T) {
		var pq priorityqueue[*Coroutine]

		for _, l := range []uint32{3, 1, 4, 1, 5, 9, 2, 6} {
			pq.Push(&Coroutine{level: l})
		}

		for _, l := range []uint32{1, 1, 2, 3} {
			if co := pq.Pop(); co.level != l {
				t.Fatalf("Pop() = level %d, want %d", co.level, l)
			}
		}

		pq.Push(&Coroutine{level: 0})
		pq.Push(&Coroutine{level: 7})

		for _, l := range []uint32{0, 4, 5, 6, 7, 9} {
			if co := pq.Pop(); co.level != l {
				t.Fatalf("Pop() = level %d, want %d", co.level, l)
			}
		}

		if !pq.Empty() {
			t.FailNow()
		}
	})
	t.Run("FIFO", func(t *testing.T) {
		var pq priorityqueue[*Coroutine]

		u := &Coroutine{}
		v := &Coroutine{}
		w := &Coroutine{}

		pq.Push(u)
		pq.Push(v)
		pq.Push(w)

		if pq.Pop() != u || pq.Pop() != v || pq.Pop() != w {
			t.FailNow()
		}
	})
	t.Run("Reuse", func(t *testing.T) {
		var pq priorityqueue[*Coroutine]

		for i := range 100 {
			pq.Push(&Coroutine{level: uint32(i % 3)})
			pq.Push(&Coroutine{level: uint32(i % 5)})
			pq.Pop()
		}

		if pq.Len() != 100 {
			t.Fatalf("Len() = %d, want 100", pq.Len())
		}

		last := uint32(0)
		for !pq.Empty() {
			co := pq.Pop()
			if co.level < last {
				t.Fatalf("Pop() = level %d after level %d", co.level, last)
			}
			last = co.level
		}
	})
}
