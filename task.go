package dispatch

import "time"

// A Task is a piece of work that a coroutine is given to do when it is spawned.
// The return value of a task, a [Result], determines what next for a coroutine
// to do.
//
// co must not escape to another goroutine. To hand work back to co from
// another goroutine, spawn a task on co.Executor() instead.
type Task func(co *Coroutine) Result

func must(t Task) Task {
	if t == nil {
		panic("dispatch: nil Task")
	}
	return t
}

// Then returns a [Task] that first works on t, then next after t ends.
// If t ends with an error, next is skipped and the returned task ends with
// that error.
//
// To chain multiple tasks, use [Block] function.
func (t Task) Then(next Task) Task {
	return Block(t, next)
}

// Do returns a [Task] that calls f, and then ends.
func Do(f func()) Task {
	return func(co *Coroutine) Result {
		f()
		return co.End()
	}
}

// End returns a [Task] that ends without doing anything.
func End() Task {
	return (*Coroutine).End
}

// Await returns a [Task] that awaits some events until any of them notifies,
// and then ends.
// If ev is empty, Await returns a [Task] that never ends.
func Await(ev ...Event) Task {
	return func(co *Coroutine) Result {
		return co.Await(ev...).End()
	}
}

// Block returns a [Task] that runs each of the given tasks in sequence.
// When one task ends, Block runs another.
// The returned task ends with the value of the last task, or with the first
// error any of them ends with.
func Block(s ...Task) Task {
	for _, t := range s {
		must(t)
	}
	switch len(s) {
	case 0:
		return End()
	case 1:
		return s[0]
	}
	return func(co *Coroutine) Result {
		return co.Transition(sequence(s))
	}
}

// sequence returns a stateful Task that walks s; each run of a Block task
// gets its own.
func sequence(s []Task) Task {
	var (
		cur  Task
		next int
		step Task
	)
	step = func(co *Coroutine) Result {
		if cur == nil {
			cur = s[next]
			next++
		}
		res := cur(co)
		switch res.action {
		case doYield:
			if res.task != nil {
				cur = res.task
			}
			return Result{action: doYield}
		case doTransition:
			cur = res.task
			return Result{action: doTransition, task: step}
		default:
			if res.err != nil || next == len(s) {
				return res
			}
			cur = nil
			return Result{action: doTransition, task: step}
		}
	}
	return step
}

// Go returns a [Task] that calls f in a new goroutine, awaits until f returns,
// and then ends with what f returns.
// A panic in f is recovered and the task ends with a [*PanicError].
//
// Go is the way for an asynchronous receiver to wait on blocking work, such
// as I/O, without blocking its [Executor].
func Go(f func() (any, error)) Task {
	return func(co *Coroutine) Result {
		var (
			n     Notifier
			done  bool
			value any
			err   error
		)

		e := co.Executor()

		go func() {
			v, ferr := catch(f)
			e.Spawn(Do(func() {
				value, err, done = v, ferr, true
				n.Notify()
			}))
		}()

		wait := func(co *Coroutine) Result {
			if !done {
				return co.Yield(&n)
			}
			if err != nil {
				return co.Fail(err)
			}
			return co.Return(value)
		}

		return co.Await(&n).Then(wait)
	}
}

// Sleep returns a [Task] that awaits until d has elapsed, and then ends.
func Sleep(d time.Duration) Task {
	return func(co *Coroutine) Result {
		var n Notifier

		e := co.Executor()
		tm := time.AfterFunc(d, func() { e.Spawn(Do(n.Notify)) })
		co.Cleanup(func() { tm.Stop() })

		return co.Await(&n).End()
	}
}
