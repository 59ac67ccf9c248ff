package dispatch

import "slices"

type action int

const (
	_ action = iota
	doYield
	doTransition
	doEnd
)

const (
	flagResumed = 1 << iota
	flagEnqueued
	flagEnded
	flagPanicking
	flagRecovering
	flagSpawning
	flagCanceled
)

// A Coroutine is an execution of code, similar to a goroutine but cooperative
// and stackless.
//
// A coroutine is created with a function called [Task].
// A coroutine's job is to end the task.
// When an [Executor] spawns a coroutine with a task, it runs the coroutine by
// calling the task function with the coroutine as the argument.
// The return value determines whether to end the coroutine or to yield it
// so that it could resume later.
//
// In order for a coroutine to resume, the coroutine must watch at least one
// [Event] (e.g. [Notifier] or [Call]) when calling the task function,
// or have a child coroutine that has not yet ended.
// A notification of such an event, or the end of a child coroutine, resumes
// the coroutine.
//
// A coroutine ends with a value and an error, which an asynchronous receiver
// uses to report its response (see [Coroutine.Return] and [Coroutine.Fail]).
type Coroutine struct {
	flag      uint8
	level     uint32
	parent    *Coroutine
	executor  *Executor
	ps        panicstack
	task      Task
	deps      map[Event]struct{}
	cleanups  []func()
	children  []*Coroutine
	value     any
	err       error
	recovered *PanicError
}

func newCoroutine(e *Executor, t Task, parent *Coroutine) *Coroutine {
	co := &Coroutine{executor: e, task: t, parent: parent}
	if parent != nil {
		co.level = parent.level + 1
		if co.level == 0 {
			panic("dispatch: too many levels")
		}
	}
	return co
}

func (co *Coroutine) less(other *Coroutine) bool {
	return co.level < other.level
}

// Resume resumes co.
func (co *Coroutine) Resume() {
	co.executor.resumeCoroutine(co)
}

func (co *Coroutine) run() {
	for {
		co.clearDeps()
		co.runCleanups()

		co.flag &^= flagResumed

		var res Result

		switch {
		case co.flag&flagPanicking != 0:
			res = Result{action: doEnd}
		case !co.ps.Try(func() { res = co.task(co) }):
			co.flag |= flagPanicking
			res = Result{action: doEnd}
		}

		switch res.action {
		case doYield:
			if res.task != nil {
				co.task = res.task
			}
			return
		case doTransition:
			co.task = res.task
		case doEnd:
			co.value, co.err = res.value, res.err
			co.end()
			return
		default:
			panic("dispatch: internal error: unknown action")
		}
	}
}

func (co *Coroutine) end() {
	co.flag |= flagEnded
	co.task = nil

	co.clearDeps()
	co.runCleanups()
	co.cancelChildren()

	if co.flag&flagPanicking != 0 {
		switch parent := co.parent; {
		case co.flag&flagRecovering != 0:
			p := co.ps[len(co.ps)-1]
			co.recovered = &PanicError{Value: p.value, Stack: p.stack}
			co.value, co.err = nil, co.recovered
			co.ps = nil
			co.flag &^= flagPanicking
		case parent != nil:
			parent.ps = append(parent.ps, co.ps...)
			parent.flag |= flagPanicking
			co.ps = nil
		default:
			e := co.executor
			e.mu.Lock()
			e.ps = append(e.ps, co.ps...)
			e.mu.Unlock()
			co.ps = nil
		}
	}

	if parent := co.parent; parent != nil && co.flag&flagSpawning == 0 && !parent.Ended() {
		parent.Resume()
	}
}

func (co *Coroutine) cancel() {
	co.flag |= flagEnded | flagCanceled
	co.task = nil
	co.clearDeps()
	co.runCleanups()
	co.cancelChildren()
}

func (co *Coroutine) cancelChildren() {
	children := co.children
	co.children = nil
	for _, child := range children {
		if !child.Ended() {
			child.cancel()
		}
	}
}

func (co *Coroutine) clearDeps() {
	deps := co.deps
	for d := range deps {
		delete(deps, d)
		d.removeListener(co)
	}
}

func (co *Coroutine) runCleanups() {
	for len(co.cleanups) != 0 {
		cleanups := co.cleanups
		co.cleanups = nil
		for _, f := range slices.Backward(cleanups) {
			f()
		}
	}
}

// Level returns the level of co. Root coroutines have level zero.
func (co *Coroutine) Level() uint32 {
	return co.level
}

// Parent returns the parent coroutine of co.
func (co *Coroutine) Parent() *Coroutine {
	return co.parent
}

// Executor returns the executor that spawned co.
func (co *Coroutine) Executor() *Executor {
	return co.executor
}

// Ended reports whether co has already ended (or has been canceled).
func (co *Coroutine) Ended() bool {
	return co.flag&flagEnded != 0
}

// Canceled reports whether co was canceled because its parent ended first.
func (co *Coroutine) Canceled() bool {
	return co.flag&flagCanceled != 0
}

// Panicking reports whether co is panicking.
func (co *Coroutine) Panicking() bool {
	return co.flag&flagPanicking != 0
}

// Value returns the value co ended with.
func (co *Coroutine) Value() any {
	return co.value
}

// Err returns the error co ended with.
func (co *Coroutine) Err() error {
	return co.err
}

// Watch watches some events so that, when any of them notifies, co resumes.
func (co *Coroutine) Watch(ev ...Event) {
	if co.Ended() {
		return
	}
	for _, d := range ev {
		deps := co.deps
		if deps == nil {
			deps = make(map[Event]struct{})
			co.deps = deps
		}
		deps[d] = struct{}{}
		d.addListener(co)
	}
}

// Cleanup adds a function call when co resumes or ends, or when co is
// canceled.
// Cleanup functions run in last-in-first-out (LIFO) order.
func (co *Coroutine) Cleanup(f func()) {
	if co.Ended() {
		panic("dispatch: coroutine has already ended")
	}
	if f == nil {
		return
	}
	co.cleanups = append(co.cleanups, f)
}

// Spawn creates a child coroutine to work on t, and returns it.
//
// Spawn runs t immediately. If t panics immediately, Spawn panics too.
// When a child coroutine ends later, co resumes.
//
// Child coroutines, if not yet ended, are canceled when co ends.
func (co *Coroutine) Spawn(t Task) *Coroutine {
	return co.spawn(t, false)
}

// spawn is Spawn, except that a recovering child ends with a *PanicError
// instead of propagating its panic to co.
func (co *Coroutine) spawn(t Task, recovering bool) *Coroutine {
	if co.Ended() {
		panic("dispatch: coroutine has already ended")
	}

	child := newCoroutine(co.executor, must(t), co)
	if recovering {
		child.flag |= flagRecovering
	}

	co.children = slices.DeleteFunc(co.children, (*Coroutine).Ended)
	co.children = append(co.children, child)

	child.flag |= flagSpawning
	child.run()
	child.flag &^= flagSpawning

	if co.Panicking() {
		panic(dummy{}) // Stop current task.
	}

	return child
}

type dummy struct{}

// Result is the type of the return value of a [Task] function.
// A Result determines what next for a coroutine to do after running a task.
//
// A Result can be created by calling one of the following methods:
//   - [Coroutine.Await]: for creating a [PendingResult] that can be transformed
//     into a [Result] with one of its methods, which will then cause
//     the running coroutine to yield;
//   - [Coroutine.Yield]: for yielding a coroutine with additional events to
//     watch and, when resumed, reiterating the running task;
//   - [Coroutine.Transition]: for making a transition to work on another task;
//   - [Coroutine.End]: for ending a coroutine;
//   - [Coroutine.Return]: for ending a coroutine with a value;
//   - [Coroutine.Fail]: for ending a coroutine with an error.
//
// One should just return a Result right after it is created.
type Result struct {
	action action
	task   Task // used by doYield and doTransition
	value  any  // used by doEnd only
	err    error
}

// PendingResult is the return type of the [Coroutine.Await] method.
// A PendingResult is an intermediate value that must be transformed into
// a [Result] with one of its methods before returning from a [Task].
type PendingResult struct {
	res Result
}

// Reiterate returns a [Result] that will cause the running coroutine to yield
// and, when resumed, reiterate the running task.
func (pr PendingResult) Reiterate() Result {
	return pr.res
}

// Then returns a [Result] that will cause the running coroutine to yield and,
// when resumed, make a transition to work on another [Task].
func (pr PendingResult) Then(t Task) Result {
	pr.res.task = must(t)
	return pr.res
}

// End returns a [Result] that will cause the running coroutine to yield and,
// when resumed, end.
func (pr PendingResult) End() Result {
	return pr.Then(End())
}

// Await returns a [PendingResult] that can be transformed into a [Result]
// with one of its methods, which will then cause co to yield.
// Await also accepts additional events to watch.
func (co *Coroutine) Await(ev ...Event) PendingResult {
	if len(ev) != 0 {
		co.Watch(ev...)
	}
	return PendingResult{res: Result{action: doYield}}
}

// Yield returns a [Result] that will cause co to yield and, when co is resumed,
// reiterate the running task.
// Yield also accepts additional events to watch.
func (co *Coroutine) Yield(ev ...Event) Result {
	return co.Await(ev...).Reiterate()
}

// Transition returns a [Result] that will cause co to make a transition to
// work on t.
func (co *Coroutine) Transition(t Task) Result {
	return Result{action: doTransition, task: must(t)}
}

// End returns a [Result] that will cause co to end.
func (co *Coroutine) End() Result {
	return Result{action: doEnd}
}

// Return returns a [Result] that will cause co to end with v.
func (co *Coroutine) Return(v any) Result {
	return Result{action: doEnd, value: v}
}

// Fail returns a [Result] that will cause co to end with err.
// If err is nil, Fail is equivalent to [Coroutine.End].
func (co *Coroutine) Fail(err error) Result {
	return Result{action: doEnd, err: err}
}
