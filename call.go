package dispatch

import (
	"errors"
	"runtime/debug"
	"time"
)

// ErrCanceled is the error a [Call] finishes with when the coroutine running
// its task is canceled, because its parent ended first, before the dispatch
// finished.
var ErrCanceled = errors.New("dispatch: call canceled")

// A Call is an asynchronous dispatch, created by [Signal.ASend] or
// [Signal.ASendRobust].
//
// A Call does nothing until its task is spawned, by either an [Executor] or
// a [Coroutine]. The receivers are taken when the task first runs, not when
// the Call is created: a receiver connected in between is called too.
//
// If the task is spawned by a coroutine that ends before the dispatch
// finishes, the dispatch is canceled, along with the receiver it is waiting
// for, and the Call finishes with [ErrCanceled].
//
// A Call is an [Event] too, notifying when the dispatch finishes.
type Call struct {
	Notifier
	task      Task
	done      chan struct{}
	responses []Response
	err       error
}

// ASend returns a [Call] that sends a message from sender to the receivers of
// s, with the same failure semantics as [Signal.Send].
//
// Receivers are called one at a time, in order. A synchronous receiver is
// called directly by the task. An asynchronous receiver is spawned in a child
// coroutine, and the task suspends until the child ends before going on to
// the next receiver.
//
// If a receiver panics, the dispatch finishes with a [*PanicError] and the
// panic propagates to the coroutine that runs the task.
//
// The receivers are taken when the task first runs (see [Call]).
func (s *Signal) ASend(sender any, args Args) *Call {
	return s.newCall(ModeASend, sender, args)
}

// ASendRobust returns a [Call] that sends a message from sender to the
// receivers of s, with the same failure semantics as [Signal.SendRobust], and
// the same scheduling as [Signal.ASend].
func (s *Signal) ASendRobust(sender any, args Args) *Call {
	return s.newCall(ModeASendRobust, sender, args)
}

func (s *Signal) newCall(mode Mode, sender any, args Args) *Call {
	c := &Call{done: make(chan struct{})}
	c.task = s.dispatchTask(c, mode, sender, args)
	return c
}

// Task returns the task of c. It must be spawned exactly once.
func (c *Call) Task() Task {
	return c.task
}

// Done returns a channel that is closed when c finishes.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until c finishes, and then returns its responses and error.
//
// Wait must not be called in a task run by the executor that runs c.
// Use [Call.Await] there instead.
func (c *Call) Wait() ([]Response, error) {
	<-c.done
	return c.responses, c.err
}

// Finished reports whether c has finished.
func (c *Call) Finished() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Responses returns the responses of c, once c has finished.
func (c *Call) Responses() []Response {
	if !c.Finished() {
		return nil
	}
	return c.responses
}

// Err returns the error c failed with, once c has finished.
func (c *Call) Err() error {
	if !c.Finished() {
		return nil
	}
	return c.err
}

// Await returns a [Task] that awaits until c finishes, and then ends.
func (c *Call) Await() Task {
	return func(co *Coroutine) Result {
		if !c.Finished() {
			return co.Yield(c)
		}
		return co.End()
	}
}

func (c *Call) finish(responses []Response, err error) {
	if c.Finished() {
		return
	}
	c.responses, c.err = responses, err
	close(c.done)
	c.Notify()
}

func (s *Signal) dispatchTask(c *Call, mode Mode, sender any, args Args) Task {
	var (
		owner     *Coroutine
		live      []target
		m         *Message
		responses []Response
		pending   *Coroutine
		start     time.Time
		i         int
	)

	robust := mode.Robust()

	return func(co *Coroutine) Result {
		switch owner {
		case co:
		case nil:
			owner = co
			live = s.snapshot(sender)
			if s.observer != nil {
				s.observer.ObserveDispatch(s, mode, len(live))
			}
			m = &Message{Signal: s, Sender: sender, Args: args}
			responses = make([]Response, 0, len(live))
		default:
			panic("dispatch: Call task spawned twice")
		}

		ok := false
		defer func() {
			if !ok {
				v := recover()
				c.finish(nil, &PanicError{Value: v, Stack: debug.Stack()})
				panic(v)
			}
		}()

		for i < len(live) {
			t := live[i]

			var (
				v   any
				err error
			)

			switch {
			case pending != nil:
				if !pending.Ended() {
					ok = true
					co.Cleanup(func() {
						if co.Canceled() {
							s.logger.V(1).Info("Canceled dispatch", "signal", s.name, "mode", mode.String(), "receiver", t.recv.funcName())
							c.finish(nil, ErrCanceled)
						}
					})
					return co.Yield()
				}
				if p := pending.recovered; p != nil && !robust {
					panic(p.Value)
				}
				v, err = pending.Value(), pending.Err()
				pending = nil
			case t.call != nil:
				start = time.Now()
				v, err = invokeCall(t, m, robust)
			default:
				start = time.Now()
				var task Task
				if task, err = prepare(t, m, robust); err == nil {
					pending = co.spawn(task, true)
					continue
				}
			}

			i++
			responses = append(responses, s.done(mode, t, v, err, start))

			if err != nil && !robust {
				ok = true
				c.finish(nil, err)
				return co.Fail(err)
			}
		}

		ok = true
		c.finish(responses, nil)
		return co.Return(responses)
	}
}
