// Package dispatch is a library for in-process publish/subscribe.
//
// A [Signal] is a dispatch point. Independent parts of a program connect
// receivers to it, and senders publish messages through it. A receiver can be
// connected for every sender ([Any]) or for one sender only.
//
// # Receivers
//
// A receiver is created with [Func], [AsyncFunc], [Method] or [AsyncMethod].
// A Signal tells receivers apart by identity, or by a key given with
// [DispatchUID]; connecting the same receiver twice for the same sender
// connects it once.
//
// Receivers created with Method or AsyncMethod are held weakly by default.
// A Signal does not keep their objects alive: once an object is reclaimed by
// the garbage collector, its receiver is never called again, and is removed
// the next time the Signal looks at its receivers.
//
// # Dispatching
//
// There are four ways to send a message, and they all call receivers one at
// a time, in the order they were connected:
//
//   - [Signal.Send] stops at the first receiver that fails, and returns its
//     error;
//   - [Signal.SendRobust] calls every receiver, and records each failure in
//     the response of the receiver that failed;
//   - [Signal.ASend] and [Signal.ASendRobust] do the same, but as a [Task]
//     that an [Executor] runs.
//
// # Asynchronous Receivers
//
// An asynchronous receiver returns a [Task].
// A task is run by a [Coroutine], which is cooperative and stackless:
// a task can suspend (e.g. until some blocking work done by [Go] completes),
// and the coroutine resumes it later.
//
// An [Executor] runs coroutines in a single-threaded manner.
// While dispatching asynchronously, the next receiver is not called until
// the previous one ends, so the behavior of a dispatch is reproducible.
// [Signal.Send] and [Signal.SendRobust] run asynchronous receivers too, on
// a private executor that they block on.
//
// Coroutines must not escape to other goroutines.
// A goroutine that wants to get back to a coroutine spawns a task on
// the coroutine's executor instead, like [Go] and [Sleep] do.
//
// # Panics
//
// Robust dispatches recover panics of receivers into [*PanicError] values.
// Other dispatches let them propagate. For asynchronous dispatches, that
// means the panic propagates to the coroutine that runs the dispatch task,
// and then to the [Executor], causing the [Executor.Run] method to panic when
// it returns.
package dispatch
