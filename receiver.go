package dispatch

import (
	"reflect"
	"runtime"
	"weak"
)

// A Receiver is a callable that can be connected to a [Signal].
//
// Use [Func], [AsyncFunc], [Method] or [AsyncMethod] to create one.
//
// By default, a Signal tells receivers apart by identity:
//   - a Func or an AsyncFunc is identified by its code pointer, which means
//     that closures created from the same function literal are the same
//     receiver;
//   - a Method or an AsyncMethod is identified by its object and the code
//     pointer of its function, so the same method of two objects are two
//     receivers.
//
// A method value, such as Func(obj.Handle), shares one code pointer with the
// same method of every other object, so [Signal.Connect] refuses it without
// a DispatchUID. Use Method(obj, (*T).Handle) instead.
//
// Where code pointers are not good enough, connect with [DispatchUID].
type Receiver interface {
	identity() any
	funcName() string
	bind(weak bool) handle
	valid() bool
}

// A handle is how a Signal holds a receiver.
type handle interface {
	alive() bool
	// resolve returns false if the receiver has been reclaimed.
	resolve() (target, bool)
}

// A target is a resolved receiver, ready to be called.
// Exactly one of call and task is set.
type target struct {
	recv Receiver
	call func(m *Message) (any, error)
	task func(m *Message) Task
}

type strong struct{ t target }

func (h strong) alive() bool { return true }

func (h strong) resolve() (target, bool) { return h.t, true }

type funcKey uintptr

type nameKey string

func codePointer(f any) uintptr {
	return reflect.ValueOf(f).Pointer()
}

func nameOf(f any) string {
	if fn := runtime.FuncForPC(codePointer(f)); fn != nil {
		return fn.Name()
	}
	return ""
}

// Func is a synchronous receiver.
//
// A Func cannot be held weakly; connecting one with Weak(true) holds it
// strongly.
type Func func(m *Message) (any, error)

func (f Func) identity() any { return funcKey(codePointer(f)) }

func (f Func) funcName() string { return nameOf(f) }

func (f Func) bind(bool) handle { return strong{target{recv: f, call: f}} }

func (f Func) valid() bool { return f != nil }

// AsyncFunc is an asynchronous receiver.
// It returns a [Task] that a coroutine works on; the coroutine ends with
// the response of the receiver (see [Coroutine.Return] and [Coroutine.Fail]).
//
// Like a [Func], an AsyncFunc cannot be held weakly.
type AsyncFunc func(m *Message) Task

func (f AsyncFunc) identity() any { return funcKey(codePointer(f)) }

func (f AsyncFunc) funcName() string { return nameOf(f) }

func (f AsyncFunc) bind(bool) handle { return strong{target{recv: f, task: f}} }

func (f AsyncFunc) valid() bool { return f != nil }

// Method returns a synchronous [Receiver] that calls f with obj.
//
// Connected weakly, which is the default, a Signal does not keep obj alive.
// Once obj is reclaimed, the receiver is never called again and is removed
// from the Signal. f must not capture obj, or obj would never be reclaimed.
func Method[T any](obj *T, f func(obj *T, m *Message) (any, error)) Receiver {
	return &method[T]{obj: obj, call: f}
}

// AsyncMethod returns an asynchronous [Receiver] that calls f with obj.
//
// See [Method] for how obj is held.
func AsyncMethod[T any](obj *T, f func(obj *T, m *Message) Task) Receiver {
	return &method[T]{obj: obj, task: f}
}

type method[T any] struct {
	obj  *T
	call func(*T, *Message) (any, error)
	task func(*T, *Message) Task
}

type methodKey[T any] struct {
	obj weak.Pointer[T]
	fn  uintptr
}

func (r *method[T]) fn() any {
	if r.call != nil {
		return r.call
	}
	return r.task
}

func (r *method[T]) identity() any {
	return methodKey[T]{weak.Make(r.obj), codePointer(r.fn())}
}

func (r *method[T]) funcName() string { return nameOf(r.fn()) }

func (r *method[T]) valid() bool {
	return r.obj != nil && (r.call != nil || r.task != nil)
}

func (r *method[T]) bind(weakly bool) handle {
	if !weakly {
		return strong{r.target()}
	}
	return &weakMethod[T]{obj: weak.Make(r.obj), call: r.call, task: r.task}
}

func (r *method[T]) target() target {
	t := target{recv: r}
	obj := r.obj
	if call := r.call; call != nil {
		t.call = func(m *Message) (any, error) { return call(obj, m) }
	} else {
		task := r.task
		t.task = func(m *Message) Task { return task(obj, m) }
	}
	return t
}

type weakMethod[T any] struct {
	obj  weak.Pointer[T]
	call func(*T, *Message) (any, error)
	task func(*T, *Message) Task
}

func (h *weakMethod[T]) alive() bool { return h.obj.Value() != nil }

func (h *weakMethod[T]) resolve() (target, bool) {
	obj := h.obj.Value()
	if obj == nil {
		return target{}, false
	}
	r := &method[T]{obj: obj, call: h.call, task: h.task}
	return r.target(), true
}
