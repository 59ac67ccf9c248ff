package dispatch

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync/atomic"
)

type panicstack []panicitem

func (ps panicstack) Repanic() {
	if len(ps) != 0 {
		panic(&panicvalue{items: ps})
	}
}

func (ps *panicstack) Try(f func()) (ok bool) {
	defer func() {
		if !ok {
			v := recover()
			if v == nil {
				panic("dispatch: runtime.Goexit() is not supported in a task")
			}
			if _, ok := v.(dummy); ok {
				return // Ignore dummy values.
			}
			*ps = append(*ps, panicitem{v, debug.Stack()})
		}
	}()
	f()
	return true
}


type panicitem struct {
	value any
	stack []byte
}

type panicvalue struct {
	items []panicitem
	errs  atomic.Pointer[[]error]
}

func (pv *panicvalue) Error() string {
	var b strings.Builder
	b.WriteString("as follows:")
	for i, p := range pv.items {
		fmt.Fprintf(&b, "\n(%d/%d) panic: %v", i+1, len(pv.items), p.value)
		if p.stack != nil {
			b.WriteString("\n\n")
			b.Write(p.stack)
		}
	}
	return b.String()
}

func (pv *panicvalue) Unwrap() []error {
	if p := pv.errs.Load(); p != nil {
		return *p
	}
	var errs []error
	for _, p := range pv.items {
		if err, ok := p.value.(error); ok {
			errs = append(errs, err)
		}
	}
	pv.errs.Store(&errs)
	return errs
}

// A PanicError is a panic recovered from a receiver by a robust dispatch.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("dispatch: receiver panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// catch calls f and turns a panic into a *PanicError.
func catch(f func() (any, error)) (v any, err error) {
	ok := false
	defer func() {
		if !ok {
			r := recover()
			if r == nil {
				panic("dispatch: runtime.Goexit() is not supported in a receiver")
			}
			v, err = nil, &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	v, err = f()
	ok = true
	return v, err
}
