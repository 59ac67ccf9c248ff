package dispatch

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// ErrNoReceiver is returned by [Signal.Disconnect] when it is given neither
// a receiver nor a [DispatchUID].
var ErrNoReceiver = errors.New("dispatch: disconnect needs a receiver or a dispatch uid")

type anySender struct{}

// Any is the wildcard sender.
// A receiver connected for Any receives messages from every sender.
var Any any = anySender{}

func isAny(sender any) bool {
	_, ok := sender.(anySender)
	return ok
}

// A Signal is a dispatch point that receivers connect to and senders publish
// messages through.
//
// Receivers are called one at a time, in the order they were connected.
// Every dispatch works on the receivers connected when it starts:
// a receiver connected during a dispatch is not called by it, and one
// disconnected during a dispatch is still called by it.
//
// The zero value for Signal is ready to use.
// A Signal is safe for concurrent use.
type Signal struct {
	mu       sync.Mutex
	regs     []registration
	name     string
	logger   logr.Logger
	observer Observer
}

type registration struct {
	key    lookupKey
	handle handle
}

type lookupKey struct {
	recv   any
	sender any
}

func (k lookupKey) equal(other lookupKey) bool {
	return equal(k.recv, other.recv) && equal(k.sender, other.sender)
}

func (k lookupKey) matches(sender any) bool {
	return isAny(k.sender) || equal(k.sender, sender)
}

// New creates a new [Signal].
func New(opts ...SignalOption) *Signal {
	s := new(Signal)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the name of s.
func (s *Signal) Name() string {
	return s.name
}

func makeKey(r Receiver, o *options) lookupKey {
	k := lookupKey{sender: o.sender}
	switch {
	case o.uid != nil:
		k.recv = o.uid
	case o.byName:
		k.recv = nameKey(r.funcName())
	default:
		k.recv = r.identity()
	}
	return k
}

func isNil(r Receiver) bool {
	return r == nil || !r.valid()
}

// isMethodValue reports whether r calls a method value, such as obj.Handle.
// The code pointer of a method value is shared by every object.
func isMethodValue(r Receiver) bool {
	return strings.HasSuffix(r.funcName(), "-fm")
}

// Connect connects r to s.
//
// Options that apply: [Sender], [Weak], [DispatchUID] and [KeyByName].
//
// Connecting a receiver that is already connected for the same sender, as
// told apart by its identity or its dispatch uid, does nothing.
//
// Connect panics if r is nil, or if r calls a method value (obj.Handle) and
// no [DispatchUID] is given; use [Method] instead. It also panics if the
// sender or the dispatch uid is not equal to itself, e.g. a struct holding
// a map, since no message could ever match it.
func (s *Signal) Connect(r Receiver, opts ...Option) {
	if isNil(r) {
		panic("dispatch: nil Receiver")
	}

	o := newOptions(opts)

	switch {
	case o.uid == nil && isMethodValue(r):
		panic("dispatch: method value " + r.funcName() + " needs Method or DispatchUID")
	case !matchable(o.sender):
		panic("dispatch: sender is not equal to itself")
	case !matchable(o.uid):
		panic("dispatch: dispatch uid is not equal to itself")
	}

	key := makeKey(r, &o)
	h := r.bind(o.weak)

	s.mu.Lock()
	s.purge()
	added := !slices.ContainsFunc(s.regs, func(reg registration) bool { return reg.key.equal(key) })
	if added {
		s.regs = append(s.regs, registration{key, h})
		s.observeRegistry()
	}
	n := len(s.regs)
	s.mu.Unlock()

	if !added {
		return
	}

	s.logger.V(1).Info("Connected receiver", "signal", s.name, "receiver", r.funcName(), "wildcard", isAny(o.sender), "receivers", n)
}

// Disconnect disconnects a receiver from s, and reports whether it was
// connected.
//
// Options that apply: [Sender], [DispatchUID] and [KeyByName]. They must
// match the ones the receiver was connected with. If a DispatchUID is given,
// r can be nil; otherwise, Disconnect returns [ErrNoReceiver] for a nil r.
//
// With weak receivers, one need not call Disconnect; a reclaimed receiver is
// removed automatically.
func (s *Signal) Disconnect(r Receiver, opts ...Option) (bool, error) {
	o := newOptions(opts)
	if o.uid == nil && isNil(r) {
		return false, ErrNoReceiver
	}

	key := makeKey(r, &o)

	s.mu.Lock()
	s.purge()
	before := len(s.regs)
	s.regs = slices.DeleteFunc(s.regs, func(reg registration) bool { return reg.key.equal(key) })
	n := len(s.regs)
	if n != before {
		s.observeRegistry()
	}
	s.mu.Unlock()

	if n == before {
		return false, nil
	}

	s.logger.V(1).Info("Disconnected receiver", "signal", s.name, "receivers", n)

	return true, nil
}

// HasListeners reports whether any receiver would receive a message sent by
// sender. HasListeners(Any) only counts receivers connected for Any.
func (s *Signal) HasListeners(sender any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purge()
	return slices.ContainsFunc(s.regs, func(reg registration) bool { return reg.key.matches(sender) })
}

// Len returns the number of receivers connected to s, for any sender.
func (s *Signal) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purge()
	return len(s.regs)
}

// purge removes reclaimed receivers. s.mu must be held.
func (s *Signal) purge() {
	before := len(s.regs)
	s.regs = slices.DeleteFunc(s.regs, func(reg registration) bool { return !reg.handle.alive() })
	if n := len(s.regs); n != before {
		s.logger.V(1).Info("Removed reclaimed receivers", "signal", s.name, "removed", before-n, "receivers", n)
		s.observeRegistry()
	}
}

// observeRegistry reports the number of receivers. s.mu must be held, so
// that reports arrive in the order of the changes.
func (s *Signal) observeRegistry() {
	if s.observer != nil {
		s.observer.ObserveRegistry(s, len(s.regs))
	}
}

// snapshot resolves the receivers that match sender, in connection order.
func (s *Signal) snapshot(sender any) []target {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purge()
	var live []target
	for _, reg := range s.regs {
		if !reg.key.matches(sender) {
			continue
		}
		if t, ok := reg.handle.resolve(); ok {
			live = append(live, t)
		}
	}
	return live
}

// done reports the outcome of one receiver and turns it into a Response.
func (s *Signal) done(mode Mode, t target, v any, err error, start time.Time) Response {
	if s.observer != nil {
		s.observer.ObserveReceiver(s, mode, err, time.Since(start))
	}
	if err != nil && mode.Robust() {
		s.logger.Error(err, "Error calling receiver", "signal", s.name, "mode", mode.String(), "receiver", t.recv.funcName())
	}
	return Response{Receiver: t.recv, Value: v, Err: err}
}
