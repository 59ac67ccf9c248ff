package dispatch

import "github.com/go-logr/logr"

// An Option configures [Signal.Connect], [Signal.Disconnect] or [On].
type Option func(*options)

type options struct {
	sender any
	weak   bool
	uid    any
	byName bool
}

func newOptions(opts []Option) options {
	o := options{sender: Any, weak: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Sender restricts a receiver to messages sent by sender.
// The default is [Any]. Sender(nil) is the same as Sender(Any).
//
// Senders are compared with ==, except maps, slices and funcs, which match
// only themselves.
func Sender(sender any) Option {
	return func(o *options) {
		if sender == nil {
			sender = Any
		}
		o.sender = sender
	}
}

// Weak sets whether a Signal holds a receiver weakly. The default is true.
// It has an effect on [Method] and [AsyncMethod] receivers only, and is
// ignored by [Signal.Disconnect].
func Weak(weak bool) Option {
	return func(o *options) {
		o.weak = weak
	}
}

// DispatchUID identifies a receiver by key instead of by identity.
// key must be comparable. A nil key has no effect.
//
// With DispatchUID, [Signal.Disconnect] accepts a nil receiver.
func DispatchUID(key any) Option {
	return func(o *options) {
		o.uid = key
	}
}

// KeyByName identifies a receiver by the fully qualified name of its function
// instead of by identity. DispatchUID takes precedence over it.
func KeyByName() Option {
	return func(o *options) {
		o.byName = true
	}
}

// A SignalOption configures a [Signal] created by [New].
type SignalOption func(*Signal)

// WithName sets the name of a Signal, used in logs and metrics.
func WithName(name string) SignalOption {
	return func(s *Signal) {
		s.name = name
	}
}

// WithLogger sets the logger of a Signal. The default discards everything.
//
// Registry changes are logged at V(1). Failures caught by SendRobust and
// ASendRobust are logged as errors.
func WithLogger(logger logr.Logger) SignalOption {
	return func(s *Signal) {
		s.logger = logger
	}
}

// WithObserver sets an [Observer] that a Signal reports to.
func WithObserver(o Observer) SignalOption {
	return func(s *Signal) {
		s.observer = o
	}
}
