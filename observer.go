package dispatch

import "time"

// Mode is the kind of a dispatch.
type Mode int

const (
	ModeSend Mode = iota
	ModeSendRobust
	ModeASend
	ModeASendRobust
)

// String returns the name of m, e.g. "send_robust".
func (m Mode) String() string {
	switch m {
	case ModeSend:
		return "send"
	case ModeSendRobust:
		return "send_robust"
	case ModeASend:
		return "asend"
	case ModeASendRobust:
		return "asend_robust"
	default:
		return "unknown"
	}
}

// Robust reports whether a dispatch of mode m carries on past failing
// receivers.
func (m Mode) Robust() bool {
	return m == ModeSendRobust || m == ModeASendRobust
}

// An Observer is told what a [Signal] does.
//
// Methods may be called with the Signal's lock held; they must not call
// methods of the Signal other than Name.
type Observer interface {
	// ObserveRegistry is called whenever the number of receivers connected
	// changes, with the Signal's lock held.
	ObserveRegistry(s *Signal, receivers int)
	// ObserveDispatch is called when a dispatch starts, with the number of
	// receivers it is going to call.
	ObserveDispatch(s *Signal, mode Mode, receivers int)
	// ObserveReceiver is called when a receiver returns, with the error it
	// failed with, if any.
	ObserveReceiver(s *Signal, mode Mode, err error, elapsed time.Duration)
}
