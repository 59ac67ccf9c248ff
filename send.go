package dispatch

import "time"

// Args carries the named arguments of a message.
type Args map[string]any

// A Message is what receivers are called with.
//
// The same Message is passed to every receiver of a dispatch; receivers must
// not modify it.
type Message struct {
	Signal *Signal
	Sender any
	Args   Args
}

// Arg returns the named argument name, or nil if absent.
func (m *Message) Arg(name string) any {
	return m.Args[name]
}

// A Response is what a receiver responded with.
// For robust dispatches, Err holds the error the receiver failed with, and
// a panic is recovered into a [*PanicError].
type Response struct {
	Receiver Receiver
	Value    any
	Err      error
}

// Send sends a message from sender to the receivers of s, and returns their
// responses in order.
//
// If a receiver fails, Send stops and returns its error; no responses are
// returned and no more receivers are called. A panic in a receiver propagates
// to the caller.
//
// An asynchronous receiver is run on a private [Executor] until it ends;
// Send blocks in the meantime.
func (s *Signal) Send(sender any, args Args) ([]Response, error) {
	return s.send(ModeSend, sender, args)
}

// SendRobust sends a message from sender to the receivers of s, and returns
// their responses in order.
//
// Every receiver is called regardless of failures of others. A failure of
// a receiver, including a panic, is recorded in its response and logged.
//
// Like [Signal.Send], SendRobust runs asynchronous receivers until they end.
func (s *Signal) SendRobust(sender any, args Args) []Response {
	responses, _ := s.send(ModeSendRobust, sender, args)
	return responses
}

func (s *Signal) send(mode Mode, sender any, args Args) ([]Response, error) {
	live := s.snapshot(sender)

	if s.observer != nil {
		s.observer.ObserveDispatch(s, mode, len(live))
	}

	if len(live) == 0 {
		return nil, nil
	}

	m := &Message{Signal: s, Sender: sender, Args: args}
	robust := mode.Robust()
	responses := make([]Response, 0, len(live))

	for _, t := range live {
		start := time.Now()
		v, err := invoke(t, m, robust)
		responses = append(responses, s.done(mode, t, v, err, start))
		if err != nil && !robust {
			return nil, err
		}
	}

	return responses, nil
}

func invoke(t target, m *Message, robust bool) (any, error) {
	if t.call != nil {
		return invokeCall(t, m, robust)
	}

	task, err := prepare(t, m, robust)
	if err != nil {
		return nil, err
	}

	co := block(task)

	if co.recovered != nil && !robust {
		panic(co.recovered.Value)
	}

	return co.Value(), co.Err()
}

func invokeCall(t target, m *Message, robust bool) (any, error) {
	if robust {
		return catch(func() (any, error) { return t.call(m) })
	}
	return t.call(m)
}

// prepare asks an asynchronous receiver for its task.
func prepare(t target, m *Message, robust bool) (task Task, err error) {
	if !robust {
		return must(t.task(m)), nil
	}
	_, err = catch(func() (any, error) {
		task = must(t.task(m))
		return nil, nil
	})
	return task, err
}

// block runs t in a root coroutine on a private executor, on the current
// goroutine, until the coroutine ends. The coroutine recovers panics.
func block(t Task) *Coroutine {
	var e Executor

	wake := make(chan struct{}, 1)

	e.Autorun(func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	})

	co := newCoroutine(&e, t, nil)
	co.flag |= flagRecovering
	e.resumeCoroutine(co)

	for !co.Ended() {
		<-wake
		e.Run()
	}

	return co
}
