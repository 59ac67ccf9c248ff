package dispatch

// Event is the interface of any type that can be watched by a [Coroutine].
//
// The following types implement Event: [Notifier] and [Call].
// Any type that embeds [Notifier] also implements Event.
type Event interface {
	addListener(co *Coroutine)
	removeListener(co *Coroutine)
}

// Notifier is a type that implements [Event].
//
// Calling the Notify method of a Notifier, in a [Task] function, resumes
// any [Coroutine] that is watching the Notifier.
//
// A Notifier must not be shared by more than one [Executor].
type Notifier struct {
	listeners map[*Coroutine]struct{}
}

func (n *Notifier) addListener(co *Coroutine) {
	listeners := n.listeners
	if listeners == nil {
		listeners = make(map[*Coroutine]struct{})
		n.listeners = listeners
	}
	listeners[co] = struct{}{}
}

func (n *Notifier) removeListener(co *Coroutine) {
	delete(n.listeners, co)
}

// Notify resumes any [Coroutine] that is watching n.
//
// One should only call this method in a [Task] function.
func (n *Notifier) Notify() {
	for co := range n.listeners {
		co.Resume()
	}
}
