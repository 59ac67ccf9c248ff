package dispatch

// On returns a function that connects a receiver to each of signals with
// opts, and then returns the receiver unchanged.
//
// It is meant for declaring receivers at package level:
//
//	var _ = dispatch.On([]*dispatch.Signal{postSave, postDelete},
//		dispatch.Sender(userModel),
//	)(dispatch.Func(invalidateCache))
func On(signals []*Signal, opts ...Option) func(r Receiver) Receiver {
	return func(r Receiver) Receiver {
		for _, s := range signals {
			s.Connect(r, opts...)
		}
		return r
	}
}
