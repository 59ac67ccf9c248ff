package dispatch_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/b97tsk/dispatch"
	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
)

var errBoom = errors.New("boom")

func fail(err error) dispatch.Func {
	return func(m *dispatch.Message) (any, error) { return nil, err }
}

func record(calls *[]string, name string) dispatch.Func {
	return func(m *dispatch.Message) (any, error) {
		*calls = append(*calls, name)
		return name, nil
	}
}

func TestSend(t *testing.T) {
	t.Run("NoReceivers", func(t *testing.T) {
		var s dispatch.Signal

		responses, err := s.Send(&model{"obj"}, nil)
		if responses != nil || err != nil {
			t.Errorf("Send() = %v, %v, want nil, nil", responses, err)
		}
		if responses := s.SendRobust(&model{"obj"}, nil); responses != nil {
			t.Errorf("SendRobust() = %v, want nil", responses)
		}
	})
	t.Run("Message", func(t *testing.T) {
		var s dispatch.Signal

		a := &model{"a"}

		var got *dispatch.Message

		s.Connect(dispatch.Func(func(m *dispatch.Message) (any, error) {
			got = m
			return nil, nil
		}))

		if _, err := s.Send(a, dispatch.Args{"created": true}); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if got.Signal != &s || got.Sender != a || got.Arg("created") != true || got.Arg("missing") != nil {
			t.Errorf("Send() called receiver with %+v", got)
		}
	})
	t.Run("Receiver", func(t *testing.T) {
		var s dispatch.Signal

		r := dispatch.Func(receiveName)
		s.Connect(r)

		responses, _ := s.Send(nil, nil)
		if len(responses) != 1 || responses[0].Receiver == nil {
			t.Fatalf("Send() = %v, want one response with a receiver", responses)
		}
		if ok, _ := s.Disconnect(responses[0].Receiver); !ok {
			t.Error("Disconnect(Response.Receiver) = false, want true")
		}
	})
	t.Run("FailFast", func(t *testing.T) {
		var s dispatch.Signal

		var calls []string

		s.Connect(record(&calls, "r1"))
		s.Connect(fail(errBoom))
		s.Connect(dispatch.Func(func(m *dispatch.Message) (any, error) {
			calls = append(calls, "r3")
			return nil, nil
		}))

		responses, err := s.Send(nil, nil)
		if !errors.Is(err, errBoom) {
			t.Errorf("Send() error = %v, want %v", err, errBoom)
		}
		if responses != nil {
			t.Errorf("Send() = %v, want nil", values(responses))
		}
		if diff := cmp.Diff([]string{"r1"}, calls); diff != "" {
			t.Errorf("calls mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("Panic", func(t *testing.T) {
		var s dispatch.Signal

		s.Connect(dispatch.Func(func(m *dispatch.Message) (any, error) { panic("oops") }))

		defer func() {
			if v := recover(); v != "oops" {
				t.Errorf("recover() = %v, want \"oops\"", v)
			}
		}()

		s.Send(nil, nil)
		t.Error("Send() did not panic")
	})
}

func TestSendRobust(t *testing.T) {
	for pos := range 3 {
		t.Run(fmt.Sprintf("ErrorAt%d", pos), func(t *testing.T) {
			var s dispatch.Signal

			var want []any

			for i := range 3 {
				if i == pos {
					s.Connect(fail(errBoom), dispatch.DispatchUID(i))
					want = append(want, "error: boom")
					continue
				}
				s.Connect(constant(i), dispatch.DispatchUID(i))
				want = append(want, i)
			}

			responses := s.SendRobust(nil, nil)
			if diff := cmp.Diff(want, values(responses)); diff != "" {
				t.Errorf("SendRobust() mismatch (-want +got):\n%s", diff)
			}
			if !errors.Is(responses[pos].Err, errBoom) {
				t.Errorf("responses[%d].Err = %v, want %v", pos, responses[pos].Err, errBoom)
			}
		})
	}
	t.Run("Panic", func(t *testing.T) {
		s := dispatch.New(dispatch.WithName("robust"), dispatch.WithLogger(testr.New(t)))

		s.Connect(dispatch.Func(func(m *dispatch.Message) (any, error) { panic(errBoom) }))
		s.Connect(constant("after"))

		responses := s.SendRobust(nil, nil)
		if len(responses) != 2 {
			t.Fatalf("SendRobust() = %v, want 2 responses", values(responses))
		}

		var pe *dispatch.PanicError
		if !errors.As(responses[0].Err, &pe) {
			t.Fatalf("responses[0].Err = %v, want a *PanicError", responses[0].Err)
		}
		if pe.Value != errBoom || len(pe.Stack) == 0 {
			t.Errorf("PanicError = %v, want value %v with a stack", pe, errBoom)
		}
		if !errors.Is(responses[0].Err, errBoom) {
			t.Error("errors.Is(PanicError, errBoom) = false, want true")
		}
		if responses[1].Value != "after" {
			t.Errorf("responses[1].Value = %v, want \"after\"", responses[1].Value)
		}
	})
}

func TestSendAsync(t *testing.T) {
	t.Run("Go", func(t *testing.T) {
		var s dispatch.Signal

		s.Connect(constant(1))
		s.Connect(dispatch.AsyncFunc(func(m *dispatch.Message) dispatch.Task {
			return dispatch.Go(func() (any, error) { return 2 * m.Arg("x").(int), nil })
		}))
		s.Connect(constant(3), dispatch.DispatchUID(3))

		responses, err := s.Send(nil, dispatch.Args{"x": 1})
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if diff := cmp.Diff([]any{1, 2, 3}, values(responses)); diff != "" {
			t.Errorf("Send() mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("Fail", func(t *testing.T) {
		var s dispatch.Signal

		s.Connect(dispatch.AsyncFunc(func(m *dispatch.Message) dispatch.Task {
			return dispatch.Sleep(0).Then(func(co *dispatch.Coroutine) dispatch.Result {
				return co.Fail(errBoom)
			})
		}))

		if _, err := s.Send(nil, nil); !errors.Is(err, errBoom) {
			t.Errorf("Send() error = %v, want %v", err, errBoom)
		}

		responses := s.SendRobust(nil, nil)
		if diff := cmp.Diff([]any{"error: boom"}, values(responses)); diff != "" {
			t.Errorf("SendRobust() mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("Panic", func(t *testing.T) {
		var s dispatch.Signal

		s.Connect(dispatch.AsyncFunc(func(m *dispatch.Message) dispatch.Task {
			return dispatch.Go(func() (any, error) { return nil, nil }).Then(dispatch.Do(func() { panic("oops") }))
		}))

		var pe *dispatch.PanicError
		if responses := s.SendRobust(nil, nil); len(responses) != 1 || !errors.As(responses[0].Err, &pe) || pe.Value != "oops" {
			t.Errorf("SendRobust() = %v, want a *PanicError", values(responses))
		}

		defer func() {
			if v := recover(); v != "oops" {
				t.Errorf("recover() = %v, want \"oops\"", v)
			}
		}()

		s.Send(nil, nil)
		t.Error("Send() did not panic")
	})
	t.Run("GoPanic", func(t *testing.T) {
		var s dispatch.Signal

		s.Connect(dispatch.AsyncFunc(func(m *dispatch.Message) dispatch.Task {
			return dispatch.Go(func() (any, error) { panic("oops") })
		}))

		// Go recovers the panic of its goroutine into an error.
		_, err := s.Send(nil, nil)

		var pe *dispatch.PanicError
		if !errors.As(err, &pe) || pe.Value != "oops" {
			t.Errorf("Send() error = %v, want a *PanicError", err)
		}
	})
	t.Run("NilTask", func(t *testing.T) {
		var s dispatch.Signal

		s.Connect(dispatch.AsyncFunc(func(m *dispatch.Message) dispatch.Task { return nil }))

		if responses := s.SendRobust(nil, nil); len(responses) != 1 || responses[0].Err == nil {
			t.Errorf("SendRobust() = %v, want an error", values(responses))
		}
	})
	t.Run("Method", func(t *testing.T) {
		var s dispatch.Signal

		c := &counter{name: "c"}

		s.Connect(dispatch.AsyncMethod(c, func(c *counter, m *dispatch.Message) dispatch.Task {
			return func(co *dispatch.Coroutine) dispatch.Result {
				c.calls++
				return co.Return(c.name)
			}
		}))

		responses, _ := s.Send(nil, nil)
		if diff := cmp.Diff([]any{"c"}, values(responses)); diff != "" {
			t.Errorf("Send() mismatch (-want +got):\n%s", diff)
		}
		if c.calls != 1 {
			t.Errorf("calls = %d, want 1", c.calls)
		}
	})
}
