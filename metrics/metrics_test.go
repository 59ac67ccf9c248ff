package metrics_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/b97tsk/dispatch"
	"github.com/b97tsk/dispatch/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(metrics.WithRegistry(reg))

	s := dispatch.New(dispatch.WithName("user_saved"), dispatch.WithObserver(c))

	s.Connect(dispatch.Func(func(m *dispatch.Message) (any, error) { return "ok", nil }))
	s.Connect(dispatch.Func(func(m *dispatch.Message) (any, error) { return nil, errors.New("failed") }))
	s.Connect(dispatch.Func(func(m *dispatch.Message) (any, error) { panic("oops") }))

	s.SendRobust(nil, nil)

	const want = `
# HELP dispatch_dispatches_total Total number of messages sent through a signal
# TYPE dispatch_dispatches_total counter
dispatch_dispatches_total{mode="send_robust",signal="user_saved"} 1
# HELP dispatch_receiver_calls_total Total number of receiver calls
# TYPE dispatch_receiver_calls_total counter
dispatch_receiver_calls_total{mode="send_robust",signal="user_saved",status="error"} 1
dispatch_receiver_calls_total{mode="send_robust",signal="user_saved",status="ok"} 1
dispatch_receiver_calls_total{mode="send_robust",signal="user_saved",status="panic"} 1
# HELP dispatch_receivers Number of receivers connected to a signal
# TYPE dispatch_receivers gauge
dispatch_receivers{signal="user_saved"} 3
`

	err := testutil.GatherAndCompare(reg, strings.NewReader(want),
		"dispatch_dispatches_total",
		"dispatch_receiver_calls_total",
		"dispatch_receivers",
	)
	if err != nil {
		t.Error(err)
	}

	n, err := testutil.GatherAndCount(reg, "dispatch_receiver_duration_seconds")
	if err != nil || n != 1 {
		t.Errorf("GatherAndCount() = %d, %v, want 1, nil", n, err)
	}
}

func TestCollectorOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(
		metrics.WithRegistry(reg),
		metrics.WithNamespace("app"),
		metrics.WithSubsystem("signals"),
		metrics.WithConstLabels(prometheus.Labels{"service": "api"}),
		metrics.WithBuckets([]float64{0.001, 0.01}),
	)

	s := dispatch.New(dispatch.WithName("user_deleted"), dispatch.WithObserver(c))

	s.Connect(dispatch.Func(func(m *dispatch.Message) (any, error) { return nil, nil }))

	if ok, _ := s.Disconnect(dispatch.Func(func(m *dispatch.Message) (any, error) { return nil, nil })); ok {
		t.Fatal("Disconnect() = true for a receiver never connected")
	}

	s.Send(nil, nil)
	s.Send(nil, nil)

	const want = `
# HELP app_signals_dispatches_total Total number of messages sent through a signal
# TYPE app_signals_dispatches_total counter
app_signals_dispatches_total{mode="send",service="api",signal="user_deleted"} 2
# HELP app_signals_receivers Number of receivers connected to a signal
# TYPE app_signals_receivers gauge
app_signals_receivers{service="api",signal="user_deleted"} 1
`

	err := testutil.GatherAndCompare(reg, strings.NewReader(want),
		"app_signals_dispatches_total",
		"app_signals_receivers",
	)
	if err != nil {
		t.Error(err)
	}
}

func TestCollectorDuplicate(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(metrics.WithRegistry(reg))

	defer func() {
		if recover() == nil {
			t.Error("New() did not panic on a second registration")
		}
	}()

	metrics.New(metrics.WithRegistry(reg))
}
