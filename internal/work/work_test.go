package work

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitPending(t *testing.T, m *Manager, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for m.Pending() < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d results finished", m.Pending(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestUpdateDeliversOnePerCall(t *testing.T) {
	m := New(2, 8, 1, nil)
	defer m.Stop()

	var delivered []int
	for i := 0; i < 3; i++ {
		err := m.Send(Request{
			Name: "square",
			Do:   func(context.Context) (any, error) { return i * i, nil },
			Done: func(v any, err error) { delivered = append(delivered, v.(int)) },
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	waitPending(t, m, 3)

	for i := 1; i <= 3; i++ {
		if n := m.Update(); n != 1 {
			t.Errorf("update %d delivered %d results", i, n)
		}
		if len(delivered) != i {
			t.Errorf("after update %d got %d results", i, len(delivered))
		}
	}
	if n := m.Update(); n != 0 {
		t.Errorf("empty update delivered %d", n)
	}

	sum := 0
	for _, v := range delivered {
		sum += v
	}
	if sum != 0+1+4 {
		t.Errorf("results = %v", delivered)
	}
}

func TestErrorsReachDone(t *testing.T) {
	m := New(1, 1, 4, nil)
	defer m.Stop()

	boom := errors.New("boom")
	var got error
	m.Send(Request{
		Name: "fail",
		Do:   func(context.Context) (any, error) { return nil, boom },
		Done: func(_ any, err error) { got = err },
	})
	waitPending(t, m, 1)
	m.Update()
	if !errors.Is(got, boom) {
		t.Errorf("Done got %v", got)
	}
}

func TestQueueFullAndStop(t *testing.T) {
	m := New(1, 1, 1, nil)

	release := make(chan struct{})
	var started atomic.Int32
	block := Request{
		Name: "block",
		Do: func(ctx context.Context) (any, error) {
			started.Add(1)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil, ctx.Err()
		},
	}

	// one running, one queued, then the queue is full
	if err := m.Send(block); err != nil {
		t.Fatal(err)
	}
	for started.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	if err := m.Send(block); err != nil {
		t.Fatal(err)
	}
	full := false
	for i := 0; i < 3; i++ {
		if errors.Is(m.Send(block), ErrQueueFull) {
			full = true
		}
	}
	if !full {
		t.Error("expected ErrQueueFull")
	}

	m.Stop()
	close(release)
	if err := m.Send(block); !errors.Is(err, ErrStopped) {
		t.Errorf("send after stop: %v", err)
	}
	if m.Pending() != 0 {
		t.Errorf("stopped manager kept %d results", m.Pending())
	}
}
