package loadgen

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wrussell84/stampede/internal/task"
)

func testCatalog(t *testing.T, action task.Action) *task.Catalog {
	t.Helper()
	c := task.NewCatalog()
	if err := c.Register("test", 1, action); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestVUState_String(t *testing.T) {
	tests := []struct {
		state VUState
		want  string
	}{
		{VUStateIdle, "idle"},
		{VUStatePacing, "pacing"},
		{VUStateActing, "acting"},
		{VUStateStopping, "stopping"},
		{VUStateStopped, "stopped"},
		{VUState(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVirtualUser_RunsCycles(t *testing.T) {
	var actions atomic.Int64
	catalog := testCatalog(t, func(ctx context.Context) error {
		actions.Add(1)
		return nil
	})

	rng := rand.New(rand.NewSource(1))
	vu := NewVirtualUser(1, catalog, rng, time.Millisecond, 2*time.Millisecond, nil)

	done := make(chan struct{})
	go func() {
		vu.Run(context.Background())
		close(done)
	}()

	// Let it run a few cycles, then stop.
	deadline := time.After(2 * time.Second)
	for actions.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("virtual user made no progress")
		case <-time.After(time.Millisecond):
		}
	}
	vu.RequestStop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("virtual user did not stop")
	}

	if vu.State() != VUStateStopped {
		t.Errorf("State() = %v, want stopped", vu.State())
	}
	if vu.Cycles() < 3 {
		t.Errorf("Cycles() = %d, want >= 3", vu.Cycles())
	}
}

func TestVirtualUser_StopDuringPacingIsImmediate(t *testing.T) {
	catalog := testCatalog(t, func(ctx context.Context) error { return nil })

	rng := rand.New(rand.NewSource(2))
	// Long pacing: the stop must interrupt the wait, not sit it out.
	vu := NewVirtualUser(1, catalog, rng, time.Minute, time.Minute, nil)

	done := make(chan struct{})
	go func() {
		vu.Run(context.Background())
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	vu.RequestStop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop during pacing did not take effect")
	}

	if vu.Cycles() != 0 {
		t.Errorf("Cycles() = %d, want 0 (stopped before first action)", vu.Cycles())
	}
}

func TestVirtualUser_StopNeverTearsAnAction(t *testing.T) {
	started := make(chan struct{})
	var completed atomic.Int64
	catalog := testCatalog(t, func(ctx context.Context) error {
		close(started)
		time.Sleep(100 * time.Millisecond)
		completed.Add(1)
		return nil
	})

	rng := rand.New(rand.NewSource(3))
	vu := NewVirtualUser(1, catalog, rng, time.Millisecond, time.Millisecond, nil)

	done := make(chan struct{})
	go func() {
		vu.Run(context.Background())
		close(done)
	}()

	<-started
	vu.RequestStop() // lands mid-action

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("virtual user did not stop")
	}

	if completed.Load() != 1 {
		t.Errorf("in-flight action completed %d times, want exactly 1", completed.Load())
	}
	if vu.Cycles() != 1 {
		t.Errorf("Cycles() = %d, want 1", vu.Cycles())
	}
}

func TestVirtualUser_ContextCancellation(t *testing.T) {
	catalog := testCatalog(t, func(ctx context.Context) error { return nil })

	rng := rand.New(rand.NewSource(4))
	vu := NewVirtualUser(1, catalog, rng, time.Minute, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		vu.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("context cancellation did not stop the virtual user")
	}
}

func TestVirtualUser_WaitForStop(t *testing.T) {
	catalog := testCatalog(t, func(ctx context.Context) error { return nil })
	vu := NewVirtualUser(1, catalog, rand.New(rand.NewSource(5)), 0, 0, nil)

	if vu.WaitForStop(10 * time.Millisecond) {
		t.Error("WaitForStop() reported stopped before the user ran")
	}

	vu.MarkStopped()
	if !vu.WaitForStop(10 * time.Millisecond) {
		t.Error("WaitForStop() timed out after MarkStopped")
	}
}

func TestVirtualUser_RequestStopIdempotent(t *testing.T) {
	catalog := testCatalog(t, func(ctx context.Context) error { return nil })
	vu := NewVirtualUser(1, catalog, rand.New(rand.NewSource(6)), 0, 0, nil)

	vu.RequestStop()
	vu.RequestStop() // must not panic on a closed channel

	if vu.State() != VUStateStopping {
		t.Errorf("State() = %v, want stopping", vu.State())
	}
}
