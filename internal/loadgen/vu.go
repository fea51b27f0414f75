// Package loadgen implements the virtual-user execution engine: the
// user run loop, the product task set, and the pool that ramps users
// up and down.
package loadgen

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wrussell84/stampede/internal/task"
)

// VUState represents the lifecycle state of a virtual user.
type VUState int32

const (
	// VUStateIdle indicates the user is ready but not currently in a cycle.
	VUStateIdle VUState = iota
	// VUStatePacing indicates the user is waiting out its pacing interval.
	VUStatePacing
	// VUStateActing indicates the user is executing a task.
	VUStateActing
	// VUStateStopping indicates the user has been asked to stop.
	VUStateStopping
	// VUStateStopped indicates the user has fully stopped.
	VUStateStopped
)

func (s VUState) String() string {
	switch s {
	case VUStateIdle:
		return "idle"
	case VUStatePacing:
		return "pacing"
	case VUStateActing:
		return "acting"
	case VUStateStopping:
		return "stopping"
	case VUStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// VirtualUser is a single simulated client.
//
// Each user owns its catalog and random source and loops: pace, pick a
// task, execute it, repeat. A stop request takes effect at the next
// pacing or pre-action check; an in-flight action is never torn.
type VirtualUser struct {
	// ID identifies this user in logs.
	ID int

	catalog *task.Catalog
	rng     *rand.Rand
	minWait time.Duration
	maxWait time.Duration
	log     *slog.Logger

	state  atomic.Int32
	cycles atomic.Int64

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
	doneOnce sync.Once
}

// NewVirtualUser creates a virtual user. The catalog and rng must be
// owned by this user; sharing an rng across users is not safe.
func NewVirtualUser(id int, catalog *task.Catalog, rng *rand.Rand, minWait, maxWait time.Duration, log *slog.Logger) *VirtualUser {
	if log == nil {
		log = slog.Default()
	}
	return &VirtualUser{
		ID:      id,
		catalog: catalog,
		rng:     rng,
		minWait: minWait,
		maxWait: maxWait,
		log:     log,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (vu *VirtualUser) State() VUState {
	return VUState(vu.state.Load())
}

// Cycles returns the number of completed act cycles.
func (vu *VirtualUser) Cycles() int64 {
	return vu.cycles.Load()
}

// Run executes the user loop until the context is cancelled or a stop
// is requested. It always marks the user stopped on exit.
func (vu *VirtualUser) Run(ctx context.Context) {
	defer vu.MarkStopped()

	for {
		if vu.stopRequested(ctx) {
			return
		}
		if !vu.pace(ctx) {
			return
		}
		if vu.stopRequested(ctx) {
			return
		}
		vu.act(ctx)
		vu.cycles.Add(1)
	}
}

// stopRequested reports whether the user should exit, without blocking.
func (vu *VirtualUser) stopRequested(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-vu.stopCh:
		return true
	default:
		return VUState(vu.state.Load()) == VUStateStopping
	}
}

// pace sleeps for a duration drawn uniformly from [minWait, maxWait].
// Returns false when interrupted by a stop request or cancellation.
func (vu *VirtualUser) pace(ctx context.Context) bool {
	vu.state.Store(int32(VUStatePacing))

	wait := vu.minWait
	if diff := vu.maxWait - vu.minWait; diff > 0 {
		wait += time.Duration(vu.rng.Int63n(int64(diff) + 1))
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-vu.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

// act picks a task and runs it to completion. A stop arriving during
// the action does not interrupt it; the loop exits on the next check.
func (vu *VirtualUser) act(ctx context.Context) {
	vu.state.Store(int32(VUStateActing))

	t, err := vu.catalog.Pick(vu.rng)
	if err != nil {
		vu.log.Error("task selection failed", "vu", vu.ID, "error", err)
		return
	}

	if err := t.Action(ctx); err != nil {
		// Task failures are recorded by the action itself; the error is
		// for operator visibility only. The user carries on.
		vu.log.Debug("task error", "vu", vu.ID, "task", t.Name, "error", err)
	}

	vu.state.CompareAndSwap(int32(VUStateActing), int32(VUStateIdle))
}

// RequestStop signals the user to stop after its current action, if
// any, completes.
func (vu *VirtualUser) RequestStop() {
	if VUState(vu.state.Load()) == VUStateStopped {
		return
	}
	vu.stopOnce.Do(func() {
		vu.state.Store(int32(VUStateStopping))
		close(vu.stopCh)
	})
}

// WaitForStop waits for the user to stop. Returns false on timeout.
func (vu *VirtualUser) WaitForStop(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-vu.doneCh:
		return true
	case <-timer.C:
		return false
	}
}

// MarkStopped marks the user fully stopped. Called when the run loop
// exits.
func (vu *VirtualUser) MarkStopped() {
	vu.state.Store(int32(VUStateStopped))
	vu.doneOnce.Do(func() {
		close(vu.doneCh)
	})
}
