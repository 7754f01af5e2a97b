package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := New(2)
	defer p.Shutdown()

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		if !p.Submit(func(context.Context) { ran.Add(1) }) {
			t.Fatal("submit rejected on a live pool")
		}
	}
	p.Wait()

	if got := ran.Load(); got != 10 {
		t.Errorf("expected 10 tasks run, got %d", got)
	}
}

func TestPool_WaitIsDeterministic(t *testing.T) {
	p := New(1)
	defer p.Shutdown()

	done := make(chan struct{})
	p.Submit(func(context.Context) { close(done) })
	p.Wait()

	select {
	case <-done:
	default:
		t.Error("Wait returned before submitted task finished")
	}
}

func TestPool_SubmitAfterShutdownIsRejected(t *testing.T) {
	p := New(1)
	p.Shutdown()

	if p.Submit(func(context.Context) {}) {
		t.Error("submit must be rejected after shutdown")
	}
}

func TestPool_PanickingTaskDoesNotKillWorkers(t *testing.T) {
	p := New(1)
	defer p.Shutdown()

	p.Submit(func(context.Context) { panic("boom") })
	p.Wait()

	var ran atomic.Bool
	p.Submit(func(context.Context) { ran.Store(true) })
	p.Wait()

	if !ran.Load() {
		t.Error("worker died after a panicking task")
	}
}

func TestPool_ShutdownReleasesSubmitBlockedOnFullQueue(t *testing.T) {
	p := New(1)

	// Gate the single worker, then fill the queue so the next Submit
	// blocks in the channel send.
	gate := make(chan struct{})
	p.Submit(func(context.Context) { <-gate })
	for i := 0; i < cap(p.tasks); i++ {
		p.Submit(func(context.Context) {})
	}

	submitResult := make(chan bool, 1)
	go func() {
		submitResult <- p.Submit(func(context.Context) {})
	}()

	shutdownDone := make(chan struct{})
	go func() {
		p.Shutdown()
		close(shutdownDone)
	}()

	select {
	case ok := <-submitResult:
		if ok {
			t.Error("submit during shutdown reported success")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("submit blocked on a full queue was not released by shutdown")
	}

	close(gate)
	select {
	case <-shutdownDone:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not finish draining after the worker unblocked")
	}
}

func TestPool_ShutdownDrainsQueuedTasks(t *testing.T) {
	p := New(1)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		p.Submit(func(context.Context) { ran.Add(1) })
	}
	p.Shutdown()

	if got := ran.Load(); got != 5 {
		t.Errorf("expected all queued tasks drained, got %d", got)
	}
}
