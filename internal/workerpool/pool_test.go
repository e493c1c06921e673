package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devswarm/devswarm/internal/errors"
)

func TestPool_SubmitRunsFunc(t *testing.T) {
	p := New(2)
	ctx := context.Background()

	res := <-p.Submit(ctx, "job-1", func(ctx context.Context) (any, error) {
		return 42, nil
	})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Value != 42 {
		t.Errorf("Value = %v, want 42", res.Value)
	}
	if res.ID != "job-1" {
		t.Errorf("ID = %q, want job-1", res.ID)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	p := New(2)
	ctx := context.Background()

	var running atomic.Int32
	var maxRunning atomic.Int32
	block := make(chan struct{})

	submit := func(id string) <-chan Result {
		return p.Submit(ctx, id, func(ctx context.Context) (any, error) {
			n := running.Add(1)
			for {
				old := maxRunning.Load()
				if n <= old || maxRunning.CompareAndSwap(old, n) {
					break
				}
			}
			<-block
			running.Add(-1)
			return nil, nil
		})
	}

	chans := make([]<-chan Result, 5)
	for i := range 5 {
		chans[i] = submit("job")
		_ = i
	}

	time.Sleep(50 * time.Millisecond)
	if maxRunning.Load() > 2 {
		t.Errorf("maxRunning = %d, want <= 2", maxRunning.Load())
	}

	close(block)
	for _, c := range chans {
		<-c
	}
}

func TestPool_SubmitTimeoutFailsWithTimeoutClass(t *testing.T) {
	p := New(1)
	ctx := context.Background()

	res := <-p.SubmitTimeout(ctx, 10*time.Millisecond, "slow-job", func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	if res.Err == nil {
		t.Fatal("expected a timeout error")
	}
	if errors.Classify(res.Err) != errors.ClassTimeout {
		t.Errorf("Classify(err) = %v, want ClassTimeout", errors.Classify(res.Err))
	}
}

func TestPool_SetSizeResizes(t *testing.T) {
	p := New(1)
	if p.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", p.Size())
	}
	p.SetSize(4)
	if p.Size() != 4 {
		t.Fatalf("Size() = %d, want 4", p.Size())
	}
}

func TestPool_WaitBlocksUntilAllJobsReturn(t *testing.T) {
	p := New(3)
	ctx := context.Background()

	var completed atomic.Int32
	for i := range 10 {
		i := i
		go func() {
			<-p.Submit(ctx, "job", func(ctx context.Context) (any, error) {
				completed.Add(1)
				return i, nil
			})
		}()
	}

	time.Sleep(200 * time.Millisecond)
	p.Wait()
	if completed.Load() != 10 {
		t.Errorf("completed = %d, want 10", completed.Load())
	}
}

func TestPool_ContextCancellationPropagates(t *testing.T) {
	p := New(1)
	ctx, cancel := context.WithCancel(context.Background())

	// Occupy the single slot so the next submission queues at the
	// semaphore and observes cancellation while waiting.
	block := make(chan struct{})
	first := p.Submit(context.Background(), "first", func(ctx context.Context) (any, error) {
		<-block
		return nil, nil
	})

	second := p.Submit(ctx, "second", func(ctx context.Context) (any, error) {
		return nil, nil
	})

	cancel()
	res := <-second
	if res.Err == nil {
		t.Fatal("expected cancellation error for queued submission")
	}

	close(block)
	<-first
}
