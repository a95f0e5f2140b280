package engine

import (
	"testing"
	"time"

	"go.uber.org/goleak"

	"audiofw/internal/block"
	"audiofw/internal/queue"
)

// countingNode is a minimal node.Concurrent that counts Step calls and
// takes from an input queue with a short timeout so Stop takes effect
// quickly.
type countingNode struct {
	io    IO
	steps int
}

func (n *countingNode) Step() {
	b, ok := n.io.In.Take(10 * time.Millisecond)
	if !ok {
		return
	}
	n.steps++
	n.io.PushOutput(b)
}

func (n *countingNode) Reset() { n.steps = 0 }

func TestWorkerProcessesQueuedBlocks(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := block.NewPool(4, 16, nil)
	in := queue.New(4)
	out := queue.New(4)
	n := &countingNode{io: IO{In: in, Out: out, Pool: pool}}

	w := Start(n, 5, nil)

	b, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	in.Put(b)

	got, ok := out.Take(time.Second)
	if !ok {
		t.Fatal("timed out waiting for processed block")
	}
	pool.Release(got)

	w.Stop()
	w.Wait()
}

func TestWorkerStopWaitDoesNotLeakGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := block.NewPool(2, 16, nil)
	in := queue.New(2)
	n := &countingNode{io: IO{In: in, Pool: pool}}

	w := Start(n, 5, nil)
	time.Sleep(30 * time.Millisecond) // let it spin a few empty cycles
	w.Stop()
	w.Wait()
}

func TestSplitterFanOutIncrementsBeforePut(t *testing.T) {
	pool := block.NewPool(4, 16, nil)
	in := queue.New(1)
	outs := []*queue.Queue{queue.New(1), queue.New(1), queue.New(1)}

	s := NewSplitter(in, 4, pool, 50*time.Millisecond, nil)
	for _, q := range outs {
		if err := s.AddOutput(q); err != nil {
			t.Fatalf("AddOutput: %v", err)
		}
	}

	b, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	in.Put(b)

	s.Step()

	for i, q := range outs {
		got, ok := q.Take(0)
		if !ok {
			t.Fatalf("output %d: expected a block", i)
		}
		if got != b {
			t.Fatalf("output %d: got different block handle", i)
		}
	}

	if got := b.RefCount(); got != int32(len(outs)) {
		t.Errorf("RefCount after fan-out = %d, want %d", got, len(outs))
	}

	for _, q := range outs {
		got, _ := q.Take(0)
		pool.Release(got)
	}
}

func TestSplitterAddOutputFullReturnsErrFull(t *testing.T) {
	pool := block.NewPool(1, 16, nil)
	s := NewSplitter(queue.New(1), 1, pool, time.Millisecond, nil)

	if err := s.AddOutput(queue.New(1)); err != nil {
		t.Fatalf("first AddOutput: %v", err)
	}
	if err := s.AddOutput(queue.New(1)); err == nil {
		t.Fatal("expected error adding beyond maxOuts")
	}
}

func TestSplitterNoOutputsReleasesBlock(t *testing.T) {
	pool := block.NewPool(1, 16, nil)
	in := queue.New(1)
	s := NewSplitter(in, 2, pool, time.Millisecond, nil)

	b, _ := pool.Acquire()
	in.Put(b)
	before := pool.Stats()
	s.Step()
	after := pool.Stats()

	if before.FreeBuffers+1 != after.FreeBuffers {
		t.Errorf("expected the block to be released back to the pool: before=%+v after=%+v", before, after)
	}
}
