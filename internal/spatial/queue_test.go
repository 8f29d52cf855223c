package spatial

import (
	"sync"
	"testing"
)

func TestCommandQueueFIFOSingleProducer(t *testing.T) {
	q := NewCommandQueue(4)
	for i := 0; i < 4; i++ {
		p := &Proxy{}
		if !q.TryPush(Command{Kind: CommandUpdate, Proxy: p, AABB: AABB{X: int32(i)}}) {
			t.Fatalf("push %d: queue unexpectedly full", i)
		}
	}
	if q.TryPush(Command{}) {
		t.Fatalf("push into full queue should fail")
	}

	for i := 0; i < 4; i++ {
		cmd, ok := q.TryPop()
		if !ok {
			t.Fatalf("pop %d: queue unexpectedly empty", i)
		}
		if cmd.AABB.X != int32(i) {
			t.Fatalf("pop %d: got AABB.X=%d, want %d (FIFO order)", i, cmd.AABB.X, i)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Fatalf("pop from empty queue should fail")
	}
}

func TestCommandQueueRoundsCapacityUpToPowerOfTwo(t *testing.T) {
	q := NewCommandQueue(5)
	if got := q.mask + 1; got != 8 {
		t.Fatalf("capacity = %d, want 8", got)
	}
}

func TestCommandQueueDrain(t *testing.T) {
	q := NewCommandQueue(8)
	for i := 0; i < 5; i++ {
		q.TryPush(Command{Kind: CommandRemove})
	}
	buf := make([]Command, 3)
	n := q.Drain(buf)
	if n != 3 {
		t.Fatalf("Drain filled %d of 3, want 3", n)
	}
	if q.Len() != 2 {
		t.Fatalf("Len after partial drain = %d, want 2", q.Len())
	}
	n = q.Drain(buf)
	if n != 2 {
		t.Fatalf("second Drain = %d, want 2", n)
	}
}

func TestCommandQueueConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 500
	q := NewCommandQueue(producers * perProducer)

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(tag int32) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				for !q.TryPush(Command{Kind: CommandUpdate, AABB: AABB{X: tag}}) {
				}
			}
		}(int32(p))
	}
	wg.Wait()

	got := 0
	for {
		_, ok := q.TryPop()
		if !ok {
			break
		}
		got++
	}
	if want := producers * perProducer; got != want {
		t.Fatalf("drained %d commands, want %d", got, want)
	}
}
