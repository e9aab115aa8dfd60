package queue

import (
	"sync"
	"testing"
)

// testStep is a small record standing in for a queued step row
type testStep struct {
	Episode uint
	Step    uint
}

func TestQueue_New(t *testing.T) {
	q := New[testStep]()
	if q == nil {
		t.Fatal("expected non-nil queue")
	}
	if !q.Empty() {
		t.Error("expected empty queue")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestQueue_Push(t *testing.T) {
	q := New[testStep]()

	q.Push(testStep{Episode: 1, Step: 1})
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}

	q.Push(testStep{Step: 2}, testStep{Step: 3})
	if q.Len() != 3 {
		t.Errorf("expected length 3, got %d", q.Len())
	}
}

func TestQueue_PopN(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3, 4, 5)

	batch := q.PopN(2)
	if len(batch) != 2 || batch[0] != 1 || batch[1] != 2 {
		t.Errorf("expected [1 2], got %v", batch)
	}

	// Asking for more than remains returns the rest
	batch = q.PopN(10)
	if len(batch) != 3 || batch[2] != 5 {
		t.Errorf("expected [3 4 5], got %v", batch)
	}
	if !q.Empty() {
		t.Error("expected empty queue")
	}

	if got := q.PopN(3); len(got) != 0 {
		t.Errorf("expected empty batch, got %v", got)
	}
}

func TestQueue_PopNZeroTakesAll(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)

	if got := q.PopN(0); len(got) != 3 {
		t.Errorf("expected 3 items, got %v", got)
	}
}

func TestQueue_PopNDoesNotAlias(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)

	batch := q.PopN(1)
	batch[0] = 99
	q.Push(4)

	if got := q.PopN(0); got[0] != 2 || got[2] != 4 {
		t.Errorf("expected [2 3 4], got %v", got)
	}
}

func TestQueue_Requeue(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)

	batch := q.PopN(2)
	q.Push(4)
	q.Requeue(batch...)

	got := q.PopN(0)
	want := []int{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}

	q.Requeue()
	if !q.Empty() {
		t.Error("requeue of nothing should leave the queue empty")
	}
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[testStep]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n uint) {
			defer wg.Done()
			q.Push(testStep{Step: n})
		}(uint(i))
	}
	wg.Wait()

	if q.Len() != 100 {
		t.Errorf("expected 100 items, got %d", q.Len())
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.PopN(5)
		}()
	}
	wg.Wait()

	if q.Len() != 50 {
		t.Errorf("expected 50 items after batches, got %d", q.Len())
	}
}

func TestQueue_ConcurrentDrain(t *testing.T) {
	q := New[testStep]()

	for i := 0; i < 100; i++ {
		q.Push(testStep{Step: uint(i)})
	}

	var wg sync.WaitGroup
	results := make(chan []testStep, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- q.PopN(0)
		}()
	}
	wg.Wait()
	close(results)

	total := 0
	for r := range results {
		total += len(r)
	}
	if total != 100 {
		t.Errorf("expected total 100 items, got %d", total)
	}
}
