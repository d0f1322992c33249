package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestRunStaticOrderAndCount(t *testing.T) {
	p := New(4)
	var counter int64
	n := 37
	for i := 0; i < n; i++ {
		p.AddTask(TaskFunc(func() (int, error) {
			atomic.AddInt64(&counter, 1)
			return 0, nil
		}))
	}
	if err := p.StartAndWait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counter != int64(n) {
		t.Errorf("expected %d executions, got %d", n, counter)
	}
	if len(p.Finished()) != n {
		t.Errorf("expected %d finished tasks, got %d", n, len(p.Finished()))
	}
}

func TestRunDynamicDrainsQueue(t *testing.T) {
	p := New(3)
	p.SetDynamic(2)
	var counter int64
	n := 50
	for i := 0; i < n; i++ {
		p.AddTask(TaskFunc(func() (int, error) {
			atomic.AddInt64(&counter, 1)
			return 0, nil
		}))
	}
	if err := p.StartAndWait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counter != int64(n) {
		t.Errorf("expected %d executions, got %d", n, counter)
	}
}

func TestStartAndWaitJoinsFailures(t *testing.T) {
	p := New(2)
	boom := errors.New("boom")
	p.AddTask(TaskFunc(func() (int, error) { return 0, nil }))
	p.AddTask(TaskFunc(func() (int, error) { return 1, boom }))
	p.AddTask(TaskFunc(func() (int, error) { return 1, boom }))

	err := p.StartAndWait(context.Background())
	if err == nil {
		t.Fatal("expected joined error, got nil")
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error to wrap task failure, got %v", err)
	}
}

func TestSingleThreadFallback(t *testing.T) {
	p := New(1)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		p.AddTask(TaskFunc(func() (int, error) {
			order = append(order, i)
			return 0, nil
		}))
	}
	if err := p.StartAndWait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range order {
		if v != i {
			t.Errorf("expected sequential execution on single thread, got %v", order)
			break
		}
	}
}
