package channel

import (
	"context"
	"errors"
	"testing"
	"time"

	"cdcflow/apierr"
	"cdcflow/models"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue[int]("test")
	for i := 1; i <= 3; i++ {
		if err := q.Push(i); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	ctx := context.Background()
	for want := 1; want <= 3; want++ {
		got, err := q.Pop(ctx)
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
}

func TestQueueDrainAfterClose(t *testing.T) {
	q := NewQueue[string]("test")
	_ = q.Push("a")
	_ = q.Push("b")
	q.Close()

	err := q.Push("c")
	if !errors.Is(err, apierr.ErrSendFailure) || !errors.Is(err, ErrClosed) {
		t.Fatalf("expected send failure wrapping ErrClosed, got %v", err)
	}

	ctx := context.Background()
	for _, want := range []string{"a", "b"} {
		got, err := q.Pop(ctx)
		if err != nil || got != want {
			t.Fatalf("expected %q, got %q (%v)", want, got, err)
		}
	}
	if _, err := q.Pop(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after drain, got %v", err)
	}

	stats := q.Stats()
	if stats.Pushed != 2 || stats.Popped != 2 || stats.Rejected != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestQueuePopWakesOnPush(t *testing.T) {
	q := NewQueue[int]("test")
	got := make(chan int, 1)
	go func() {
		v, err := q.Pop(context.Background())
		if err == nil {
			got <- v
		}
	}()

	time.Sleep(10 * time.Millisecond)
	_ = q.Push(42)

	select {
	case v := <-got:
		if v != 42 {
			t.Fatalf("expected 42, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("pop did not wake")
	}
}

func TestQueuePopWakesOnClose(t *testing.T) {
	q := NewQueue[int]("test")
	errs := make(chan error, 1)
	go func() {
		_, err := q.Pop(context.Background())
		errs <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-errs:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("pop did not wake on close")
	}
}

func TestQueuePopContext(t *testing.T) {
	q := NewQueue[int]("test")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := q.Pop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestFanInSingleReceiver(t *testing.T) {
	f := NewFanIn()
	rx, ok := f.Take()
	if !ok || rx == nil {
		t.Fatalf("expected first take to succeed")
	}
	if _, ok := f.Take(); ok {
		t.Fatalf("expected second take to fail")
	}

	pub := f.Publisher()
	if err := pub.Publish(models.Event{Stream: models.StreamMarket, Data: models.Handshake{Stream: models.StreamMarket}}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := pub.Publish(models.Event{Stream: models.StreamUser, Data: models.Heartbeat{Stream: models.StreamUser}}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	first, err := rx.Next(context.Background())
	if err != nil || first.Kind() != models.KindHandshake {
		t.Fatalf("unexpected first event %+v (%v)", first, err)
	}
	second, err := rx.Next(context.Background())
	if err != nil || second.Kind() != models.KindHeartbeat {
		t.Fatalf("unexpected second event %+v (%v)", second, err)
	}
}
