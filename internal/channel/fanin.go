package channel

import (
	"context"
	"sync/atomic"

	"cdcflow/models"
)

// FanIn merges the events of every stream into one ordered queue. Any number
// of publishers may write; exactly one Receiver may be taken.
type FanIn struct {
	q     *Queue[models.Event]
	taken atomic.Bool
}

func NewFanIn() *FanIn {
	return &FanIn{q: NewQueue[models.Event]("events")}
}

// Publisher is the write half handed to each stream.
type Publisher struct {
	q *Queue[models.Event]
}

func (p Publisher) Publish(ev models.Event) error {
	return p.q.Push(ev)
}

func (f *FanIn) Publisher() Publisher {
	return Publisher{q: f.q}
}

// Receiver is the single read half of a FanIn.
type Receiver struct {
	q *Queue[models.Event]
}

// Next returns the next event in arrival order.
func (r *Receiver) Next(ctx context.Context) (models.Event, error) {
	return r.q.Pop(ctx)
}

// Take hands out the receiver. Only the first call succeeds.
func (f *FanIn) Take() (*Receiver, bool) {
	if !f.taken.CompareAndSwap(false, true) {
		return nil, false
	}
	return &Receiver{q: f.q}, true
}

func (f *FanIn) Close() { f.q.Close() }

func (f *FanIn) Stats() QueueStats { return f.q.Stats() }
