package session

import (
	"sync"
	"time"

	"github.com/tbornik/coaching-core/core/events"
)

const eventQueueCapacity = 64

type eventQueueItem struct {
	event    events.Event
	queuedAt time.Time
}

// eventRuntime serializes transport events: everything enqueued here is
// handled by exactly one goroutine, in arrival order. Handlers therefore
// never run concurrently with each other.
type eventRuntime struct {
	queue   chan eventQueueItem
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once

	handle func(events.Event)
}

func newEventRuntime(handle func(events.Event)) *eventRuntime {
	return &eventRuntime{
		queue:   make(chan eventQueueItem, eventQueueCapacity),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
		handle:  handle,
	}
}

func (r *eventRuntime) start() {
	r.startOnce.Do(func() {
		go func() {
			defer close(r.done)

			for {
				select {
				case <-r.closeCh:
					return
				case queuedItem := <-r.queue:
					if r.isClosed() {
						return
					}
					r.handle(queuedItem.event)
				}
			}
		}()
	})
}

func (r *eventRuntime) end() {
	r.endOnce.Do(func() {
		close(r.closeCh)
	})
}

// enqueue submits an event for ordered handling. Events enqueued after the
// runtime ended are dropped; reports whether the event was accepted.
func (r *eventRuntime) enqueue(event events.Event) bool {
	if r.isClosed() {
		return false
	}

	queueItem := eventQueueItem{event: event, queuedAt: time.Now()}
	select {
	case <-r.closeCh:
		return false
	case r.queue <- queueItem:
		return true
	}
}

func (r *eventRuntime) isClosed() bool {
	select {
	case <-r.closeCh:
		return true
	default:
		return false
	}
}

func (r *eventRuntime) awaitCompletion() {
	<-r.done
}
