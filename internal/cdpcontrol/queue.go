package cdpcontrol

import (
	"sync"

	"github.com/dgnsrekt/chart_hover/internal/highlight"
)

// eventQueue hands bridge events from the CDP read loop to the consumer.
// push never blocks, so the read loop keeps serving eval responses while
// the consumer is busy writing styles.
type eventQueue struct {
	mu     sync.Mutex
	items  []highlight.PointerEvent
	notify chan struct{}
	out    chan highlight.PointerEvent
	done   chan struct{}
	once   sync.Once
}

func newEventQueue() *eventQueue {
	q := &eventQueue{
		notify: make(chan struct{}, 1),
		out:    make(chan highlight.PointerEvent),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *eventQueue) push(ev highlight.PointerEvent) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *eventQueue) run() {
	defer close(q.out)
	for {
		select {
		case <-q.done:
			return
		case <-q.notify:
		}
		for {
			q.mu.Lock()
			if len(q.items) == 0 {
				q.mu.Unlock()
				break
			}
			ev := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()

			select {
			case q.out <- ev:
			case <-q.done:
				return
			}
		}
	}
}

func (q *eventQueue) close() {
	q.once.Do(func() { close(q.done) })
}
