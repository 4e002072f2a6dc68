package cdpcontrol

import (
	"testing"
	"time"

	"github.com/dgnsrekt/chart_hover/internal/highlight"
	"github.com/gogpu/gg"
)

func TestEventQueuePreservesOrder(t *testing.T) {
	q := newEventQueue()
	defer q.close()

	for i := 0; i < 100; i++ {
		q.push(highlight.PointerEvent{Point: gg.Pt(float64(i), 0)})
	}
	q.push(highlight.PointerEvent{Leave: true})

	for i := 0; i < 100; i++ {
		select {
		case ev := <-q.out:
			if ev.Point.X != float64(i) {
				t.Fatalf("event %d has x=%v", i, ev.Point.X)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
	if ev := <-q.out; !ev.Leave {
		t.Fatalf("last event = %+v; want leave", ev)
	}
}

func TestEventQueueClose(t *testing.T) {
	q := newEventQueue()
	q.push(highlight.PointerEvent{})
	q.close()
	q.close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-q.out:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("output channel not closed")
		}
	}
}
